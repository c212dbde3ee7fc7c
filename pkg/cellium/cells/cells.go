package cells

import (
	"github.com/xiaojinao/cellium/pkg/cellium/inject"
	"github.com/xiaojinao/cellium/pkg/cellium/proc"
)

// Factories returns the factory bindings for every built-in cell, keyed
// by configuration identifier.
func Factories() map[string]inject.Factory {
	return map[string]inject.Factory{
		"greeter":    NewGreeter,
		"calculator": NewCalculator,
		"jsontest":   NewJSONTest,
	}
}

// WorkerTasks returns the task table the built-in cells expect their
// worker processes to serve.
func WorkerTasks() *proc.Tasks {
	tasks := proc.NewTasks()
	tasks.Register(CalcTask, calcTask)
	return tasks
}
