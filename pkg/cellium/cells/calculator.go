package cells

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xiaojinao/cellium/pkg/cellium/args"
	"github.com/xiaojinao/cellium/pkg/cellium/cell"
	"github.com/xiaojinao/cellium/pkg/cellium/event"
	"github.com/xiaojinao/cellium/pkg/cellium/expr"
	"github.com/xiaojinao/cellium/pkg/cellium/inject"
	"github.com/xiaojinao/cellium/pkg/cellium/proc"
)

// Event names published around each calculation.
const (
	EventCalcRequested = "calc.requested"
	EventCalcCompleted = "calc.completed"
	EventCalcError     = "calc.error"
)

// CalcTask is the worker task name for expression evaluation.
const CalcTask = "calc"

// Calculator evaluates arithmetic expressions. Evaluation is offloaded
// to a worker process when a process manager is available, otherwise it
// runs in-process. Each calculation publishes calc.requested and then
// calc.completed or calc.error.
type Calculator struct {
	bus    *event.Bus
	proc   *proc.Manager
	logger *slog.Logger
}

// NewCalculator is the calculator cell factory.
func NewCalculator(in *inject.Injector) (cell.Cell, error) {
	return &Calculator{
		bus:    in.Bus(),
		proc:   in.Proc(),
		logger: in.Logger(),
	}, nil
}

func (c *Calculator) Name() string { return "calculator" }

func (c *Calculator) Commands() map[string]cell.Command {
	return map[string]cell.Command{
		"calc": {
			Fn:          c.calc,
			Description: "evaluate an arithmetic expression, e.g. calculator:calc:1+1",
		},
		"eval": {
			Fn:          c.calc,
			Description: "alias for calc",
		},
	}
}

func (c *Calculator) Events() map[string]cell.EventFunc {
	return map[string]cell.EventFunc{
		EventCalcRequested: c.onRequested,
		EventCalcCompleted: c.onCompleted,
		EventCalcError:     c.onError,
	}
}

func (c *Calculator) calc(ctx context.Context, v args.Value) (any, error) {
	expression := v.Str()
	c.bus.Publish(ctx, EventCalcRequested, map[string]any{
		"expression": expression,
	})

	result, err := c.evaluate(ctx, expression)
	if err != nil {
		c.bus.Publish(ctx, EventCalcError, map[string]any{
			"expression": expression,
			"error":      err.Error(),
		})
		return nil, err
	}

	c.bus.Publish(ctx, EventCalcCompleted, map[string]any{
		"expression": expression,
		"result":     result,
	})
	return result, nil
}

// evaluate offloads to a worker when a pool is available.
func (c *Calculator) evaluate(ctx context.Context, expression string) (string, error) {
	if c.proc == nil {
		v, err := expr.Eval(expression)
		if err != nil {
			return "", err
		}
		return expr.Format(v), nil
	}

	res := c.proc.Submit(ctx, proc.Unit{
		Task: CalcTask,
		Args: []any{expression},
	})
	if res.Err != nil {
		return "", res.Err
	}
	return fmt.Sprintf("%v", res.Value), nil
}

func (c *Calculator) onRequested(ctx context.Context, name string, payload map[string]any) error {
	c.logger.Debug("calculation requested",
		slog.Any("expression", payload["expression"]),
	)
	return nil
}

func (c *Calculator) onCompleted(ctx context.Context, name string, payload map[string]any) error {
	c.logger.Info("calculation completed",
		slog.Any("expression", payload["expression"]),
		slog.Any("result", payload["result"]),
	)
	return nil
}

func (c *Calculator) onError(ctx context.Context, name string, payload map[string]any) error {
	c.logger.Error("calculation failed",
		slog.Any("expression", payload["expression"]),
		slog.Any("error", payload["error"]),
	)
	return nil
}
