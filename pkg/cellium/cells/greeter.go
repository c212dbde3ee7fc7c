package cells

import (
	"context"

	"github.com/xiaojinao/cellium/pkg/cellium/args"
	"github.com/xiaojinao/cellium/pkg/cellium/cell"
	"github.com/xiaojinao/cellium/pkg/cellium/inject"
)

// greetingSuffix is appended to every greeting.
const greetingSuffix = "Hallo Cellium"

// Greeter echoes text back with the kernel's greeting suffix. It is the
// smallest possible cell: one command, no dependencies, no state.
type Greeter struct{}

// NewGreeter is the greeter cell factory.
func NewGreeter(in *inject.Injector) (cell.Cell, error) {
	return &Greeter{}, nil
}

func (g *Greeter) Name() string { return "greeter" }

func (g *Greeter) Commands() map[string]cell.Command {
	return map[string]cell.Command{
		"greet": {
			Fn:          g.greet,
			Description: "append the greeting suffix, e.g. greeter:greet:hello",
		},
	}
}

func (g *Greeter) Events() map[string]cell.EventFunc { return nil }

func (g *Greeter) greet(ctx context.Context, v args.Value) (any, error) {
	text := v.Str()
	if text == "" {
		return greetingSuffix, nil
	}
	return text + " " + greetingSuffix, nil
}
