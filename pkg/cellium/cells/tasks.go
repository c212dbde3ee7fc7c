package cells

import (
	"context"
	"fmt"

	"github.com/xiaojinao/cellium/pkg/cellium/expr"
)

// calcTask evaluates one expression inside a worker process.
// The expression arrives as the first positional argument or as the
// "expression" keyword argument.
func calcTask(ctx context.Context, taskArgs []any, kwargs map[string]any) (any, error) {
	var expression string
	switch {
	case len(taskArgs) > 0:
		expression = fmt.Sprintf("%v", taskArgs[0])
	case kwargs["expression"] != nil:
		expression = fmt.Sprintf("%v", kwargs["expression"])
	default:
		return nil, fmt.Errorf("missing expression")
	}

	v, err := expr.Eval(expression)
	if err != nil {
		return nil, err
	}
	return expr.Format(v), nil
}
