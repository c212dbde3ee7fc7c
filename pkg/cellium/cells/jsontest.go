package cells

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xiaojinao/cellium/pkg/cellium/args"
	"github.com/xiaojinao/cellium/pkg/cellium/cell"
	"github.com/xiaojinao/cellium/pkg/cellium/inject"
)

// JSONTest exercises the argument decoding modes: plain strings, JSON
// objects, and JSON lists. Useful for wiring up a new view layer.
type JSONTest struct{}

// NewJSONTest is the jsontest cell factory.
func NewJSONTest(in *inject.Injector) (cell.Cell, error) {
	return &JSONTest{}, nil
}

func (j *JSONTest) Name() string { return "jsontest" }

func (j *JSONTest) Commands() map[string]cell.Command {
	return map[string]cell.Command{
		"echo": {
			Fn:          j.echo,
			Description: "echo a plain string argument",
		},
		"greet": {
			Fn:          j.greet,
			Description: `greet from a JSON object, e.g. jsontest:greet:{"name":"Ada","language":"de"}`,
		},
		"batch": {
			Fn:          j.batch,
			Description: "summarize a JSON list argument",
		},
		"complex": {
			Fn:          j.complex,
			Description: "normalize a nested JSON object",
		},
	}
}

func (j *JSONTest) Events() map[string]cell.EventFunc { return nil }

func (j *JSONTest) echo(ctx context.Context, v args.Value) (any, error) {
	return "Echo: " + v.Str(), nil
}

func (j *JSONTest) greet(ctx context.Context, v args.Value) (any, error) {
	name := v.GetString("name", "Unknown")
	switch v.GetString("language", "en") {
	case "zh":
		return fmt.Sprintf("你好，%s！", name), nil
	case "de":
		return fmt.Sprintf("Hallo, %s!", name), nil
	default:
		return fmt.Sprintf("Hello, %s!", name), nil
	}
}

func (j *JSONTest) batch(ctx context.Context, v args.Value) (any, error) {
	items := v.Items()
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprintf("%v", item.Interface())
	}
	return fmt.Sprintf("received %d items: %s", len(items), strings.Join(parts, ", ")), nil
}

func (j *JSONTest) complex(ctx context.Context, v args.Value) (any, error) {
	result := map[string]any{
		"status":   "success",
		"user":     fieldOr(v, "user", map[string]any{}),
		"tags":     fieldOr(v, "tags", []any{}),
		"metadata": fieldOr(v, "metadata", map[string]any{}),
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// fieldOr returns a field's decoded value or a default when absent.
func fieldOr(v args.Value, key string, def any) any {
	if f, ok := v.Get(key); ok {
		return f.Interface()
	}
	return def
}
