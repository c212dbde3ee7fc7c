package inject

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaojinao/cellium/pkg/cellium/cell"
	"github.com/xiaojinao/cellium/pkg/cellium/errors"
	"github.com/xiaojinao/cellium/pkg/cellium/event"
	"github.com/xiaojinao/cellium/pkg/cellium/registry"
)

// fakeCell is a configurable cell for injector tests.
type fakeCell struct {
	name      string
	events    map[string]cell.EventFunc
	teardowns *[]string
}

func (f *fakeCell) Name() string { return f.name }

func (f *fakeCell) Commands() map[string]cell.Command { return nil }

func (f *fakeCell) Events() map[string]cell.EventFunc { return f.events }

func (f *fakeCell) Teardown(ctx context.Context) error {
	if f.teardowns != nil {
		*f.teardowns = append(*f.teardowns, f.name)
	}
	return nil
}

func newInjector() *Injector {
	return New(event.NewBus(event.BusConfig{}), nil, nil, registry.NewCells())
}

func staticFactory(name string) Factory {
	return func(in *Injector) (cell.Cell, error) {
		return &fakeCell{name: name}, nil
	}
}

// TestInjector_LoadStrict tests in-order loading and sealing.
func TestInjector_LoadStrict(t *testing.T) {
	in := newInjector()
	in.RegisterFactory("a", staticFactory("a"))
	in.RegisterFactory("b", staticFactory("b"))

	require.NoError(t, in.Load([]string{"a", "b"}, Strict))

	c, err := in.Cell("a")
	require.NoError(t, err)
	assert.Equal(t, "a", c.Name())
}

// TestInjector_LoadStrict_AbortsOnFailure tests strict policy stops at
// the first construction failure.
func TestInjector_LoadStrict_AbortsOnFailure(t *testing.T) {
	in := newInjector()
	in.RegisterFactory("good", staticFactory("good"))
	in.RegisterFactory("bad", func(*Injector) (cell.Cell, error) {
		return nil, fmt.Errorf("no database")
	})
	in.RegisterFactory("after", staticFactory("after"))

	err := in.Load([]string{"good", "bad", "after"}, Strict)
	require.Error(t, err)
	assert.Equal(t, errors.KindConstruction, errors.KindOf(err))
	assert.Contains(t, err.Error(), "bad")

	_, err = in.Cell("after")
	assert.Error(t, err)
}

// TestInjector_LoadLenient_SkipsFailures tests lenient policy keeps
// loading past failures.
func TestInjector_LoadLenient_SkipsFailures(t *testing.T) {
	in := newInjector()
	in.RegisterFactory("good", staticFactory("good"))
	in.RegisterFactory("bad", func(*Injector) (cell.Cell, error) {
		return nil, fmt.Errorf("no database")
	})
	in.RegisterFactory("after", staticFactory("after"))

	require.NoError(t, in.Load([]string{"good", "bad", "after"}, Lenient))

	_, err := in.Cell("good")
	assert.NoError(t, err)
	_, err = in.Cell("after")
	assert.NoError(t, err)
	_, err = in.Cell("bad")
	assert.Error(t, err)
}

// TestInjector_CrossCellReference tests a factory resolving another cell
// that appears later in the configuration.
func TestInjector_CrossCellReference(t *testing.T) {
	in := newInjector()

	var gotDep cell.Cell
	in.RegisterFactory("consumer", func(in *Injector) (cell.Cell, error) {
		dep, err := in.Cell("provider")
		if err != nil {
			return nil, err
		}
		gotDep = dep
		return &fakeCell{name: "consumer"}, nil
	})
	in.RegisterFactory("provider", staticFactory("provider"))

	// consumer is listed first; provider is constructed on demand
	require.NoError(t, in.Load([]string{"consumer", "provider"}, Strict))
	require.NotNil(t, gotDep)
	assert.Equal(t, "provider", gotDep.Name())
}

// TestInjector_CircularDependency tests the cycle is detected, not
// recursed into.
func TestInjector_CircularDependency(t *testing.T) {
	in := newInjector()
	in.RegisterFactory("a", func(in *Injector) (cell.Cell, error) {
		if _, err := in.Cell("b"); err != nil {
			return nil, err
		}
		return &fakeCell{name: "a"}, nil
	})
	in.RegisterFactory("b", func(in *Injector) (cell.Cell, error) {
		if _, err := in.Cell("a"); err != nil {
			return nil, err
		}
		return &fakeCell{name: "b"}, nil
	})

	err := in.Load([]string{"a"}, Strict)
	require.Error(t, err)
	assert.Equal(t, errors.KindCircularDependency, errors.KindOf(err))

	var circular *errors.CircularDependencyError
	require.ErrorAs(t, err, &circular)
	assert.Equal(t, []string{"a", "b", "a"}, circular.Chain)
}

// TestInjector_SelfDependency tests the one-cell cycle.
func TestInjector_SelfDependency(t *testing.T) {
	in := newInjector()
	in.RegisterFactory("a", func(in *Injector) (cell.Cell, error) {
		if _, err := in.Cell("a"); err != nil {
			return nil, err
		}
		return &fakeCell{name: "a"}, nil
	})

	err := in.Load([]string{"a"}, Strict)
	require.Error(t, err)
	assert.Equal(t, errors.KindCircularDependency, errors.KindOf(err))
}

// TestInjector_FactoryNameMismatch tests a factory whose cell disagrees
// with its configuration id.
func TestInjector_FactoryNameMismatch(t *testing.T) {
	in := newInjector()
	in.RegisterFactory("expected", staticFactory("actual"))

	err := in.Load([]string{"expected"}, Strict)
	require.Error(t, err)
	assert.Equal(t, errors.KindConstruction, errors.KindOf(err))
	assert.Contains(t, err.Error(), "actual")
}

// TestInjector_UnknownFactory tests loading an id with no factory bound.
func TestInjector_UnknownFactory(t *testing.T) {
	in := newInjector()
	err := in.Load([]string{"nobody"}, Strict)
	require.Error(t, err)
	assert.Equal(t, errors.KindCellNotFound, errors.KindOf(err))
}

// TestInjector_WiresEvents tests declared event handlers reach the bus.
func TestInjector_WiresEvents(t *testing.T) {
	bus := event.NewBus(event.BusConfig{})
	in := New(bus, nil, nil, registry.NewCells())

	delivered := false
	in.RegisterFactory("listener", func(*Injector) (cell.Cell, error) {
		return &fakeCell{
			name: "listener",
			events: map[string]cell.EventFunc{
				"ping": func(ctx context.Context, name string, payload map[string]any) error {
					delivered = true
					return nil
				},
			},
		}, nil
	})

	require.NoError(t, in.Load([]string{"listener"}, Strict))
	bus.Publish(context.Background(), "ping", nil)
	assert.True(t, delivered)
}

// TestInjector_Teardown tests reverse-order teardown and subscription
// dropping.
func TestInjector_Teardown(t *testing.T) {
	bus := event.NewBus(event.BusConfig{})
	in := New(bus, nil, nil, registry.NewCells())

	var order []string
	delivered := 0
	for _, name := range []string{"first", "second"} {
		name := name
		in.RegisterFactory(name, func(*Injector) (cell.Cell, error) {
			return &fakeCell{
				name:      name,
				teardowns: &order,
				events: map[string]cell.EventFunc{
					"tick": func(ctx context.Context, _ string, _ map[string]any) error {
						delivered++
						return nil
					},
				},
			}, nil
		})
	}
	require.NoError(t, in.Load([]string{"first", "second"}, Strict))

	bus.Publish(context.Background(), "tick", nil)
	assert.Equal(t, 2, delivered)

	in.Teardown(context.Background())
	assert.Equal(t, []string{"second", "first"}, order)

	bus.Publish(context.Background(), "tick", nil)
	assert.Equal(t, 2, delivered)
}

// TestInjector_Singletons tests the service accessors.
func TestInjector_Singletons(t *testing.T) {
	bus := event.NewBus(event.BusConfig{})
	in := New(bus, nil, nil, registry.NewCells())

	assert.Same(t, bus, in.Bus())
	assert.Nil(t, in.Proc())
	assert.NotNil(t, in.Logger())
}
