package cellium

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaojinao/cellium/pkg/cellium/cell"
	"github.com/xiaojinao/cellium/pkg/cellium/cells"
	"github.com/xiaojinao/cellium/pkg/cellium/config"
	"github.com/xiaojinao/cellium/pkg/cellium/event"
	"github.com/xiaojinao/cellium/pkg/cellium/inject"
	"github.com/xiaojinao/cellium/pkg/cellium/proc"
)

// TestMain doubles as the worker entry point for kernels constructed in
// these tests.
func TestMain(m *testing.M) {
	if proc.IsWorkerProcess() {
		if err := proc.RunWorker(cells.WorkerTasks()); err != nil {
			os.Exit(1)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func builtinOptions(settings config.Settings) []Option {
	opts := []Option{WithSettings(settings)}
	for id, factory := range cells.Factories() {
		opts = append(opts, WithFactory(id, factory))
	}
	return opts
}

func newTestKernel(t *testing.T, settings config.Settings, extra ...Option) *Kernel {
	t.Helper()
	k, err := New(append(builtinOptions(settings), extra...)...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		k.Shutdown(ctx)
	})
	return k
}

// TestKernel_EndToEnd drives the full pipeline: parse, dispatch, worker
// offload, event publication, reply encoding.
func TestKernel_EndToEnd(t *testing.T) {
	settings := config.DefaultSettings
	settings.Cells = []string{"greeter", "calculator", "jsontest"}
	k := newTestKernel(t, settings)
	ctx := context.Background()

	assert.Equal(t, "hi Hallo Cellium", k.Handle(ctx, "greeter:greet:hi"))
	assert.Equal(t, "Hallo Cellium", k.Handle(ctx, "greeter:greet:"))

	// calculator offloads to a real worker process
	assert.Equal(t, "14", k.Handle(ctx, "calculator:calc:2*(3+4)"))
	assert.Equal(t, "2.5", k.Handle(ctx, "calculator:eval:10/4"))

	assert.Equal(t, "Echo: ping", k.Handle(ctx, "jsontest:echo:ping"))
	assert.Equal(t, "Hallo, Ada!", k.Handle(ctx, `jsontest:greet:{"name":"Ada","language":"de"}`))
}

// TestKernel_Describe tests the command catalog surface.
func TestKernel_Describe(t *testing.T) {
	settings := config.DefaultSettings
	settings.Cells = []string{"calculator"}
	k := newTestKernel(t, settings)

	catalog, err := k.Describe("calculator")
	require.NoError(t, err)
	assert.Contains(t, catalog, "calc")
	assert.Contains(t, catalog, "eval")
	assert.NotEmpty(t, catalog["calc"])

	_, err = k.Describe("ghost")
	assert.Error(t, err)
}

// TestKernel_ErrorEnvelopes tests failures come back as envelopes.
func TestKernel_ErrorEnvelopes(t *testing.T) {
	settings := config.DefaultSettings
	settings.Cells = []string{"greeter"}
	k := newTestKernel(t, settings)

	var env struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(
		[]byte(k.Handle(context.Background(), "ghost:do:x")), &env))
	assert.Equal(t, "cell_not_found", env.Error)

	require.NoError(t, json.Unmarshal(
		[]byte(k.Handle(context.Background(), "greeter:fly:x")), &env))
	assert.Equal(t, "command_not_found", env.Error)
}

// TestKernel_EventPath tests view-published events reach subscribed
// cells and the caller gets an acknowledgement.
func TestKernel_EventPath(t *testing.T) {
	settings := config.DefaultSettings
	settings.Cells = []string{"calculator"}
	k := newTestKernel(t, settings)

	received := make(chan map[string]any, 1)
	k.Bus().Subscribe(cells.EventCalcRequested,
		func(ctx context.Context, name string, payload map[string]any) error {
			received <- payload
			return nil
		})

	reply := k.Handle(context.Background(),
		`{"event_name":"calc.requested","payload":{"expression":"1+1"}}`)
	assert.Equal(t, `{"ok":true}`, reply)

	select {
	case payload := <-received:
		assert.Equal(t, "1+1", payload["expression"])
	default:
		t.Fatal("event not delivered synchronously")
	}
}

// TestKernel_CalculatorEvents tests the calc cell publishes its lifecycle
// events around a dispatched command.
func TestKernel_CalculatorEvents(t *testing.T) {
	settings := config.DefaultSettings
	settings.Cells = []string{"calculator"}
	k := newTestKernel(t, settings)

	var events []string
	for _, name := range []string{cells.EventCalcRequested, cells.EventCalcCompleted} {
		name := name
		k.Bus().Subscribe(name, func(ctx context.Context, _ string, _ map[string]any) error {
			events = append(events, name)
			return nil
		})
	}

	k.Handle(context.Background(), "calculator:calc:1+1")
	assert.Equal(t, []string{cells.EventCalcRequested, cells.EventCalcCompleted}, events)
}

// TestKernel_StrictLoadFailure tests a failing factory aborts startup.
func TestKernel_StrictLoadFailure(t *testing.T) {
	settings := config.DefaultSettings
	settings.Cells = []string{"broken"}

	_, err := New(
		WithSettings(settings),
		WithFactory("broken", func(*inject.Injector) (cell.Cell, error) {
			return nil, fmt.Errorf("no backend")
		}),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

// TestKernel_LenientLoad tests failed cells are skipped when strict
// loading is off.
func TestKernel_LenientLoad(t *testing.T) {
	settings := config.DefaultSettings
	settings.StrictLoad = false
	settings.Cells = []string{"broken", "greeter"}

	k := newTestKernel(t, settings,
		WithFactory("broken", func(*inject.Injector) (cell.Cell, error) {
			return nil, fmt.Errorf("no backend")
		}),
	)

	assert.Equal(t, "hi Hallo Cellium", k.Handle(context.Background(), "greeter:greet:hi"))

	var env struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(
		[]byte(k.Handle(context.Background(), "broken:do:x")), &env))
	assert.Equal(t, "cell_not_found", env.Error)
}

// TestKernel_MissingFactory tests an unbound cell id aborts startup.
func TestKernel_MissingFactory(t *testing.T) {
	settings := config.DefaultSettings
	settings.Cells = []string{"nobody"}

	_, err := New(WithSettings(settings))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nobody")
}

// TestKernel_DeadLetter tests failed event handlers land in the
// configured store.
func TestKernel_DeadLetter(t *testing.T) {
	store := event.NewMemoryStore(10)
	settings := config.DefaultSettings
	settings.Cells = []string{"greeter"}
	k := newTestKernel(t, settings, WithDeadLetterStore(store))

	k.Bus().Subscribe("ui.ready", func(ctx context.Context, _ string, _ map[string]any) error {
		return fmt.Errorf("view bridge down")
	})
	k.Handle(context.Background(), `{"event_name":"ui.ready","payload":{}}`)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// TestKernel_SQLiteDeadLetterPath tests the settings-driven SQLite store.
func TestKernel_SQLiteDeadLetterPath(t *testing.T) {
	settings := config.DefaultSettings
	settings.Cells = []string{"greeter"}
	settings.DeadLetterPath = filepath.Join(t.TempDir(), "dl.db")
	k := newTestKernel(t, settings)

	k.Bus().Subscribe("ui.ready", func(ctx context.Context, _ string, _ map[string]any) error {
		return fmt.Errorf("nope")
	})
	k.Handle(context.Background(), `{"event_name":"ui.ready","payload":{}}`)

	count, err := k.DeadLetter().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// TestKernel_ShutdownIdempotent tests repeated shutdown and the
// post-shutdown submission error path.
func TestKernel_ShutdownIdempotent(t *testing.T) {
	settings := config.DefaultSettings
	settings.Cells = []string{"calculator"}
	k, err := New(builtinOptions(settings)...)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, k.Shutdown(ctx))
	require.NoError(t, k.Shutdown(ctx))

	// commands that offload now report the stopped pool in an envelope
	var env struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(
		[]byte(k.Handle(ctx, "calculator:calc:1+1")), &env))
	assert.Equal(t, "execution_error", env.Error)
}
