package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xiaojinao/cellium/pkg/cellium/args"
	"github.com/xiaojinao/cellium/pkg/cellium/errors"
	"github.com/xiaojinao/cellium/pkg/cellium/event"
	"github.com/xiaojinao/cellium/pkg/cellium/observability"
	"github.com/xiaojinao/cellium/pkg/cellium/registry"
)

// separator is the structural character of the addressing grammar.
// Only the first two occurrences are structural; everything after the
// second is opaque argument text.
const separator = ":"

// Config configures a Router.
type Config struct {
	// Cells is the sealed registry the router dispatches against.
	Cells *registry.Cells

	// Bus receives event messages republished by the router.
	Bus *event.Bus

	// Logger for dispatch logging. Nil disables logging.
	Logger *slog.Logger

	// Metrics records dispatch and publish measurements.
	// Nil defaults to NoopMetrics.
	Metrics observability.MetricsRecorder

	// Spans manages dispatch trace spans. Nil defaults to NoopSpanManager.
	Spans observability.SpanManager
}

// Router is the single entry point for inbound protocol strings.
//
// Handle never returns an error to its caller: every failure is encoded
// into the reply string as an error envelope. The router holds no mutable
// state of its own, so Handle is safe for concurrent use.
type Router struct {
	cells   *registry.Cells
	bus     *event.Bus
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

// New creates a Router over a loaded registry and event bus.
func New(config Config) *Router {
	if config.Metrics == nil {
		config.Metrics = observability.NoopMetrics{}
	}
	if config.Spans == nil {
		config.Spans = observability.NoopSpanManager{}
	}
	return &Router{
		cells:   config.Cells,
		bus:     config.Bus,
		logger:  config.Logger,
		metrics: config.Metrics,
		spans:   config.Spans,
	}
}

// Handle processes one inbound message and returns the reply string.
//
// Messages starting with '{' are event envelopes; messages containing the
// separator are command messages of the form "cell:command:args". Only the
// first two separators are structural, so argument text may itself contain
// separators (filesystem paths, expressions). Everything else is rejected
// with an invalid_message envelope.
func (r *Router) Handle(ctx context.Context, message string) string {
	trimmed := strings.TrimSpace(message)
	switch {
	case trimmed == "":
		return r.errorReply(&errors.InvalidMessageError{
			Message: message,
			Reason:  "empty message",
		})
	case strings.HasPrefix(trimmed, "{"):
		return r.handleEvent(ctx, trimmed)
	case strings.Contains(message, separator):
		return r.handleCommand(ctx, message)
	default:
		return r.errorReply(&errors.InvalidMessageError{
			Message: message,
			Reason:  "not a command or event envelope",
		})
	}
}

// handleCommand dispatches "cell:command:args" to the target cell.
func (r *Router) handleCommand(ctx context.Context, message string) string {
	parts := strings.SplitN(message, separator, 3)
	cellName := strings.TrimSpace(parts[0])
	command := ""
	if len(parts) > 1 {
		command = strings.TrimSpace(parts[1])
	}
	raw := ""
	if len(parts) > 2 {
		raw = parts[2]
	}

	if cellName == "" || command == "" {
		return r.errorReply(&errors.InvalidMessageError{
			Message: message,
			Reason:  "missing cell or command name",
		})
	}

	observability.LogDispatch(r.logger, cellName, command)
	ctx, span := r.spans.StartDispatchSpan(ctx, cellName, command)
	start := time.Now()

	result, err := r.invoke(ctx, cellName, command, raw)
	duration := time.Since(start)
	r.spans.EndSpanWithError(span, err)

	if err != nil {
		kind := errors.KindOf(err)
		observability.LogDispatchError(r.logger, cellName, command, kind.String(), err)
		r.metrics.RecordDispatch(ctx, cellName, command, duration, kind.String())
		return r.errorReply(err)
	}

	observability.LogDispatchComplete(r.logger, cellName, command, float64(duration.Milliseconds()))
	r.metrics.RecordDispatch(ctx, cellName, command, duration, "")
	return encodeReply(result)
}

// invoke resolves the target and runs the handler, converting panics and
// handler errors into the taxonomy.
func (r *Router) invoke(ctx context.Context, cellName, command, raw string) (result any, err error) {
	c, err := r.cells.Resolve(cellName)
	if err != nil {
		return nil, err
	}

	cmd, ok := c.Commands()[command]
	if !ok || cmd.Fn == nil {
		return nil, &errors.CommandNotFoundError{Cell: cellName, Command: command}
	}

	v, fellBack := args.Decode(raw)
	if fellBack && r.logger != nil {
		// Looked structured but did not parse; handler gets the raw string.
		observability.EnrichLogger(r.logger, cellName, command).
			Debug("argument decode fell back to string")
	}

	defer func() {
		if p := recover(); p != nil {
			err = &errors.HandlerFailureError{
				Cell:    cellName,
				Command: command,
				Err:     fmt.Errorf("handler panic: %v", p),
			}
		}
	}()

	result, herr := cmd.Fn(ctx, v)
	if herr != nil {
		// Taxonomy errors keep their own kind on the wire so the view
		// layer can distinguish a busy backend from a bad handler.
		if errors.KindOf(herr) != errors.KindInternal {
			return nil, herr
		}
		return nil, &errors.HandlerFailureError{Cell: cellName, Command: command, Err: herr}
	}
	return result, nil
}

// eventEnvelope is the wire form of an event message.
type eventEnvelope struct {
	EventName string         `json:"event_name"`
	Payload   map[string]any `json:"payload"`
}

// ackReply acknowledges an accepted event message. Events carry no
// business result.
const ackReply = `{"ok":true}`

// handleEvent decodes an event envelope and republishes it on the bus.
func (r *Router) handleEvent(ctx context.Context, message string) string {
	var env eventEnvelope
	if err := json.Unmarshal([]byte(message), &env); err != nil {
		return r.errorReply(&errors.InvalidMessageError{
			Message: message,
			Reason:  "malformed event envelope: " + err.Error(),
		})
	}
	if env.EventName == "" {
		return r.errorReply(&errors.InvalidMessageError{
			Message: message,
			Reason:  "event envelope missing event_name",
		})
	}

	subscribers := r.bus.SubscriberCount(env.EventName)
	observability.LogPublish(r.logger, env.EventName, subscribers)

	start := time.Now()
	r.bus.Publish(ctx, env.EventName, env.Payload)
	r.metrics.RecordPublish(ctx, env.EventName, subscribers, time.Since(start))

	return ackReply
}

// errorReply encodes a failure as the wire error envelope.
func (r *Router) errorReply(err error) string {
	envelope := struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}{
		Error:   errors.KindOf(err).String(),
		Message: err.Error(),
	}
	data, merr := json.Marshal(envelope)
	if merr != nil {
		return fmt.Sprintf(`{"error":"internal","message":%q}`, err.Error())
	}
	return string(data)
}

// encodeReply coerces a handler result to the wire's string form.
// Strings pass through untouched; nil becomes the empty string;
// everything else is JSON-encoded.
func encodeReply(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
