package stream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"llmconsole/internal/models"
	"llmconsole/internal/upstream"
)

// State is the terminal state of one streaming invocation. Exactly one
// terminal state is entered per run.
type State int

const (
	// StateCompleted means the stream drained normally; the assistant turn
	// (when non-empty) and one usage row were persisted.
	StateCompleted State = iota
	// StateCancelled means the client disconnected or the task was
	// cancelled; nothing was persisted and no further events were sent.
	StateCancelled
	// StateFailed means an upstream or internal fault ended the stream; one
	// terminal error event was sent and nothing was persisted.
	StateFailed
)

// LineSource is a lazy single-pass sequence of raw upstream lines.
type LineSource interface {
	// Next returns the next line, io.EOF on natural exhaustion, or the
	// transport fault that ended the stream.
	Next() (string, error)
	// Close releases the underlying connection.
	Close() error
}

// Opener opens one upstream streaming call.
type Opener interface {
	Stream(ctx context.Context, req upstream.ChatRequest) (LineSource, error)
}

// clientOpener adapts the concrete upstream client to the Opener interface.
type clientOpener struct {
	client *upstream.Client
}

// NewClientOpener wraps an upstream client as an Opener.
func NewClientOpener(c *upstream.Client) Opener {
	return clientOpener{client: c}
}

func (o clientOpener) Stream(ctx context.Context, req upstream.ChatRequest) (LineSource, error) {
	src, errStream := o.client.Stream(ctx, req)
	if errStream != nil {
		return nil, errStream
	}
	return src, nil
}

// MessageAppender persists one turn to a session's message log.
type MessageAppender interface {
	Append(ctx context.Context, sessionID, role, content string) (string, error)
}

// UsageRecorder persists one usage row, computing cost from the model
// catalog.
type UsageRecorder interface {
	Record(ctx context.Context, sessionID string, modelID *string, profileID *uint64, promptTokens, completionTokens int64) (string, error)
}

// Params describes one streaming invocation.
type Params struct {
	SessionID string               // Owning session; receives the assistant turn.
	Request   upstream.ChatRequest // Fully resolved upstream request.
	ModelID   *string              // Catalog model id for the usage row, when known.
	ProfileID *uint64              // Profile in effect, when any.
	RequestID string               // Correlation id echoed in error events.
	StartData map[string]any       // Extra fields for the start and done events.
}

// Orchestrator relays one upstream stream to an SSE client and owns the
// accumulation state machine: Starting -> Streaming -> one of
// {Completed, Cancelled, Failed}.
type Orchestrator struct {
	upstream Opener
	messages MessageAppender
	ledger   UsageRecorder
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(up Opener, messages MessageAppender, ledger UsageRecorder) *Orchestrator {
	return &Orchestrator{upstream: up, messages: messages, ledger: ledger}
}

// Run executes one streaming turn and returns its terminal state. Every
// failure mode yields a well-formed SSE event stream; only a fully completed
// stream persists anything.
func (o *Orchestrator) Run(ctx context.Context, p Params, emit *Emitter) State {
	// Starting: the start event precedes any network call.
	startData := map[string]any{"message": "stream_start"}
	for k, v := range p.StartData {
		startData[k] = v
	}
	if errEmit := emit.Event(EventStart, startData); errEmit != nil {
		return StateCancelled
	}

	src, errOpen := o.upstream.Stream(ctx, p.Request)
	if errOpen != nil {
		return o.failed(ctx, p, emit, errOpen)
	}
	defer func() { _ = src.Close() }()

	var accum strings.Builder
	var tally UsageTally

	// Streaming: client-observed token order is upstream arrival order.
streaming:
	for {
		if ctx.Err() != nil {
			return o.cancelled(p)
		}

		line, errNext := src.Next()
		if errNext != nil {
			if errors.Is(errNext, io.EOF) {
				// Exhaustion without [DONE] is treated the same as the
				// sentinel.
				break
			}
			if ctx.Err() != nil {
				return o.cancelled(p)
			}
			return o.failed(ctx, p, emit, errNext)
		}

		ev := ParseLine(line, &tally)
		switch ev.Kind {
		case KindSkip:
			continue
		case KindDone:
			break streaming
		case KindText, KindTool:
			accum.WriteString(ev.Text)
			if errEmit := emit.Event("", map[string]any{"token": ev.Text}); errEmit != nil {
				return o.cancelled(p)
			}
		case KindRaw:
			if errEmit := emit.Event("", map[string]any{"raw": ev.Raw}); errEmit != nil {
				return o.cancelled(p)
			}
		}
	}

	// Completed.
	assistant := accum.String()

	if strings.TrimSpace(assistant) != "" {
		if _, errAppend := o.messages.Append(ctx, p.SessionID, models.RoleAssistant, assistant); errAppend != nil {
			return o.failed(ctx, p, emit, errAppend)
		}
	}
	if _, errRecord := o.ledger.Record(ctx, p.SessionID, p.ModelID, p.ProfileID, tally.PromptTokens, tally.CompletionTokens); errRecord != nil {
		return o.failed(ctx, p, emit, errRecord)
	}

	doneData := map[string]any{
		"message":   "stream_end",
		"assistant": assistant,
		"usage":     tally,
	}
	for k, v := range p.StartData {
		if _, exists := doneData[k]; !exists {
			doneData[k] = v
		}
	}
	if errEmit := emit.Event(EventDone, doneData); errEmit != nil {
		return StateCancelled
	}

	log.WithFields(log.Fields{
		"session_id":   p.SessionID,
		"model":        p.Request.Model,
		"total_tokens": tally.TotalTokens,
		"request_id":   p.RequestID,
	}).Info("stream completed")
	return StateCompleted
}

// cancelled handles client disconnection or task cancellation: no further
// events, no persistence, so a truncated generation the user never saw
// delivered leaves no trace.
func (o *Orchestrator) cancelled(p Params) State {
	log.WithFields(log.Fields{
		"session_id": p.SessionID,
		"model":      p.Request.Model,
		"request_id": p.RequestID,
	}).Info("stream cancelled by client")
	return StateCancelled
}

// failed emits the single terminal error event. Nothing is persisted: a
// partial generation is neither billable nor a finished turn.
func (o *Orchestrator) failed(ctx context.Context, p Params, emit *Emitter, cause error) State {
	if ctx.Err() != nil {
		return o.cancelled(p)
	}

	status := http.StatusInternalServerError
	message := "an internal error occurred while processing the stream"
	errorCode := "internal_error"

	var upErr *upstream.Error
	if errors.As(cause, &upErr) {
		status = upErr.StatusCode
		message = cause.Error()
		errorCode = "openrouter_error"
	}

	log.WithError(cause).WithFields(log.Fields{
		"session_id": p.SessionID,
		"model":      p.Request.Model,
		"status":     status,
		"request_id": p.RequestID,
	}).Error("stream failed")

	_ = emit.Event(EventError, map[string]any{
		"status":     status,
		"message":    message,
		"error":      errorCode,
		"request_id": p.RequestID,
	})
	return StateFailed
}

// EmitPreflightError reports a failure detected before the Starting state
// (missing session, missing credential) as a well-formed SSE error event.
// EventSource clients cannot observe non-2xx responses, so the SSE channel
// itself must still open.
func EmitPreflightError(emit *Emitter, status int, code, message, requestID string) {
	_ = emit.Event(EventError, map[string]any{
		"status":     status,
		"message":    message,
		"error":      code,
		"request_id": requestID,
	})
}
