package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"llmconsole/internal/upstream"
)

type fakeSource struct {
	lines  []string
	err    error // Returned after lines are exhausted instead of io.EOF.
	pos    int
	closed bool
}

func (f *fakeSource) Next() (string, error) {
	if f.pos < len(f.lines) {
		line := f.lines[f.pos]
		f.pos++
		return line, nil
	}
	if f.err != nil {
		return "", f.err
	}
	return "", io.EOF
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

type fakeOpener struct {
	src *fakeSource
	err error
}

func (f fakeOpener) Stream(ctx context.Context, req upstream.ChatRequest) (LineSource, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.src, nil
}

type appendedMessage struct {
	sessionID string
	role      string
	content   string
}

type memAppender struct {
	appended []appendedMessage
}

func (m *memAppender) Append(ctx context.Context, sessionID, role, content string) (string, error) {
	m.appended = append(m.appended, appendedMessage{sessionID, role, content})
	return fmt.Sprintf("msg-%d", len(m.appended)), nil
}

type recordedUsage struct {
	sessionID        string
	promptTokens     int64
	completionTokens int64
}

type memRecorder struct {
	records []recordedUsage
}

func (m *memRecorder) Record(ctx context.Context, sessionID string, modelID *string, profileID *uint64, promptTokens, completionTokens int64) (string, error) {
	m.records = append(m.records, recordedUsage{sessionID, promptTokens, completionTokens})
	return fmt.Sprintf("usage-%d", len(m.records)), nil
}

func runOrchestrator(t *testing.T, ctx context.Context, opener Opener) (State, *memAppender, *memRecorder, string) {
	t.Helper()
	appender := &memAppender{}
	recorder := &memRecorder{}
	orch := NewOrchestrator(opener, appender, recorder)

	var buf bytes.Buffer
	state := orch.Run(ctx, Params{
		SessionID: "sess-1",
		Request:   upstream.ChatRequest{Model: "openai/gpt-4o-mini"},
		RequestID: "req-1",
	}, NewEmitterTo(&buf))
	return state, appender, recorder, buf.String()
}

func TestRunCompleted(t *testing.T) {
	src := &fakeSource{lines: []string{
		`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
		"",
		`data: {"choices":[{"delta":{"content":"lo"}}]}`,
		`data: {"usage":{"prompt_tokens":10,"completion_tokens":5}}`,
		"data: [DONE]",
		`data: {"choices":[{"delta":{"content":"never"}}]}`,
	}}

	state, appender, recorder, out := runOrchestrator(t, context.Background(), fakeOpener{src: src})
	if state != StateCompleted {
		t.Fatalf("state = %d, want StateCompleted", state)
	}
	if !src.closed {
		t.Fatal("source not closed")
	}

	if len(appender.appended) != 1 {
		t.Fatalf("appended %d messages, want 1", len(appender.appended))
	}
	if got := appender.appended[0]; got.role != "assistant" || got.content != "Hello" {
		t.Fatalf("appended %+v, want assistant Hello", got)
	}

	if len(recorder.records) != 1 {
		t.Fatalf("recorded %d usage rows, want exactly 1", len(recorder.records))
	}
	if got := recorder.records[0]; got.promptTokens != 10 || got.completionTokens != 5 {
		t.Fatalf("usage = %+v, want 10/5", got)
	}

	if !strings.Contains(out, "event: start") {
		t.Fatalf("missing start event: %q", out)
	}
	if !strings.Contains(out, `{"token":"Hel"}`) || !strings.Contains(out, `{"token":"lo"}`) {
		t.Fatalf("missing token events: %q", out)
	}
	if !strings.Contains(out, "event: done") {
		t.Fatalf("missing done event: %q", out)
	}
	if strings.Contains(out, "never") {
		t.Fatalf("consumed past the sentinel: %q", out)
	}
}

func TestRunExhaustionWithoutSentinelCompletes(t *testing.T) {
	src := &fakeSource{lines: []string{
		`data: {"choices":[{"delta":{"content":"partial"}}]}`,
	}}

	state, appender, recorder, out := runOrchestrator(t, context.Background(), fakeOpener{src: src})
	if state != StateCompleted {
		t.Fatalf("state = %d, want StateCompleted on natural end-of-stream", state)
	}
	if len(appender.appended) != 1 || appender.appended[0].content != "partial" {
		t.Fatalf("appended = %+v", appender.appended)
	}
	if len(recorder.records) != 1 {
		t.Fatalf("recorded %d usage rows, want 1", len(recorder.records))
	}
	if !strings.Contains(out, "event: done") {
		t.Fatalf("missing done event: %q", out)
	}
}

func TestRunEmptyAccumulatorStillRecordsUsage(t *testing.T) {
	src := &fakeSource{lines: []string{
		`data: {"usage":{"prompt_tokens":3,"completion_tokens":0}}`,
		"data: [DONE]",
	}}

	state, appender, recorder, _ := runOrchestrator(t, context.Background(), fakeOpener{src: src})
	if state != StateCompleted {
		t.Fatalf("state = %d, want StateCompleted", state)
	}
	if len(appender.appended) != 0 {
		t.Fatalf("appended %d messages, want none for empty accumulator", len(appender.appended))
	}
	if len(recorder.records) != 1 {
		t.Fatalf("recorded %d usage rows, want 1 even with empty output", len(recorder.records))
	}
}

func TestRunWhitespaceOnlyAccumulatorNotPersisted(t *testing.T) {
	src := &fakeSource{lines: []string{
		`data: {"choices":[{"delta":{"content":"  \n "}}]}`,
		"data: [DONE]",
	}}

	state, appender, recorder, _ := runOrchestrator(t, context.Background(), fakeOpener{src: src})
	if state != StateCompleted {
		t.Fatalf("state = %d, want StateCompleted", state)
	}
	if len(appender.appended) != 0 {
		t.Fatalf("whitespace-only accumulator was persisted: %+v", appender.appended)
	}
	if len(recorder.records) != 1 {
		t.Fatalf("recorded %d usage rows, want 1", len(recorder.records))
	}
}

func TestRunUpstreamRejectionFails(t *testing.T) {
	opener := fakeOpener{err: &upstream.Error{StatusCode: 429, Body: "rate limited"}}

	state, appender, recorder, out := runOrchestrator(t, context.Background(), opener)
	if state != StateFailed {
		t.Fatalf("state = %d, want StateFailed", state)
	}
	if len(appender.appended) != 0 || len(recorder.records) != 0 {
		t.Fatal("failed stream must persist nothing")
	}
	if !strings.Contains(out, "event: error") {
		t.Fatalf("missing error event: %q", out)
	}
	if !strings.Contains(out, `"status":429`) {
		t.Fatalf("error event lacks upstream status: %q", out)
	}
	if !strings.Contains(out, `"request_id":"req-1"`) {
		t.Fatalf("error event lacks request id: %q", out)
	}
	if strings.Contains(out, "event: done") {
		t.Fatalf("failed stream must not emit done: %q", out)
	}
}

func TestRunMidStreamFaultFails(t *testing.T) {
	src := &fakeSource{
		lines: []string{`data: {"choices":[{"delta":{"content":"par"}}]}`},
		err:   errors.New("connection reset"),
	}

	state, appender, recorder, out := runOrchestrator(t, context.Background(), fakeOpener{src: src})
	if state != StateFailed {
		t.Fatalf("state = %d, want StateFailed", state)
	}
	if len(appender.appended) != 0 || len(recorder.records) != 0 {
		t.Fatal("partial generation must not be persisted")
	}
	if !strings.Contains(out, "event: error") || !strings.Contains(out, `"status":500`) {
		t.Fatalf("missing internal error event: %q", out)
	}
	if !src.closed {
		t.Fatal("source not closed after fault")
	}
}

func TestRunCancelledPersistsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{lines: []string{`data: {"choices":[{"delta":{"content":"x"}}]}`}}
	state, appender, recorder, out := runOrchestrator(t, ctx, fakeOpener{src: src})
	if state != StateCancelled {
		t.Fatalf("state = %d, want StateCancelled", state)
	}
	if len(appender.appended) != 0 || len(recorder.records) != 0 {
		t.Fatal("cancelled stream must persist nothing")
	}
	if strings.Contains(out, "event: error") || strings.Contains(out, "event: done") {
		t.Fatalf("cancelled stream must not emit further events: %q", out)
	}
}

func TestRunRawForwarding(t *testing.T) {
	src := &fakeSource{lines: []string{
		"data: garbled {not json",
		"data: [DONE]",
	}}

	state, _, _, out := runOrchestrator(t, context.Background(), fakeOpener{src: src})
	if state != StateCompleted {
		t.Fatalf("state = %d, want StateCompleted", state)
	}
	if !strings.Contains(out, `{"raw":"garbled {not json"}`) {
		t.Fatalf("unparseable line not forwarded: %q", out)
	}
}
