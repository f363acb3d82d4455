// Package stream implements the streaming relay pipeline: the delta parser
// that interprets raw upstream lines, the SSE emitter, and the orchestrator
// that composes them with exactly-once persistence.
package stream

import (
	"encoding/json"
	"strings"
)

// dataPrefix is the SSE framing prefix on upstream lines.
const dataPrefix = "data: "

// doneSentinel is the in-band end-of-content marker, distinct from
// transport-level end-of-stream.
const doneSentinel = "[DONE]"

// Kind classifies one parsed upstream line.
type Kind int

const (
	// KindSkip is a blank line; no event is emitted.
	KindSkip Kind = iota
	// KindText is display text extracted from the delta content.
	KindText
	// KindTool is tool-call argument text, used only when the delta carried
	// no display text.
	KindTool
	// KindRaw is a chunk with no extractable text, forwarded verbatim so no
	// data is ever silently dropped.
	KindRaw
	// KindDone is the [DONE] sentinel; the consumer must stop reading.
	KindDone
)

// Event is the parse result for one raw line.
type Event struct {
	Kind Kind
	Text string // Token text for KindText and KindTool.
	Raw  string // Original chunk for KindRaw.
}

// UsageTally is the running usage snapshot merged across chunks. Fields only
// ever move forward: a chunk with partial or absent usage data never erases
// previously seen counts.
type UsageTally struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// merge folds one usage object into the tally. Prompt and completion take
// the new value only when present and non-zero; the total takes the explicit
// value when non-zero and is otherwise recomputed as prompt+completion.
func (t *UsageTally) merge(usage map[string]any) {
	if p, ok := intField(usage, "prompt_tokens"); ok && p != 0 {
		t.PromptTokens = p
	}
	if c, ok := intField(usage, "completion_tokens"); ok && c != 0 {
		t.CompletionTokens = c
	}
	if total, ok := intField(usage, "total_tokens"); ok && total != 0 {
		t.TotalTokens = total
	} else {
		t.TotalTokens = t.PromptTokens + t.CompletionTokens
	}
}

// ParseLine interprets one raw line from the upstream transport. Usage data
// found anywhere in the chunk is merged into tally regardless of whether the
// chunk also carried display text.
func ParseLine(line string, tally *UsageTally) Event {
	if strings.TrimSpace(line) == "" {
		return Event{Kind: KindSkip}
	}

	chunk := line
	if strings.HasPrefix(chunk, dataPrefix) {
		chunk = chunk[len(dataPrefix):]
	}
	chunk = strings.TrimSpace(chunk)

	if chunk == doneSentinel {
		return Event{Kind: KindDone}
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(chunk), &obj); err != nil {
		return Event{Kind: KindRaw, Raw: chunk}
	}

	delta := firstChoiceDelta(obj)

	// Usage may ride on any chunk, at the top level, under the delta, or
	// under the first choice; merging is independent of content routing.
	if usage := findUsage(obj, delta); usage != nil {
		tally.merge(usage)
	}

	if text := contentText(delta); text != "" {
		return Event{Kind: KindText, Text: text}
	}
	if text := toolCallText(delta); text != "" {
		return Event{Kind: KindTool, Text: text}
	}

	// Parsed fine but nothing displayable (often a usage-only chunk); still
	// forwarded so the client's view loses nothing.
	return Event{Kind: KindRaw, Raw: chunk}
}

// firstChoice returns the first element of the "choices" array, when any.
func firstChoice(obj map[string]any) map[string]any {
	choices, ok := obj["choices"].([]any)
	if !ok || len(choices) == 0 {
		return nil
	}
	choice, _ := choices[0].(map[string]any)
	return choice
}

// firstChoiceDelta extracts the first choice's delta object, defaulting to
// an empty map when absent.
func firstChoiceDelta(obj map[string]any) map[string]any {
	if choice := firstChoice(obj); choice != nil {
		if delta, ok := choice["delta"].(map[string]any); ok {
			return delta
		}
	}
	return map[string]any{}
}

// findUsage locates a usage object at the top level, nested under the delta,
// or nested under the first choice.
func findUsage(obj, delta map[string]any) map[string]any {
	if usage, ok := obj["usage"].(map[string]any); ok {
		return usage
	}
	if usage, ok := delta["usage"].(map[string]any); ok {
		return usage
	}
	if choice := firstChoice(obj); choice != nil {
		if usage, ok := choice["usage"].(map[string]any); ok {
			return usage
		}
	}
	return nil
}

// contentText resolves the delta "content" field, which may be a plain
// string or a list of heterogeneous items, into concatenated text.
func contentText(delta map[string]any) string {
	switch content := delta["content"].(type) {
	case string:
		return content
	case []any:
		var b strings.Builder
		for _, item := range content {
			switch part := item.(type) {
			case string:
				b.WriteString(part)
			case map[string]any:
				if text, ok := part["text"].(string); ok {
					b.WriteString(text)
				} else if text, ok := part["content"].(string); ok {
					b.WriteString(text)
				}
			}
		}
		return b.String()
	default:
		return ""
	}
}

// toolCallText concatenates tool-call argument fragments in list order: the
// "arguments" string under each element's "function" object and/or a direct
// "text" field on the element.
func toolCallText(delta map[string]any) string {
	calls, ok := delta["tool_calls"].([]any)
	if !ok {
		return ""
	}
	var b strings.Builder
	for _, raw := range calls {
		call, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if fn, ok := call["function"].(map[string]any); ok {
			if args, ok := fn["arguments"].(string); ok {
				b.WriteString(args)
			}
		}
		if text, ok := call["text"].(string); ok {
			b.WriteString(text)
		}
	}
	return b.String()
}

// intField reads a numeric field from a decoded JSON object.
func intField(obj map[string]any, key string) (int64, bool) {
	switch v := obj[key].(type) {
	case float64:
		return int64(v), true
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
