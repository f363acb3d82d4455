package stream

import "testing"

func TestParseLineBlank(t *testing.T) {
	var tally UsageTally
	for _, line := range []string{"", "   ", "\t"} {
		ev := ParseLine(line, &tally)
		if ev.Kind != KindSkip {
			t.Fatalf("line %q: got kind %d, want KindSkip", line, ev.Kind)
		}
	}
}

func TestParseLineDone(t *testing.T) {
	var tally UsageTally
	ev := ParseLine("data: [DONE]", &tally)
	if ev.Kind != KindDone {
		t.Fatalf("got kind %d, want KindDone", ev.Kind)
	}
	ev = ParseLine("[DONE]", &tally)
	if ev.Kind != KindDone {
		t.Fatalf("without prefix: got kind %d, want KindDone", ev.Kind)
	}
}

func TestParseLineTextToken(t *testing.T) {
	var tally UsageTally
	ev := ParseLine(`data: {"choices":[{"delta":{"content":"Hello"}}]}`, &tally)
	if ev.Kind != KindText || ev.Text != "Hello" {
		t.Fatalf("got kind %d text %q, want KindText Hello", ev.Kind, ev.Text)
	}
}

func TestParseLineListContent(t *testing.T) {
	var tally UsageTally
	line := `data: {"choices":[{"delta":{"content":["Hel",{"text":"lo"},{"content":" world"},{"other":1}]}}]}`
	ev := ParseLine(line, &tally)
	if ev.Kind != KindText || ev.Text != "Hello world" {
		t.Fatalf("got kind %d text %q, want KindText %q", ev.Kind, ev.Text, "Hello world")
	}
}

func TestParseLineToolFallback(t *testing.T) {
	var tally UsageTally
	line := `data: {"choices":[{"delta":{"tool_calls":[{"function":{"arguments":"{\"a\":"}},{"function":{"arguments":"1}"},"text":"!"}]}}]}`
	ev := ParseLine(line, &tally)
	if ev.Kind != KindTool {
		t.Fatalf("got kind %d, want KindTool", ev.Kind)
	}
	if ev.Text != `{"a":1}!` {
		t.Fatalf("got text %q, want %q", ev.Text, `{"a":1}!`)
	}
}

func TestParseLineToolIgnoredWhenContentPresent(t *testing.T) {
	var tally UsageTally
	line := `data: {"choices":[{"delta":{"content":"text","tool_calls":[{"function":{"arguments":"args"}}]}}]}`
	ev := ParseLine(line, &tally)
	if ev.Kind != KindText || ev.Text != "text" {
		t.Fatalf("got kind %d text %q, want content text to win", ev.Kind, ev.Text)
	}
}

func TestParseLineUnparseable(t *testing.T) {
	var tally UsageTally
	ev := ParseLine("data: not json at all", &tally)
	if ev.Kind != KindRaw {
		t.Fatalf("got kind %d, want KindRaw", ev.Kind)
	}
	if ev.Raw != "not json at all" {
		t.Fatalf("got raw %q, want the stripped chunk", ev.Raw)
	}
}

func TestParseLineUsageOnlyChunkIsRaw(t *testing.T) {
	var tally UsageTally
	ev := ParseLine(`data: {"usage":{"prompt_tokens":10,"completion_tokens":5}}`, &tally)
	if ev.Kind != KindRaw {
		t.Fatalf("got kind %d, want KindRaw for usage-only chunk", ev.Kind)
	}
	if tally.PromptTokens != 10 || tally.CompletionTokens != 5 || tally.TotalTokens != 15 {
		t.Fatalf("tally = %+v, want {10 5 15}", tally)
	}
}

func TestUsageMergeNeverRegresses(t *testing.T) {
	var tally UsageTally

	ParseLine(`data: {"usage":{"prompt_tokens":10,"completion_tokens":2,"total_tokens":12}}`, &tally)
	if tally != (UsageTally{10, 2, 12}) {
		t.Fatalf("after first chunk: %+v", tally)
	}

	// Zeros and missing fields must not erase earlier counts.
	ParseLine(`data: {"usage":{"prompt_tokens":0,"completion_tokens":5}}`, &tally)
	if tally.PromptTokens != 10 || tally.CompletionTokens != 5 {
		t.Fatalf("after partial chunk: %+v", tally)
	}
	if tally.TotalTokens != 15 {
		t.Fatalf("total not recomputed: %+v", tally)
	}

	ParseLine(`data: {"usage":{}}`, &tally)
	if tally != (UsageTally{10, 5, 15}) {
		t.Fatalf("empty usage erased counts: %+v", tally)
	}
}

func TestUsageNestedUnderDeltaAndChoice(t *testing.T) {
	var tally UsageTally
	ParseLine(`data: {"choices":[{"delta":{"content":"x","usage":{"prompt_tokens":3}}}]}`, &tally)
	if tally.PromptTokens != 3 {
		t.Fatalf("delta-nested usage not merged: %+v", tally)
	}
	ParseLine(`data: {"choices":[{"usage":{"completion_tokens":4},"delta":{}}]}`, &tally)
	if tally.CompletionTokens != 4 || tally.TotalTokens != 7 {
		t.Fatalf("choice-nested usage not merged: %+v", tally)
	}
}

func TestUsageMergedOnContentChunk(t *testing.T) {
	var tally UsageTally
	ev := ParseLine(`data: {"choices":[{"delta":{"content":"hi"}}],"usage":{"prompt_tokens":7,"completion_tokens":1}}`, &tally)
	if ev.Kind != KindText || ev.Text != "hi" {
		t.Fatalf("content lost on usage chunk: %+v", ev)
	}
	if tally.PromptTokens != 7 || tally.CompletionTokens != 1 {
		t.Fatalf("usage lost on content chunk: %+v", tally)
	}
}

func TestParseLineNoChoices(t *testing.T) {
	var tally UsageTally
	ev := ParseLine(`data: {"id":"gen-1","object":"chat.completion.chunk"}`, &tally)
	if ev.Kind != KindRaw {
		t.Fatalf("got kind %d, want KindRaw", ev.Kind)
	}
}
