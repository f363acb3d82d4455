package upstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"llmconsole/internal/config"
)

func testClient(baseURL string) *Client {
	return NewClient(config.OpenRouter{
		APIKey:      "sk-test",
		BaseURL:     baseURL,
		HTTPReferer: "http://localhost:5173",
		XTitle:      "console-test",
	})
}

func TestConfigured(t *testing.T) {
	if testClient("http://x").Configured() != true {
		t.Fatal("client with key reports unconfigured")
	}
	empty := NewClient(config.OpenRouter{BaseURL: "http://x"})
	if empty.Configured() {
		t.Fatal("client without key reports configured")
	}
}

func TestStreamYieldsLines(t *testing.T) {
	var gotAuth, gotReferer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"choices\":[]}\n\ndata: [DONE]\n")
	}))
	defer server.Close()

	src, errStream := testClient(server.URL).Stream(context.Background(), ChatRequest{Model: "m"})
	if errStream != nil {
		t.Fatalf("stream: %v", errStream)
	}
	defer src.Close()

	if gotAuth != "Bearer sk-test" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotReferer != "http://localhost:5173" {
		t.Fatalf("referer = %q", gotReferer)
	}

	var lines []string
	for {
		line, errNext := src.Next()
		if errors.Is(errNext, io.EOF) {
			break
		}
		if errNext != nil {
			t.Fatalf("next: %v", errNext)
		}
		lines = append(lines, line)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3 (including the blank): %q", len(lines), lines)
	}
	if lines[0] != `data: {"choices":[]}` || lines[2] != "data: [DONE]" {
		t.Fatalf("lines = %q", lines)
	}
}

func TestStreamNonSuccessFailsBeforeLines(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":"rate limited"}`)
	}))
	defer server.Close()

	_, errStream := testClient(server.URL).Stream(context.Background(), ChatRequest{Model: "m"})
	var typed *Error
	if !errors.As(errStream, &typed) {
		t.Fatalf("got %v, want *Error", errStream)
	}
	if typed.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", typed.StatusCode)
	}
	if typed.Body != `{"error":"rate limited"}` {
		t.Fatalf("body = %q", typed.Body)
	}
}

func TestStreamCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	src, errStream := testClient(server.URL).Stream(ctx, ChatRequest{Model: "m"})
	if errStream != nil {
		t.Fatalf("stream: %v", errStream)
	}
	defer src.Close()

	cancel()
	if _, errNext := src.Next(); errNext == nil {
		t.Fatal("next succeeded after cancellation")
	}
}

func TestListModelsTolerantDecode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"data":[
			{"id":"openai/gpt-4o","name":"GPT-4o","context_length":128000,"pricing":{"prompt":"2.5","completion":10}},
			{"id":"thinker","features":{"reasoning":true},"pricing":{"prompt":"not a number"}},
			{"id":"","name":"nameless"}
		]}`)
	}))
	defer server.Close()

	fetched, errList := testClient(server.URL).ListModels(context.Background())
	if errList != nil {
		t.Fatalf("list: %v", errList)
	}
	if len(fetched) != 2 {
		t.Fatalf("got %d models, want 2 (empty id skipped)", len(fetched))
	}

	first := fetched[0]
	if first.OpenRouterID != "openai/gpt-4o" || first.Name != "GPT-4o" {
		t.Fatalf("first = %+v", first)
	}
	if first.PricingPrompt == nil || *first.PricingPrompt != 2.5 {
		t.Fatalf("string price not coerced: %v", first.PricingPrompt)
	}
	if first.PricingCompletion == nil || *first.PricingCompletion != 10 {
		t.Fatalf("numeric price lost: %v", first.PricingCompletion)
	}

	second := fetched[1]
	if second.Name != "thinker" {
		t.Fatalf("missing name should fall back to id: %+v", second)
	}
	if !second.IsReasoning {
		t.Fatal("features.reasoning not honored")
	}
	if second.PricingPrompt != nil {
		t.Fatal("unparseable price should stay nil")
	}
}

func TestListModelsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, errList := testClient(server.URL).ListModels(context.Background())
	var typed *Error
	if !errors.As(errList, &typed) || typed.StatusCode != http.StatusBadGateway {
		t.Fatalf("got %v, want *Error 502", errList)
	}
}
