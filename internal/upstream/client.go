// Package upstream talks to the OpenRouter API: a chunked streaming chat
// completions call that yields raw protocol lines, and the model catalog
// listing used by the sync operation. The transport never interprets line
// content; parsing belongs to the stream package.
package upstream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"llmconsole/internal/config"
)

// maxLineBytes bounds a single streamed line. Provider chunks are small, but
// tool-call argument fragments can carry whole JSON documents.
const maxLineBytes = 1 << 20

// Error is a typed upstream failure carrying the provider's status code and
// response body text.
type Error struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("upstream: status %d: %s", e.StatusCode, e.Body)
}

// Message is one role/content pair sent to the completions endpoint.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest describes one streaming completion call.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Client is an OpenRouter API client.
type Client struct {
	baseURL     string
	apiKey      string
	httpReferer string
	xTitle      string
	httpClient  *http.Client
}

// NewClient constructs a Client from the OpenRouter configuration. The HTTP
// client carries no timeout: streams are unbounded and cancellation arrives
// through the request context.
func NewClient(cfg config.OpenRouter) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		httpReferer: cfg.HTTPReferer,
		xTitle:      cfg.XTitle,
		httpClient:  &http.Client{},
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.apiKey) != ""
}

// setHeaders applies credential and attribution headers.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if c.httpReferer != "" {
		req.Header.Set("HTTP-Referer", c.httpReferer)
	}
	if c.xTitle != "" {
		req.Header.Set("X-Title", c.xTitle)
	}
}

// chatPayload is the completions request body.
type chatPayload struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// Stream opens one chunked streaming POST to the completions endpoint and
// returns a lazy, single-pass line sequence. A non-2xx status read before any
// body is streamed fails with *Error and yields no lines. The caller must
// Close the stream on every exit path.
func (c *Client) Stream(ctx context.Context, req ChatRequest) (*LineStream, error) {
	payload := chatPayload{
		Model:       req.Model,
		Messages:    req.Messages,
		Stream:      true,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	body, errMarshal := json.Marshal(payload)
	if errMarshal != nil {
		return nil, fmt.Errorf("upstream: marshal request: %w", errMarshal)
	}

	httpReq, errReq := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if errReq != nil {
		return nil, fmt.Errorf("upstream: build request: %w", errReq)
	}
	c.setHeaders(httpReq)

	log.WithFields(log.Fields{
		"endpoint":      "/chat/completions",
		"model":         req.Model,
		"message_count": len(req.Messages),
	}).Info("streaming chat completions to OpenRouter")

	resp, errDo := c.httpClient.Do(httpReq)
	if errDo != nil {
		return nil, fmt.Errorf("upstream: connect: %w", errDo)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxLineBytes))
		_ = resp.Body.Close()
		log.WithFields(log.Fields{
			"endpoint":    "/chat/completions",
			"status_code": resp.StatusCode,
		}).Warn("OpenRouter stream returned non-2xx")
		return nil, &Error{StatusCode: resp.StatusCode, Body: string(text)}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &LineStream{body: resp.Body, scanner: scanner}, nil
}

// LineStream is a lazy, in-order, single-pass sequence of raw response
// lines. It is not restartable; the consumer drains it until exhaustion or
// termination.
type LineStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	closed  bool
}

// Next returns the next raw line. It returns io.EOF when the upstream stream
// is exhausted and any other error when the connection terminates abnormally
// mid-stream.
func (s *LineStream) Next() (string, error) {
	if s.closed {
		return "", io.EOF
	}
	if s.scanner.Scan() {
		return s.scanner.Text(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// Close releases the underlying connection. Safe to call more than once.
func (s *LineStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}

// CatalogModel is one entry mapped from the upstream /models listing.
type CatalogModel struct {
	OpenRouterID      string
	Name              string
	ContextLength     *int
	PricingPrompt     *float64
	PricingCompletion *float64
	IsReasoning       bool
}

// modelsEnvelope mirrors the upstream /models response shape loosely; field
// values vary across providers so everything is decoded tolerantly.
type modelsEnvelope struct {
	Data []struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		ContextLength *int   `json:"context_length"`
		Pricing       struct {
			Prompt     any `json:"prompt"`
			Completion any `json:"completion"`
		} `json:"pricing"`
		Features struct {
			Reasoning bool `json:"reasoning"`
		} `json:"features"`
		IsReasoning bool `json:"is_reasoning"`
	} `json:"data"`
}

// ListModels fetches the upstream model catalog.
func (c *Client) ListModels(ctx context.Context) ([]CatalogModel, error) {
	httpReq, errReq := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if errReq != nil {
		return nil, fmt.Errorf("upstream: build request: %w", errReq)
	}
	c.setHeaders(httpReq)

	log.WithField("endpoint", "/models").Info("requesting OpenRouter models")

	resp, errDo := c.httpClient.Do(httpReq)
	if errDo != nil {
		return nil, fmt.Errorf("upstream: connect: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxLineBytes))
		log.WithFields(log.Fields{
			"endpoint":    "/models",
			"status_code": resp.StatusCode,
		}).Warn("OpenRouter /models returned non-200")
		return nil, &Error{StatusCode: resp.StatusCode, Body: string(text)}
	}

	var envelope modelsEnvelope
	if errDecode := json.NewDecoder(resp.Body).Decode(&envelope); errDecode != nil {
		return nil, fmt.Errorf("upstream: decode models: %w", errDecode)
	}

	out := make([]CatalogModel, 0, len(envelope.Data))
	for _, m := range envelope.Data {
		if strings.TrimSpace(m.ID) == "" {
			continue
		}
		name := m.Name
		if name == "" {
			name = m.ID
		}
		out = append(out, CatalogModel{
			OpenRouterID:      m.ID,
			Name:              name,
			ContextLength:     m.ContextLength,
			PricingPrompt:     toFloat(m.Pricing.Prompt),
			PricingCompletion: toFloat(m.Pricing.Completion),
			IsReasoning:       m.Features.Reasoning || m.IsReasoning,
		})
	}
	return out, nil
}

// toFloat coerces upstream pricing values, published as strings or numbers,
// into floats. Unparseable values map to nil rather than zero so unknown
// pricing stays distinguishable from free.
func toFloat(v any) *float64 {
	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		return &val
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil
		}
		return &parsed
	default:
		return nil
	}
}
