package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"llmconsole/internal/apierr"
	"llmconsole/internal/resolve"
	"llmconsole/internal/stream"
)

// StreamHandler relays chat completions to SSE clients.
type StreamHandler struct {
	resolver     *resolve.Resolver
	orchestrator *stream.Orchestrator
}

// NewStreamHandler constructs a StreamHandler.
func NewStreamHandler(resolver *resolve.Resolver, orchestrator *stream.Orchestrator) *StreamHandler {
	return &StreamHandler{resolver: resolver, orchestrator: orchestrator}
}

// Run streams one chat completion turn over SSE. EventSource clients cannot
// read non-2xx responses, so resolution failures are delivered as SSE error
// events on an already-open 200 stream.
func (h *StreamHandler) Run(c *gin.Context) {
	req := resolve.Request{
		SessionID: c.Query("session_id"),
		ModelID:   c.Query("model_id"),
	}
	if req.SessionID == "" || req.ModelID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id and model_id are required", "error_code": "VALIDATION_ERROR"})
		return
	}
	if raw := c.Query("temperature"); raw != "" {
		v, errParse := strconv.ParseFloat(raw, 64)
		if errParse != nil || v < 0 || v > 2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "temperature must be between 0 and 2", "error_code": "VALIDATION_ERROR"})
			return
		}
		req.Temperature = &v
	}
	if raw := c.Query("max_tokens"); raw != "" {
		v, errParse := strconv.Atoi(raw)
		if errParse != nil || v < 1 || v > 32768 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "max_tokens must be between 1 and 32768", "error_code": "VALIDATION_ERROR"})
			return
		}
		req.MaxTokens = &v
	}
	if raw := c.Query("profile_id"); raw != "" {
		v, errParse := strconv.ParseUint(raw, 10, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile_id", "error_code": "VALIDATION_ERROR"})
			return
		}
		req.ProfileID = &v
	}

	stream.SetHeaders(c.Writer)
	emit, errEmitter := stream.NewEmitter(c.Writer)
	if errEmitter != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported", "error_code": "INTERNAL_ERROR"})
		return
	}

	resolved, errResolve := h.resolver.Resolve(c.Request.Context(), req)
	if errResolve != nil {
		if typed, ok := apierr.As(errResolve); ok {
			stream.EmitPreflightError(emit, typed.Status, typed.Code, typed.Message, requestID(c))
			return
		}
		stream.EmitPreflightError(emit, http.StatusInternalServerError, apierr.CodeInternal, "failed to resolve stream parameters", requestID(c))
		return
	}

	h.orchestrator.Run(c.Request.Context(), stream.Params{
		SessionID: req.SessionID,
		Request:   resolved.Request,
		ModelID:   resolved.CatalogModelID,
		ProfileID: resolved.ProfileID,
		RequestID: requestID(c),
		StartData: map[string]any{"session_id": req.SessionID},
	}, emit)
}
