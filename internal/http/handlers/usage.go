package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"llmconsole/internal/store"
)

// UsageHandler handles the token accounting endpoints.
type UsageHandler struct {
	usage    *store.Usage
	sessions *store.Sessions
}

// NewUsageHandler constructs a UsageHandler.
func NewUsageHandler(usage *store.Usage, sessions *store.Sessions) *UsageHandler {
	return &UsageHandler{usage: usage, sessions: sessions}
}

// recordUsageRequest defines the request body for manual usage records.
type recordUsageRequest struct {
	SessionID        string  `json:"session_id"`
	ModelID          *string `json:"model_id"`
	ProfileID        *uint64 `json:"profile_id"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
}

// Record writes one usage row outside the streaming path, for clients that
// meter non-streamed calls themselves.
func (h *UsageHandler) Record(c *gin.Context) {
	var body recordUsageRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json", "error_code": "VALIDATION_ERROR"})
		return
	}
	if body.PromptTokens < 0 || body.CompletionTokens < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token counts must be non-negative", "error_code": "VALIDATION_ERROR"})
		return
	}
	if _, errGet := h.sessions.Get(c.Request.Context(), body.SessionID); errGet != nil {
		writeError(c, errGet)
		return
	}

	id, errRecord := h.usage.Record(c.Request.Context(), body.SessionID, body.ModelID, body.ProfileID, body.PromptTokens, body.CompletionTokens)
	if errRecord != nil {
		writeError(c, errRecord)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// BySession returns a session's ledger entries.
func (h *UsageHandler) BySession(c *gin.Context) {
	id := c.Param("id")
	if _, errGet := h.sessions.Get(c.Request.Context(), id); errGet != nil {
		writeError(c, errGet)
		return
	}
	rows, errList := h.usage.ListBySession(c.Request.Context(), id)
	if errList != nil {
		writeError(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"usage": rows})
}

// ByModel returns the per-model aggregate across all sessions.
func (h *UsageHandler) ByModel(c *gin.Context) {
	rows, errAgg := h.usage.AggregateByModel(c.Request.Context())
	if errAgg != nil {
		writeError(c, errAgg)
		return
	}
	c.JSON(http.StatusOK, gin.H{"usage": rows})
}
