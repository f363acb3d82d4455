package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"llmconsole/internal/store"
)

// SearchHandler handles full-text message search.
type SearchHandler struct {
	search *store.Search
}

// NewSearchHandler constructs a SearchHandler.
func NewSearchHandler(search *store.Search) *SearchHandler {
	return &SearchHandler{search: search}
}

// Run executes a search. Query parameters: q (required), session_type, since,
// until (RFC 3339), limit.
func (h *SearchHandler) Run(c *gin.Context) {
	query := store.SearchQuery{
		Text:        c.Query("q"),
		SessionType: c.Query("session_type"),
	}
	if raw := c.Query("since"); raw != "" {
		t, errParse := time.Parse(time.RFC3339, raw)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since timestamp", "error_code": "VALIDATION_ERROR"})
			return
		}
		query.Since = &t
	}
	if raw := c.Query("until"); raw != "" {
		t, errParse := time.Parse(time.RFC3339, raw)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid until timestamp", "error_code": "VALIDATION_ERROR"})
			return
		}
		query.Until = &t
	}
	if raw := c.Query("limit"); raw != "" {
		limit, errParse := strconv.Atoi(raw)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit", "error_code": "VALIDATION_ERROR"})
			return
		}
		query.Limit = limit
	}

	hits, errRun := h.search.Run(c.Request.Context(), query)
	if errRun != nil {
		writeError(c, errRun)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": hits, "count": len(hits)})
}
