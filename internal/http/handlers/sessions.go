package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"llmconsole/internal/store"
)

// SessionHandler handles session CRUD endpoints.
type SessionHandler struct {
	sessions *store.Sessions
	messages *store.Messages
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(sessions *store.Sessions, messages *store.Messages) *SessionHandler {
	return &SessionHandler{sessions: sessions, messages: messages}
}

// createSessionRequest defines the request body for session creation.
type createSessionRequest struct {
	SessionType string  `json:"session_type"`
	Title       *string `json:"title"`
	ProfileID   *uint64 `json:"profile_id"`
}

// Create opens a new session.
func (h *SessionHandler) Create(c *gin.Context) {
	var body createSessionRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json", "error_code": "VALIDATION_ERROR"})
		return
	}
	if body.SessionType == "" {
		body.SessionType = "chat"
	}

	row, errCreate := h.sessions.Create(c.Request.Context(), body.SessionType, body.Title, body.ProfileID)
	if errCreate != nil {
		writeError(c, errCreate)
		return
	}
	c.JSON(http.StatusCreated, row)
}

// Get returns one session.
func (h *SessionHandler) Get(c *gin.Context) {
	row, errGet := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if errGet != nil {
		writeError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, row)
}

// List returns the most recent sessions.
func (h *SessionHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	rows, errList := h.sessions.List(c.Request.Context(), limit)
	if errList != nil {
		writeError(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": rows})
}

// updateSessionRequest defines the request body for partial session updates.
// A present-but-null profile_id clears the session's profile.
type updateSessionRequest struct {
	Title     *string              `json:"title"`
	ProfileID jsonOptional[uint64] `json:"profile_id"`
}

// Update applies a partial update.
func (h *SessionHandler) Update(c *gin.Context) {
	var body updateSessionRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json", "error_code": "VALIDATION_ERROR"})
		return
	}

	row, errUpdate := h.sessions.Update(c.Request.Context(), c.Param("id"), store.SessionUpdate{
		Title:      body.Title,
		ProfileID:  body.ProfileID.Value,
		SetProfile: body.ProfileID.Present,
	})
	if errUpdate != nil {
		writeError(c, errUpdate)
		return
	}
	c.JSON(http.StatusOK, row)
}

// Delete removes a session with its messages and usage rows.
func (h *SessionHandler) Delete(c *gin.Context) {
	if errDelete := h.sessions.Delete(c.Request.Context(), c.Param("id")); errDelete != nil {
		writeError(c, errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Messages returns a session's message log in creation order.
func (h *SessionHandler) Messages(c *gin.Context) {
	id := c.Param("id")
	if _, errGet := h.sessions.Get(c.Request.Context(), id); errGet != nil {
		writeError(c, errGet)
		return
	}
	rows, errList := h.messages.List(c.Request.Context(), id)
	if errList != nil {
		writeError(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": rows})
}
