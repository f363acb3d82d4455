package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"llmconsole/internal/store"
)

// MessageHandler handles direct message writes.
type MessageHandler struct {
	messages *store.Messages
}

// NewMessageHandler constructs a MessageHandler.
func NewMessageHandler(messages *store.Messages) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// createMessageRequest defines the request body for appending a message.
type createMessageRequest struct {
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
}

// Create appends one message to a session.
func (h *MessageHandler) Create(c *gin.Context) {
	var body createMessageRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json", "error_code": "VALIDATION_ERROR"})
		return
	}

	id, errAppend := h.messages.Append(c.Request.Context(), body.SessionID, body.Role, body.Content)
	if errAppend != nil {
		writeError(c, errAppend)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "session_id": body.SessionID})
}
