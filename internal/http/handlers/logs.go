package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"llmconsole/internal/models"
)

// LogHandler receives structured frontend logs and persists them alongside
// the server log stream.
type LogHandler struct {
	db *gorm.DB
}

// NewLogHandler constructs a LogHandler.
func NewLogHandler(db *gorm.DB) *LogHandler {
	return &LogHandler{db: db}
}

// frontendLogEntry is one log line sent by the browser.
type frontendLogEntry struct {
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta"`
	Context map[string]any `json:"context"`
}

// frontendLogsRequest is a batch of frontend log lines.
type frontendLogsRequest struct {
	Logs []frontendLogEntry `json:"logs"`
}

// frontendLevels maps frontend level names onto logrus levels; unknown levels
// fall back to info.
var frontendLevels = map[string]log.Level{
	"debug":    log.DebugLevel,
	"info":     log.InfoLevel,
	"warn":     log.WarnLevel,
	"error":    log.ErrorLevel,
	"critical": log.ErrorLevel,
}

// Receive ingests a batch of frontend logs: each entry is written to the
// server log and persisted as a FrontendLog row.
func (h *LogHandler) Receive(c *gin.Context) {
	var body frontendLogsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json", "error_code": "VALIDATION_ERROR"})
		return
	}

	reqID := requestID(c)
	rows := make([]models.FrontendLog, 0, len(body.Logs))
	for _, entry := range body.Logs {
		level, known := frontendLevels[entry.Level]
		if !known {
			level = log.InfoLevel
		}
		log.WithFields(log.Fields{
			"source":         "frontend",
			"request_id":     reqID,
			"frontend_level": entry.Level,
			"frontend_meta":  entry.Meta,
		}).Log(level, "[FRONTEND] "+entry.Message)

		meta, _ := json.Marshal(entry.Meta)
		context, _ := json.Marshal(entry.Context)
		rows = append(rows, models.FrontendLog{
			Level:     entry.Level,
			Message:   entry.Message,
			Meta:      datatypes.JSON(meta),
			Context:   datatypes.JSON(context),
			RequestID: reqID,
		})
	}

	if len(rows) > 0 {
		if errCreate := h.db.WithContext(c.Request.Context()).Create(&rows).Error; errCreate != nil {
			log.WithError(errCreate).Warn("failed to persist frontend logs")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"received":  len(body.Logs),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
