package models

import (
	"time"

	"gorm.io/datatypes"
)

// FrontendLog stores one structured log entry received from the browser
// frontend, kept for centralized debugging alongside server logs.
type FrontendLog struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement" json:"id"`        // Primary key.
	Level     string         `gorm:"type:text;not null;index" json:"level"`     // Frontend level: debug, info, warn, error, critical.
	Message   string         `gorm:"type:text;not null" json:"message"`         // Log message.
	Meta      datatypes.JSON `gorm:"type:jsonb" json:"meta"`                    // Additional metadata JSON.
	Context   datatypes.JSON `gorm:"type:jsonb" json:"context"`                 // Context JSON (session, route, timestamp).
	RequestID string         `gorm:"type:text" json:"request_id"`               // Server request correlation id.
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"` // Receipt timestamp.
}
