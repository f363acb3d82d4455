package models

import "time"

// Session types supported by the console.
const (
	// SessionTypeChat is a free-form chat conversation.
	SessionTypeChat = "chat"
	// SessionTypeCode is a code-assistant conversation.
	SessionTypeCode = "code"
	// SessionTypeDocuments is a document Q&A conversation.
	SessionTypeDocuments = "documents"
	// SessionTypePlayground is a scratch conversation.
	SessionTypePlayground = "playground"
)

// ValidSessionType reports whether t is one of the known session types.
func ValidSessionType(t string) bool {
	switch t {
	case SessionTypeChat, SessionTypeCode, SessionTypeDocuments, SessionTypePlayground:
		return true
	default:
		return false
	}
}

// Session is a conversation owning an ordered sequence of messages.
type Session struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`         // UUID primary key.
	SessionType string    `gorm:"type:text;not null;index" json:"session_type"`  // One of the SessionType constants.
	Title       *string   `gorm:"type:text" json:"title"`                        // Optional display title.
	ProfileID   *uint64   `gorm:"index" json:"profile_id"`                       // Optional default profile.
	Profile     *Profile  `gorm:"constraint:OnDelete:SET NULL" json:"-"`         // Referenced profile, never embedded in responses.
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`     // Creation timestamp.
}
