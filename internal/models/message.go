package models

import "time"

// Message roles recognized by the console and the upstream API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ValidRole reports whether r is one of the known message roles.
func ValidRole(r string) bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	default:
		return false
	}
}

// Message is a single role-tagged turn within a session. Rows are immutable
// once written; ordering within a session is by creation order.
type Message struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`                                           // UUID primary key.
	SessionID string    `gorm:"type:varchar(36);not null;index:idx_messages_session_created" json:"session_id"`  // Owning session.
	Session   *Session  `gorm:"constraint:OnDelete:CASCADE" json:"-"`                                            // Deleting a session deletes its messages.
	Role      string    `gorm:"type:text;not null" json:"role"`                                                  // One of the Role constants.
	Content   string    `gorm:"type:text;not null" json:"content"`                                               // Non-empty message text.
	CreatedAt time.Time `gorm:"not null;autoCreateTime;index:idx_messages_session_created" json:"created_at"`    // Creation timestamp.
}
