package models

import "time"

// UsageLog records token counts and computed cost for one completed streaming
// turn. Rows are written once and never updated.
type UsageLog struct {
	ID               string    `gorm:"type:varchar(36);primaryKey" json:"id"`                                                        // UUID primary key.
	SessionID        string    `gorm:"type:varchar(36);not null;index:idx_usage_logs_session_created,priority:1" json:"session_id"` // Owning session.
	Session          *Session  `gorm:"constraint:OnDelete:CASCADE" json:"-"`                                                         // Deleting a session deletes its usage rows.
	ProfileID        *uint64   `gorm:"index" json:"profile_id"`                                                                      // Profile in effect, when any.
	ModelID          *string   `gorm:"type:varchar(36);index:idx_usage_logs_model_created,priority:1" json:"model_id"`               // Catalog model, when known.
	PromptTokens     int64     `gorm:"not null;default:0" json:"prompt_tokens"`                                                      // Prompt token count.
	CompletionTokens int64     `gorm:"not null;default:0" json:"completion_tokens"`                                                  // Completion token count.
	TotalTokens      int64     `gorm:"not null;default:0" json:"total_tokens"`                                                       // Recomputed prompt+completion.
	CostUSD          float64   `gorm:"not null;default:0" json:"cost_usd"`                                                           // Computed cost in USD.
	CreatedAt        time.Time `gorm:"not null;autoCreateTime;index:idx_usage_logs_session_created,priority:2;index:idx_usage_logs_model_created,priority:2" json:"created_at"` // Creation timestamp.
}
