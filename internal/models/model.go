package models

import "time"

// Model is a catalog entry mirrored from the upstream provider. Rows are
// refreshed wholesale by the sync operation; the local ID is preserved across
// re-sync (upsert keyed on OpenRouterID) so usage rows stay valid.
type Model struct {
	ID                string    `gorm:"type:varchar(36);primaryKey" json:"id"`               // Stable local UUID.
	OpenRouterID      string    `gorm:"type:text;uniqueIndex;not null" json:"openrouter_id"` // Upstream model identifier.
	Name              string    `gorm:"type:text;not null" json:"name"`                      // Display name.
	ContextLength     *int      `json:"context_length"`                                      // Context window limit, when published.
	PricingPrompt     *float64  `json:"pricing_prompt"`                                      // USD per million prompt tokens.
	PricingCompletion *float64  `json:"pricing_completion"`                                  // USD per million completion tokens.
	IsReasoning       bool      `gorm:"not null;default:false" json:"is_reasoning"`          // Reasoning-capability flag.
	CreatedAt         time.Time `gorm:"not null;autoCreateTime" json:"created_at"`           // First-seen timestamp.
}
