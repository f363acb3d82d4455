package models

import "time"

// Profile parameter bounds and defaults.
const (
	// DefaultTemperature is used when neither request, session nor profile set one.
	DefaultTemperature = 0.7
	// DefaultMaxTokens is used when neither request, session nor profile set one.
	DefaultMaxTokens = 2048
	// MinTemperature and MaxTemperature bound the sampling temperature.
	MinTemperature = 0.0
	MaxTemperature = 2.0
	// MinMaxTokens and MaxMaxTokens bound the completion token budget.
	MinMaxTokens = 1
	MaxMaxTokens = 32768
)

// Profile is a named set of generation defaults. Profiles are referenced,
// never embedded, by sessions and by individual streaming requests.
type Profile struct {
	ID               uint64    `gorm:"primaryKey;autoIncrement" json:"id"`        // Primary key.
	Name             string    `gorm:"type:varchar(120);not null" json:"name"`    // Display name.
	SystemPrompt     *string   `gorm:"type:text" json:"system_prompt"`            // Optional system prompt injected ahead of history.
	Temperature      float64   `gorm:"not null;default:0.7" json:"temperature"`   // Sampling temperature, 0.0-2.0.
	MaxTokens        int       `gorm:"not null;default:2048" json:"max_tokens"`   // Completion token budget, 1-32768.
	OpenRouterPreset *string   `gorm:"type:text" json:"openrouter_preset"`        // Optional provider-side routing preset tag.
	CreatedAt        time.Time `gorm:"not null;autoCreateTime" json:"created_at"` // Creation timestamp.
}
