package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"llmconsole/internal/models"
)

// tokensPerPriceUnit converts catalog prices, published in USD per million
// tokens, into per-token cost.
const tokensPerPriceUnit = 1_000_000

// Usage is the append-only ledger of per-turn token accounting.
type Usage struct {
	db *gorm.DB
}

// NewUsage constructs a Usage ledger.
func NewUsage(db *gorm.DB) *Usage {
	return &Usage{db: db}
}

// Record writes one usage row for a completed turn and returns its id. Cost
// is computed from the catalog pricing of the referenced model; an unknown or
// unpriced model costs zero rather than failing the turn.
func (u *Usage) Record(ctx context.Context, sessionID string, modelID *string, profileID *uint64, promptTokens, completionTokens int64) (string, error) {
	var cost float64
	if modelID != nil {
		var m models.Model
		errTake := u.db.WithContext(ctx).Where("id = ?", *modelID).Take(&m).Error
		switch {
		case errTake == nil:
			if m.PricingPrompt != nil {
				cost += float64(promptTokens) * *m.PricingPrompt / tokensPerPriceUnit
			}
			if m.PricingCompletion != nil {
				cost += float64(completionTokens) * *m.PricingCompletion / tokensPerPriceUnit
			}
		case errors.Is(errTake, gorm.ErrRecordNotFound):
			// Model not in the local catalog; the row still records tokens.
		default:
			return "", fmt.Errorf("store: price usage: %w", errTake)
		}
	}

	row := models.UsageLog{
		ID:               uuid.NewString(),
		SessionID:        sessionID,
		ProfileID:        profileID,
		ModelID:          modelID,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		CostUSD:          cost,
	}
	if errCreate := u.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		return "", fmt.Errorf("store: record usage: %w", errCreate)
	}
	return row.ID, nil
}

// SessionUsageRow is one ledger entry joined with its model's display fields.
type SessionUsageRow struct {
	ID               string    `json:"id"`
	SessionID        string    `json:"session_id"`
	ModelID          *string   `json:"model_id"`
	ModelName        *string   `json:"model_name"`
	OpenRouterID     *string   `json:"openrouter_id"`
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
	TotalTokens      int64     `json:"total_tokens"`
	CostUSD          float64   `json:"cost_usd"`
	CreatedAt        time.Time `json:"created_at"`
}

// ListBySession returns a session's ledger entries, oldest first, with model
// names resolved where the model is still in the catalog.
func (u *Usage) ListBySession(ctx context.Context, sessionID string) ([]SessionUsageRow, error) {
	var rows []SessionUsageRow
	errFind := u.db.WithContext(ctx).Model(&models.UsageLog{}).
		Select("usage_logs.id, usage_logs.session_id, usage_logs.model_id, models.name AS model_name, models.open_router_id AS open_router_id, usage_logs.prompt_tokens, usage_logs.completion_tokens, usage_logs.total_tokens, usage_logs.cost_usd, usage_logs.created_at").
		Joins("LEFT JOIN models ON models.id = usage_logs.model_id").
		Where("usage_logs.session_id = ?", sessionID).
		Order("usage_logs.created_at ASC").
		Scan(&rows).Error
	if errFind != nil {
		return nil, fmt.Errorf("store: list usage: %w", errFind)
	}
	return rows, nil
}

// ModelUsageSummary aggregates the ledger per model.
type ModelUsageSummary struct {
	ModelID          *string `json:"model_id"`
	ModelName        *string `json:"model_name"`
	Turns            int64   `json:"turns"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// AggregateByModel sums the ledger per model across all sessions, most
// expensive first.
func (u *Usage) AggregateByModel(ctx context.Context) ([]ModelUsageSummary, error) {
	var rows []ModelUsageSummary
	errScan := u.db.WithContext(ctx).Model(&models.UsageLog{}).
		Select("usage_logs.model_id, models.name AS model_name, COUNT(*) AS turns, SUM(usage_logs.prompt_tokens) AS prompt_tokens, SUM(usage_logs.completion_tokens) AS completion_tokens, SUM(usage_logs.total_tokens) AS total_tokens, SUM(usage_logs.cost_usd) AS cost_usd").
		Joins("LEFT JOIN models ON models.id = usage_logs.model_id").
		Group("usage_logs.model_id, models.name").
		Order("cost_usd DESC").
		Scan(&rows).Error
	if errScan != nil {
		return nil, fmt.Errorf("store: aggregate usage: %w", errScan)
	}
	return rows, nil
}
