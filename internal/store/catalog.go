package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"llmconsole/internal/apierr"
	"llmconsole/internal/cache"
	"llmconsole/internal/models"
	"llmconsole/internal/upstream"
)

const modelListKeyPrefix = "models_"

// ModelFilter narrows the catalog listing. Nil fields match everything.
type ModelFilter struct {
	Reasoning  *bool    // Only reasoning-capable (or only non-reasoning) models.
	MaxPrice   *float64 // Upper bound on prompt price, USD per million tokens.
	MinContext *int     // Lower bound on the context window.
}

// key builds a deterministic cache key for the filter combination.
func (f ModelFilter) key() string {
	var b strings.Builder
	b.WriteString(modelListKeyPrefix)
	if f.Reasoning != nil {
		fmt.Fprintf(&b, "r%t_", *f.Reasoning)
	}
	if f.MaxPrice != nil {
		fmt.Fprintf(&b, "p%g_", *f.MaxPrice)
	}
	if f.MinContext != nil {
		fmt.Fprintf(&b, "c%d_", *f.MinContext)
	}
	return b.String()
}

// Catalog is the local mirror of the upstream model listing.
type Catalog struct {
	db    *gorm.DB
	cache *cache.TTLCache
}

// NewCatalog constructs a Catalog store.
func NewCatalog(db *gorm.DB, c *cache.TTLCache) *Catalog {
	return &Catalog{db: db, cache: c}
}

// Sync upserts the fetched listing into the local catalog, keyed on the
// upstream identifier so local ids (and the usage rows referencing them)
// survive a re-sync. Returns the number of rows written.
func (c *Catalog) Sync(ctx context.Context, fetched []upstream.CatalogModel) (int, error) {
	written := 0
	errTx := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range fetched {
			var existing models.Model
			errTake := tx.Where("open_router_id = ?", m.OpenRouterID).Take(&existing).Error
			switch {
			case errTake == nil:
				errUpdate := tx.Model(&models.Model{}).Where("id = ?", existing.ID).Updates(map[string]any{
					"name":               m.Name,
					"context_length":     m.ContextLength,
					"pricing_prompt":     m.PricingPrompt,
					"pricing_completion": m.PricingCompletion,
					"is_reasoning":       m.IsReasoning,
				}).Error
				if errUpdate != nil {
					return errUpdate
				}
			case errors.Is(errTake, gorm.ErrRecordNotFound):
				row := models.Model{
					ID:                uuid.NewString(),
					OpenRouterID:      m.OpenRouterID,
					Name:              m.Name,
					ContextLength:     m.ContextLength,
					PricingPrompt:     m.PricingPrompt,
					PricingCompletion: m.PricingCompletion,
					IsReasoning:       m.IsReasoning,
				}
				if errCreate := tx.Create(&row).Error; errCreate != nil {
					return errCreate
				}
			default:
				return errTake
			}
			written++
		}
		return nil
	})
	if errTx != nil {
		return 0, fmt.Errorf("store: sync models: %w", errTx)
	}
	c.cache.InvalidatePrefix(modelListKeyPrefix)
	return written, nil
}

// List returns catalog entries matching the filter, ordered by name.
func (c *Catalog) List(ctx context.Context, f ModelFilter) ([]models.Model, error) {
	key := f.key()
	if cached, ok := c.cache.Get(key); ok {
		return cached.([]models.Model), nil
	}

	query := c.db.WithContext(ctx).Model(&models.Model{})
	if f.Reasoning != nil {
		query = query.Where("is_reasoning = ?", *f.Reasoning)
	}
	if f.MaxPrice != nil {
		query = query.Where("pricing_prompt IS NOT NULL AND pricing_prompt <= ?", *f.MaxPrice)
	}
	if f.MinContext != nil {
		query = query.Where("context_length IS NOT NULL AND context_length >= ?", *f.MinContext)
	}

	var rows []models.Model
	if errFind := query.Order("name ASC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("store: list models: %w", errFind)
	}
	c.cache.Set(key, rows)
	return rows, nil
}

// GetByAnyID resolves a catalog entry by its local id or its upstream
// identifier; clients refer to models both ways.
func (c *Catalog) GetByAnyID(ctx context.Context, id string) (*models.Model, error) {
	var row models.Model
	errTake := c.db.WithContext(ctx).Where("id = ? OR open_router_id = ?", id, id).Take(&row).Error
	if errTake != nil {
		if errors.Is(errTake, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(apierr.CodeModelNotFound, "model", id)
		}
		return nil, fmt.Errorf("store: get model: %w", errTake)
	}
	return &row, nil
}

// Pricing returns a model's prompt and completion prices in USD per million
// tokens; missing prices come back as zero so callers charge nothing for
// unpriced models.
func (c *Catalog) Pricing(ctx context.Context, modelID string) (prompt, completion float64, err error) {
	row, errGet := c.GetByAnyID(ctx, modelID)
	if errGet != nil {
		return 0, 0, errGet
	}
	if row.PricingPrompt != nil {
		prompt = *row.PricingPrompt
	}
	if row.PricingCompletion != nil {
		completion = *row.PricingCompletion
	}
	return prompt, completion, nil
}
