package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"llmconsole/internal/apierr"
	"llmconsole/internal/cache"
	"llmconsole/internal/models"
)

// Cache keys for the profile cache.
const (
	profileListKey   = "profiles_all"
	profileKeyPrefix = "profile_"
)

// ProfileInput carries the writable profile fields.
type ProfileInput struct {
	Name             string
	SystemPrompt     *string
	Temperature      *float64
	MaxTokens        *int
	OpenRouterPreset *string
}

// validate checks bounds and applies defaults.
func (in *ProfileInput) validate() (float64, int, error) {
	if strings.TrimSpace(in.Name) == "" {
		return 0, 0, apierr.Validation("name must not be empty")
	}
	if len(in.Name) > 120 {
		return 0, 0, apierr.Validation("name must be at most 120 characters")
	}
	temperature := models.DefaultTemperature
	if in.Temperature != nil {
		temperature = *in.Temperature
	}
	if temperature < models.MinTemperature || temperature > models.MaxTemperature {
		return 0, 0, apierr.Validation(fmt.Sprintf("temperature must be between %g and %g", models.MinTemperature, models.MaxTemperature))
	}
	maxTokens := models.DefaultMaxTokens
	if in.MaxTokens != nil {
		maxTokens = *in.MaxTokens
	}
	if maxTokens < models.MinMaxTokens || maxTokens > models.MaxMaxTokens {
		return 0, 0, apierr.Validation(fmt.Sprintf("max_tokens must be between %d and %d", models.MinMaxTokens, models.MaxMaxTokens))
	}
	return temperature, maxTokens, nil
}

// Profiles provides CRUD over generation profiles with a read-through TTL
// cache; every write path invalidates the affected keys.
type Profiles struct {
	db    *gorm.DB
	cache *cache.TTLCache
}

// NewProfiles constructs a Profiles store.
func NewProfiles(db *gorm.DB, c *cache.TTLCache) *Profiles {
	return &Profiles{db: db, cache: c}
}

// Create inserts a new profile.
func (p *Profiles) Create(ctx context.Context, in ProfileInput) (*models.Profile, error) {
	temperature, maxTokens, errValidate := in.validate()
	if errValidate != nil {
		return nil, errValidate
	}

	row := models.Profile{
		Name:             in.Name,
		SystemPrompt:     in.SystemPrompt,
		Temperature:      temperature,
		MaxTokens:        maxTokens,
		OpenRouterPreset: in.OpenRouterPreset,
	}
	if errCreate := p.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		return nil, fmt.Errorf("store: create profile: %w", errCreate)
	}
	p.cache.Invalidate(profileListKey)
	return &row, nil
}

// Get loads one profile, consulting the cache first.
func (p *Profiles) Get(ctx context.Context, id uint64) (*models.Profile, error) {
	key := fmt.Sprintf("%s%d", profileKeyPrefix, id)
	if cached, ok := p.cache.Get(key); ok {
		row := cached.(models.Profile)
		return &row, nil
	}

	var row models.Profile
	errTake := p.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errTake != nil {
		if errors.Is(errTake, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(apierr.CodeProfileNotFound, "profile", fmt.Sprint(id))
		}
		return nil, fmt.Errorf("store: get profile: %w", errTake)
	}
	p.cache.Set(key, row)
	return &row, nil
}

// List returns all profiles, newest first, consulting the cache first.
func (p *Profiles) List(ctx context.Context) ([]models.Profile, error) {
	if cached, ok := p.cache.Get(profileListKey); ok {
		return cached.([]models.Profile), nil
	}

	var rows []models.Profile
	if errFind := p.db.WithContext(ctx).Order("id DESC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("store: list profiles: %w", errFind)
	}
	p.cache.Set(profileListKey, rows)
	return rows, nil
}

// Update rewrites a profile's fields.
func (p *Profiles) Update(ctx context.Context, id uint64, in ProfileInput) (*models.Profile, error) {
	temperature, maxTokens, errValidate := in.validate()
	if errValidate != nil {
		return nil, errValidate
	}

	result := p.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Updates(map[string]any{
		"name":               in.Name,
		"system_prompt":      in.SystemPrompt,
		"temperature":        temperature,
		"max_tokens":         maxTokens,
		"open_router_preset": in.OpenRouterPreset,
	})
	if result.Error != nil {
		return nil, fmt.Errorf("store: update profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apierr.NotFound(apierr.CodeProfileNotFound, "profile", fmt.Sprint(id))
	}

	p.cache.Invalidate(fmt.Sprintf("%s%d", profileKeyPrefix, id))
	p.cache.Invalidate(profileListKey)

	var row models.Profile
	if errTake := p.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; errTake != nil {
		return nil, fmt.Errorf("store: reload profile: %w", errTake)
	}
	return &row, nil
}

// Delete removes a profile. Sessions referencing it keep running with their
// profile reference nulled out.
func (p *Profiles) Delete(ctx context.Context, id uint64) error {
	errTx := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&models.Profile{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apierr.NotFound(apierr.CodeProfileNotFound, "profile", fmt.Sprint(id))
		}
		return tx.Model(&models.Session{}).Where("profile_id = ?", id).Update("profile_id", nil).Error
	})
	if errTx != nil {
		if apierr.IsNotFound(errTx) {
			return errTx
		}
		return fmt.Errorf("store: delete profile: %w", errTx)
	}

	p.cache.Invalidate(fmt.Sprintf("%s%d", profileKeyPrefix, id))
	p.cache.Invalidate(profileListKey)
	return nil
}
