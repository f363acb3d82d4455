// Package store implements the persistence layer over GORM: session,
// message, profile and model catalog stores, the usage ledger, and full-text
// message search.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"llmconsole/internal/apierr"
	"llmconsole/internal/models"
)

// Sessions provides CRUD over conversations.
type Sessions struct {
	db *gorm.DB
}

// NewSessions constructs a Sessions store.
func NewSessions(db *gorm.DB) *Sessions {
	return &Sessions{db: db}
}

// Create inserts a new session. The profile reference, when given, must
// exist.
func (s *Sessions) Create(ctx context.Context, sessionType string, title *string, profileID *uint64) (*models.Session, error) {
	if !models.ValidSessionType(sessionType) {
		return nil, apierr.Validation(fmt.Sprintf("invalid session_type %q", sessionType))
	}
	if profileID != nil {
		var count int64
		if errCount := s.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", *profileID).Count(&count).Error; errCount != nil {
			return nil, fmt.Errorf("store: check profile: %w", errCount)
		}
		if count == 0 {
			return nil, apierr.NotFound(apierr.CodeProfileNotFound, "profile", fmt.Sprint(*profileID))
		}
	}

	row := models.Session{
		ID:          uuid.NewString(),
		SessionType: sessionType,
		Title:       title,
		ProfileID:   profileID,
	}
	if errCreate := s.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		return nil, fmt.Errorf("store: create session: %w", errCreate)
	}
	return &row, nil
}

// Get loads one session by id.
func (s *Sessions) Get(ctx context.Context, id string) (*models.Session, error) {
	var row models.Session
	errTake := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errTake != nil {
		if errors.Is(errTake, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(apierr.CodeSessionNotFound, "session", id)
		}
		return nil, fmt.Errorf("store: get session: %w", errTake)
	}
	return &row, nil
}

// List returns the most recent sessions, newest first.
func (s *Sessions) List(ctx context.Context, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.Session
	if errFind := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("store: list sessions: %w", errFind)
	}
	return rows, nil
}

// SessionUpdate carries the updatable session fields; nil pointers leave the
// stored value untouched, while SetProfile distinguishes "clear the profile"
// from "leave it alone".
type SessionUpdate struct {
	Title      *string
	ProfileID  *uint64
	SetProfile bool
}

// Update applies a partial update to a session.
func (s *Sessions) Update(ctx context.Context, id string, upd SessionUpdate) (*models.Session, error) {
	row, errGet := s.Get(ctx, id)
	if errGet != nil {
		return nil, errGet
	}

	changes := map[string]any{}
	if upd.Title != nil {
		changes["title"] = *upd.Title
	}
	if upd.SetProfile {
		if upd.ProfileID != nil {
			var count int64
			if errCount := s.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", *upd.ProfileID).Count(&count).Error; errCount != nil {
				return nil, fmt.Errorf("store: check profile: %w", errCount)
			}
			if count == 0 {
				return nil, apierr.NotFound(apierr.CodeProfileNotFound, "profile", fmt.Sprint(*upd.ProfileID))
			}
		}
		changes["profile_id"] = upd.ProfileID
	}
	if len(changes) == 0 {
		return row, nil
	}

	if errUpdate := s.db.WithContext(ctx).Model(&models.Session{}).Where("id = ?", id).Updates(changes).Error; errUpdate != nil {
		return nil, fmt.Errorf("store: update session: %w", errUpdate)
	}
	return s.Get(ctx, id)
}

// Delete removes a session together with its messages and usage rows.
func (s *Sessions) Delete(ctx context.Context, id string) error {
	if _, errGet := s.Get(ctx, id); errGet != nil {
		return errGet
	}
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errDel := tx.Where("session_id = ?", id).Delete(&models.Message{}).Error; errDel != nil {
			return errDel
		}
		if errDel := tx.Where("session_id = ?", id).Delete(&models.UsageLog{}).Error; errDel != nil {
			return errDel
		}
		return tx.Where("id = ?", id).Delete(&models.Session{}).Error
	})
	if errTx != nil {
		return fmt.Errorf("store: delete session: %w", errTx)
	}
	return nil
}
