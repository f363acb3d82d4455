package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"llmconsole/internal/apierr"
	"llmconsole/internal/models"
)

// Messages is the append-only ordered log of role-tagged turns per session.
type Messages struct {
	db *gorm.DB
}

// NewMessages constructs a Messages store.
func NewMessages(db *gorm.DB) *Messages {
	return &Messages{db: db}
}

// Append writes one turn and returns its id. The owning session must exist
// and the content must be non-empty.
func (m *Messages) Append(ctx context.Context, sessionID, role, content string) (string, error) {
	if !models.ValidRole(role) {
		return "", apierr.Validation(fmt.Sprintf("invalid role %q", role))
	}
	if strings.TrimSpace(content) == "" {
		return "", apierr.Validation("content must not be empty")
	}

	var count int64
	if errCount := m.db.WithContext(ctx).Model(&models.Session{}).Where("id = ?", sessionID).Count(&count).Error; errCount != nil {
		return "", fmt.Errorf("store: check session: %w", errCount)
	}
	if count == 0 {
		return "", apierr.NotFound(apierr.CodeSessionNotFound, "session", sessionID)
	}

	row := models.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
	}
	if errCreate := m.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		return "", fmt.Errorf("store: append message: %w", errCreate)
	}
	return row.ID, nil
}

// Get loads one message by id.
func (m *Messages) Get(ctx context.Context, id string) (*models.Message, error) {
	var row models.Message
	errTake := m.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errTake != nil {
		if errTake == gorm.ErrRecordNotFound {
			return nil, apierr.NotFound(apierr.CodeMessageNotFound, "message", id)
		}
		return nil, fmt.Errorf("store: get message: %w", errTake)
	}
	return &row, nil
}

// List returns a session's messages in creation order.
func (m *Messages) List(ctx context.Context, sessionID string) ([]models.Message, error) {
	var rows []models.Message
	errFind := m.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&rows).Error
	if errFind != nil {
		return nil, fmt.Errorf("store: list messages: %w", errFind)
	}
	return rows, nil
}
