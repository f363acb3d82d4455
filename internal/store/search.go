package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"llmconsole/internal/apierr"
	"llmconsole/internal/db"
)

// SearchQuery describes one full-text search over message content.
type SearchQuery struct {
	Text        string     // Search terms; required.
	SessionType string     // Restrict to one session type, empty for all.
	Since       *time.Time // Only messages created at or after this time.
	Until       *time.Time // Only messages created before this time.
	Limit       int        // Max hits; defaults to 50.
}

// SearchHit is one matching message with surrounding session context.
type SearchHit struct {
	MessageID   string    `json:"message_id"`
	SessionID   string    `json:"session_id"`
	SessionType string    `json:"session_type"`
	Title       *string   `json:"session_title"`
	Role        string    `json:"role"`
	Snippet     string    `json:"snippet"`
	CreatedAt   time.Time `json:"created_at"`
}

// Search runs full-text search over message content. On SQLite the FTS5 index
// ranks and highlights matches; other dialects fall back to a case-insensitive
// substring scan so the endpoint behaves the same everywhere.
type Search struct {
	db *gorm.DB
}

// NewSearch constructs a Search store.
func NewSearch(conn *gorm.DB) *Search {
	return &Search{db: conn}
}

// Run executes the query and returns hits, best match first.
func (s *Search) Run(ctx context.Context, q SearchQuery) ([]SearchHit, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, apierr.Validation("query must not be empty")
	}
	limit := q.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	if db.IsSQLite(s.db) {
		return s.runFTS(ctx, q, limit)
	}
	return s.runLike(ctx, q, limit)
}

func (s *Search) runFTS(ctx context.Context, q SearchQuery, limit int) ([]SearchHit, error) {
	var sql strings.Builder
	sql.WriteString(`SELECT messages.id AS message_id, messages.session_id, sessions.session_type,
		sessions.title, messages.role,
		snippet(messages_fts, 0, '<mark>', '</mark>', '...', 24) AS snippet,
		messages.created_at
		FROM messages_fts
		JOIN messages ON messages.rowid = messages_fts.rowid
		JOIN sessions ON sessions.id = messages.session_id
		WHERE messages_fts MATCH ?`)
	args := []any{ftsQuery(q.Text)}

	if q.SessionType != "" {
		sql.WriteString(" AND sessions.session_type = ?")
		args = append(args, q.SessionType)
	}
	if q.Since != nil {
		sql.WriteString(" AND messages.created_at >= ?")
		args = append(args, *q.Since)
	}
	if q.Until != nil {
		sql.WriteString(" AND messages.created_at < ?")
		args = append(args, *q.Until)
	}
	sql.WriteString(" ORDER BY rank LIMIT ?")
	args = append(args, limit)

	var hits []SearchHit
	if errScan := s.db.WithContext(ctx).Raw(sql.String(), args...).Scan(&hits).Error; errScan != nil {
		return nil, fmt.Errorf("store: fts search: %w", errScan)
	}
	return hits, nil
}

func (s *Search) runLike(ctx context.Context, q SearchQuery, limit int) ([]SearchHit, error) {
	query := s.db.WithContext(ctx).Table("messages").
		Select("messages.id AS message_id, messages.session_id, sessions.session_type, sessions.title, messages.role, messages.content AS snippet, messages.created_at").
		Joins("JOIN sessions ON sessions.id = messages.session_id").
		Where(db.CaseInsensitiveLikeExpr(s.db, "messages.content"), db.NormalizeLikePattern(s.db, "%"+q.Text+"%"))

	if q.SessionType != "" {
		query = query.Where("sessions.session_type = ?", q.SessionType)
	}
	if q.Since != nil {
		query = query.Where("messages.created_at >= ?", *q.Since)
	}
	if q.Until != nil {
		query = query.Where("messages.created_at < ?", *q.Until)
	}

	var hits []SearchHit
	if errScan := query.Order("messages.created_at DESC").Limit(limit).Scan(&hits).Error; errScan != nil {
		return nil, fmt.Errorf("store: like search: %w", errScan)
	}
	return hits, nil
}

// ftsQuery quotes each term so user input with FTS5 operators (AND, NEAR,
// quotes, asterisks) cannot break the query syntax.
func ftsQuery(text string) string {
	fields := strings.Fields(text)
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		quoted = append(quoted, `"`+strings.ReplaceAll(f, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}
