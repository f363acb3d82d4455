package db

import (
	"fmt"

	"gorm.io/gorm"

	"llmconsole/internal/models"
)

// Migrate applies the schema. Every step is idempotent so Migrate is safe to
// run on every startup.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if err := conn.AutoMigrate(
		&models.Profile{},
		&models.Session{},
		&models.Message{},
		&models.Model{},
		&models.UsageLog{},
		&models.FrontendLog{},
	); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}

	if IsSQLite(conn) {
		if err := ensureMessageSearchIndex(conn); err != nil {
			return err
		}
	}

	return nil
}

// ensureMessageSearchIndex creates the FTS5 index over message content and
// the triggers that keep it in sync. Messages are immutable, so only insert
// and delete need mirroring.
func ensureMessageSearchIndex(conn *gorm.DB) error {
	stmts := []string{
		`CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
			content,
			content='messages',
			content_rowid='rowid'
		)`,
		`CREATE TRIGGER IF NOT EXISTS messages_fts_insert AFTER INSERT ON messages BEGIN
			INSERT INTO messages_fts(rowid, content) VALUES (new.rowid, new.content);
		END`,
		`CREATE TRIGGER IF NOT EXISTS messages_fts_delete AFTER DELETE ON messages BEGIN
			INSERT INTO messages_fts(messages_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
		END`,
	}
	for _, stmt := range stmts {
		if errExec := conn.Exec(stmt).Error; errExec != nil {
			return fmt.Errorf("db: fts index: %w", errExec)
		}
	}
	return nil
}
