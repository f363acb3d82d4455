package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"llmconsole/internal/apierr"
	"llmconsole/internal/db"
)

const backupTimeLayout = "2006-01-02_15-04-05"

// AdminHandler handles SQLite backup and restore. Both operations work on the
// database file directly, so they are only available on SQLite deployments.
type AdminHandler struct {
	dbPath     string
	backupsDir string
}

// NewAdminHandler constructs an AdminHandler. dsn is the configured database
// DSN; a non-SQLite or in-memory DSN disables the endpoints.
func NewAdminHandler(dsn, backupsDir string) *AdminHandler {
	return &AdminHandler{dbPath: db.SQLitePath(dsn), backupsDir: backupsDir}
}

// ensureReady verifies the handler can operate on a database file.
func (h *AdminHandler) ensureReady(c *gin.Context) bool {
	if h.dbPath == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "backup and restore require a file-backed SQLite database",
			"error_code": apierr.CodeBackupFailed,
		})
		return false
	}
	if errMkdir := os.MkdirAll(h.backupsDir, 0o755); errMkdir != nil {
		writeError(c, fmt.Errorf("handlers: create backups dir: %w", errMkdir))
		return false
	}
	return true
}

// Backup copies the live database into the backups directory and returns the
// copy as a download.
func (h *AdminHandler) Backup(c *gin.Context) {
	if !h.ensureReady(c) {
		return
	}
	if _, errStat := os.Stat(h.dbPath); errStat != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "database file not found", "error_code": apierr.CodeBackupFailed})
		return
	}

	name := fmt.Sprintf("console_backup_%s.db", time.Now().UTC().Format(backupTimeLayout))
	path := filepath.Join(h.backupsDir, name)
	size, errCopy := copyFile(h.dbPath, path)
	if errCopy != nil {
		log.WithError(errCopy).Error("backup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "backup failed", "error_code": apierr.CodeBackupFailed})
		return
	}

	log.WithFields(log.Fields{"backup_file": name, "size_bytes": size}).Info("database backup created")
	c.FileAttachment(path, name)
}

// backupInfo describes one stored backup file.
type backupInfo struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Backups lists stored backup files, newest first.
func (h *AdminHandler) Backups(c *gin.Context) {
	if !h.ensureReady(c) {
		return
	}
	entries, errRead := os.ReadDir(h.backupsDir)
	if errRead != nil {
		writeError(c, fmt.Errorf("handlers: read backups dir: %w", errRead))
		return
	}

	backups := make([]backupInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".db") {
			continue
		}
		stat, errStat := entry.Info()
		if errStat != nil {
			continue
		}
		backups = append(backups, backupInfo{Name: entry.Name(), Size: stat.Size(), CreatedAt: stat.ModTime()})
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].CreatedAt.After(backups[j].CreatedAt) })
	c.JSON(http.StatusOK, gin.H{"backups": backups})
}

// Restore replaces the live database with an uploaded backup. The upload is
// integrity-checked first and the current database is kept as a safety
// backup. A restart is needed for open connections to pick up the new file.
func (h *AdminHandler) Restore(c *gin.Context) {
	if !h.ensureReady(c) {
		return
	}

	file, errForm := c.FormFile("file")
	if errForm != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided", "error_code": "VALIDATION_ERROR"})
		return
	}
	if !strings.HasSuffix(file.Filename, ".db") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file type, must be a .db file", "error_code": apierr.CodeInvalidDatabase})
		return
	}

	tempPath := filepath.Join(h.backupsDir, fmt.Sprintf("temp_restore_%s.db", time.Now().UTC().Format("20060102_150405")))
	if errSave := c.SaveUploadedFile(file, tempPath); errSave != nil {
		writeError(c, fmt.Errorf("handlers: save upload: %w", errSave))
		return
	}
	defer func() { _ = os.Remove(tempPath) }()

	if errCheck := db.CheckIntegrity(tempPath); errCheck != nil {
		log.WithError(errCheck).Warn("rejected invalid database upload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid SQLite database file", "error_code": apierr.CodeInvalidDatabase})
		return
	}

	safetyName := fmt.Sprintf("console_backup_before_restore_%s.db", time.Now().UTC().Format(backupTimeLayout))
	if _, errStat := os.Stat(h.dbPath); errStat == nil {
		if _, errCopy := copyFile(h.dbPath, filepath.Join(h.backupsDir, safetyName)); errCopy != nil {
			log.WithError(errCopy).Error("safety backup failed, aborting restore")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "restore failed", "error_code": apierr.CodeRestoreFailed})
			return
		}
	}

	if _, errCopy := copyFile(tempPath, h.dbPath); errCopy != nil {
		log.WithError(errCopy).Error("restore failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "restore failed", "error_code": apierr.CodeRestoreFailed})
		return
	}

	log.WithFields(log.Fields{"source_file": file.Filename, "safety_backup": safetyName}).Info("database restored from backup")
	c.JSON(http.StatusOK, gin.H{
		"message":       "database restored successfully",
		"safety_backup": safetyName,
		"note":          "server restart recommended for changes to take full effect",
	})
}

// copyFile copies src to dst and returns the byte count.
func copyFile(src, dst string) (int64, error) {
	in, errOpen := os.Open(src)
	if errOpen != nil {
		return 0, errOpen
	}
	defer func() { _ = in.Close() }()

	out, errCreate := os.Create(dst)
	if errCreate != nil {
		return 0, errCreate
	}
	defer func() { _ = out.Close() }()

	n, errCopy := io.Copy(out, in)
	if errCopy != nil {
		return n, errCopy
	}
	return n, out.Sync()
}
