// Package documents manages the uploads directory backing the document QA
// feature: plain files on disk, identified by filename.
package documents

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"llmconsole/internal/apierr"
)

// MaxFileSize caps uploads at 10 MB.
const MaxFileSize = 10 * 1024 * 1024

// allowedExtensions lists the text-like file types accepted for upload.
var allowedExtensions = map[string]bool{
	".txt": true, ".md": true, ".py": true, ".js": true, ".json": true,
	".xml": true, ".html": true, ".css": true, ".java": true, ".cpp": true,
	".c": true, ".h": true, ".ts": true, ".jsx": true, ".tsx": true,
	".yaml": true, ".yml": true, ".toml": true, ".ini": true, ".cfg": true,
	".conf": true, ".log": true, ".csv": true,
}

// AllowedExtension reports whether the filename's extension is accepted.
func AllowedExtension(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}

// Info describes one stored document.
type Info struct {
	ID        string    `json:"id"`   // Filename, doubling as the identifier.
	Name      string    `json:"name"` // Same as ID.
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Document is a stored document together with its text content.
type Document struct {
	Info
	Content string `json:"content"`
}

// Store reads and writes documents under one uploads directory.
type Store struct {
	dir string
}

// NewStore constructs a Store rooted at dir, creating it when missing.
func NewStore(dir string) (*Store, error) {
	if errMkdir := os.MkdirAll(dir, 0o755); errMkdir != nil {
		return nil, fmt.Errorf("documents: create uploads dir: %w", errMkdir)
	}
	return &Store{dir: dir}, nil
}

// resolve maps an id to a path inside the uploads directory, rejecting any id
// that escapes it.
func (s *Store) resolve(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.Contains(id, "..") {
		return "", apierr.NotFound(apierr.CodeDocumentNotFound, "document", id)
	}
	return filepath.Join(s.dir, id), nil
}

// List returns stored documents, newest first.
func (s *Store) List() ([]Info, error) {
	entries, errRead := os.ReadDir(s.dir)
	if errRead != nil {
		return nil, fmt.Errorf("documents: read uploads dir: %w", errRead)
	}
	docs := make([]Info, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		stat, errStat := entry.Info()
		if errStat != nil {
			continue
		}
		docs = append(docs, Info{
			ID:        entry.Name(),
			Name:      entry.Name(),
			Size:      stat.Size(),
			CreatedAt: stat.ModTime(),
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })
	return docs, nil
}

// Load reads one document with its content.
func (s *Store) Load(id string) (*Document, error) {
	path, errResolve := s.resolve(id)
	if errResolve != nil {
		return nil, errResolve
	}
	stat, errStat := os.Stat(path)
	if errStat != nil || stat.IsDir() {
		return nil, apierr.NotFound(apierr.CodeDocumentNotFound, "document", id)
	}
	content, errRead := os.ReadFile(path)
	if errRead != nil {
		return nil, fmt.Errorf("documents: read %s: %w", id, errRead)
	}
	return &Document{
		Info: Info{
			ID:        id,
			Name:      id,
			Size:      stat.Size(),
			CreatedAt: stat.ModTime(),
		},
		Content: string(content),
	}, nil
}

// Save writes an uploaded file, validating its extension and size. Name
// collisions get a numeric suffix rather than overwriting.
func (s *Store) Save(name string, content []byte) (*Info, error) {
	name = filepath.Base(name)
	if name == "" || name == "." {
		return nil, apierr.Validation("no filename provided")
	}
	if !AllowedExtension(name) {
		return nil, apierr.Validation(fmt.Sprintf("file type %q is not allowed", filepath.Ext(name)))
	}
	if len(content) > MaxFileSize {
		return nil, apierr.Validation(fmt.Sprintf("file too large, maximum size is %d MB", MaxFileSize/1024/1024))
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	final := name
	for counter := 1; ; counter++ {
		if _, errStat := os.Stat(filepath.Join(s.dir, final)); os.IsNotExist(errStat) {
			break
		}
		final = fmt.Sprintf("%s_%d%s", base, counter, ext)
	}

	path := filepath.Join(s.dir, final)
	if errWrite := os.WriteFile(path, content, 0o644); errWrite != nil {
		return nil, fmt.Errorf("documents: write %s: %w", final, errWrite)
	}
	stat, errStat := os.Stat(path)
	if errStat != nil {
		return nil, fmt.Errorf("documents: stat %s: %w", final, errStat)
	}
	return &Info{
		ID:        final,
		Name:      final,
		Size:      stat.Size(),
		CreatedAt: stat.ModTime(),
	}, nil
}

// Delete removes one document.
func (s *Store) Delete(id string) error {
	path, errResolve := s.resolve(id)
	if errResolve != nil {
		return errResolve
	}
	stat, errStat := os.Stat(path)
	if errStat != nil || stat.IsDir() {
		return apierr.NotFound(apierr.CodeDocumentNotFound, "document", id)
	}
	if errRemove := os.Remove(path); errRemove != nil {
		return fmt.Errorf("documents: delete %s: %w", id, errRemove)
	}
	return nil
}

// ContextPrompt builds the system message grounding a QA turn in the
// document's content.
func ContextPrompt(doc *Document) string {
	return fmt.Sprintf(
		"You are assisting with questions about the uploaded document '%s'.\n\n"+
			"Document content:\n%s\n\n"+
			"Always answer using only the document content. If the answer is not present, say you don't have enough information.",
		doc.Name, doc.Content)
}
