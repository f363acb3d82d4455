package documents

import (
	"strings"
	"testing"

	"llmconsole/internal/apierr"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, errNew := NewStore(t.TempDir())
	if errNew != nil {
		t.Fatalf("new store: %v", errNew)
	}
	return s
}

func TestSaveLoadDelete(t *testing.T) {
	s := newTestStore(t)

	info, errSave := s.Save("notes.md", []byte("# hello"))
	if errSave != nil {
		t.Fatalf("save: %v", errSave)
	}
	if info.ID != "notes.md" || info.Size != 7 {
		t.Fatalf("info = %+v", info)
	}

	doc, errLoad := s.Load("notes.md")
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if doc.Content != "# hello" {
		t.Fatalf("content = %q", doc.Content)
	}

	if errDelete := s.Delete("notes.md"); errDelete != nil {
		t.Fatalf("delete: %v", errDelete)
	}
	if _, errLoad = s.Load("notes.md"); !apierr.IsNotFound(errLoad) {
		t.Fatalf("load after delete: %v, want not found", errLoad)
	}
}

func TestSaveCollisionGetsSuffix(t *testing.T) {
	s := newTestStore(t)

	if _, errSave := s.Save("a.txt", []byte("one")); errSave != nil {
		t.Fatalf("save: %v", errSave)
	}
	second, errSave := s.Save("a.txt", []byte("two"))
	if errSave != nil {
		t.Fatalf("save duplicate: %v", errSave)
	}
	if second.ID != "a_1.txt" {
		t.Fatalf("duplicate id = %q, want a_1.txt", second.ID)
	}

	docs, errList := s.List()
	if errList != nil {
		t.Fatalf("list: %v", errList)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
}

func TestSaveValidation(t *testing.T) {
	s := newTestStore(t)

	if _, errSave := s.Save("binary.exe", []byte("x")); errSave == nil {
		t.Fatal("disallowed extension accepted")
	}
	big := make([]byte, MaxFileSize+1)
	if _, errSave := s.Save("big.txt", big); errSave == nil {
		t.Fatal("oversized file accepted")
	}
	// Traversal in the name collapses to its base name rather than escaping.
	info, errSave := s.Save("../../etc/cron.txt", []byte("x"))
	if errSave != nil {
		t.Fatalf("save: %v", errSave)
	}
	if info.ID != "cron.txt" {
		t.Fatalf("id = %q, want base name only", info.ID)
	}
}

func TestLoadRejectsTraversal(t *testing.T) {
	s := newTestStore(t)

	for _, id := range []string{"../secret", "a/../../b", "sub/file.txt", ""} {
		if _, errLoad := s.Load(id); !apierr.IsNotFound(errLoad) {
			t.Fatalf("id %q: %v, want not found", id, errLoad)
		}
	}
}

func TestContextPrompt(t *testing.T) {
	doc := &Document{Info: Info{Name: "spec.txt"}, Content: "body text"}
	prompt := ContextPrompt(doc)
	if !strings.Contains(prompt, "spec.txt") || !strings.Contains(prompt, "body text") {
		t.Fatalf("prompt missing document data: %q", prompt)
	}
}
