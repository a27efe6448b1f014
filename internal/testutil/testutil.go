// Package testutil provides shared test helpers for setting up wikis and databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/zettel/internal/index"
	"github.com/starford/zettel/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "zettel-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestWiki creates a temporary wiki directory with a storage.Provider.
func TestWiki(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestIndexer wires a fresh wiki, database and indexer.
func TestIndexer(t *testing.T) (string, *index.Indexer) {
	t.Helper()
	dir, store := TestWiki(t)
	return dir, index.NewIndexer(TestDB(t), store, nil, 2, QuietLogger())
}

// WriteNote writes body to rel under dir, creating parent directories.
func WriteNote(t *testing.T, dir, rel, body string) {
	t.Helper()
	abs := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

// QuietLogger discards all output.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
