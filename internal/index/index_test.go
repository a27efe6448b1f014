package index

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/starford/zettel/internal/identity"
	"github.com/starford/zettel/internal/models"
	"github.com/starford/zettel/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "zettel-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() {
		os.Remove(f.Name())
		os.Remove(f.Name() + "-wal")
		os.Remove(f.Name() + "-shm")
	})

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seqGen issues id-1, id-2, ... so tests can assert on identities.
func seqGen() identity.Generator {
	var n atomic.Int64
	return identity.GeneratorFunc(func(time.Time) string {
		return fmt.Sprintf("id-%d", n.Add(1))
	})
}

type wiki struct {
	dir   string
	store *storage.FS
	db    *DB
	ix    *Indexer
}

func newWiki(t *testing.T) *wiki {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	require.NoError(t, err)
	db := testDB(t)
	return &wiki{dir: dir, store: store, db: db, ix: NewIndexer(db, store, seqGen(), 2, quietLogger())}
}

func (w *wiki) write(t *testing.T, rel, body string) {
	t.Helper()
	abs := filepath.Join(w.dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(body), 0o644))
}

func record(id, path, body string, created time.Time) Record {
	n := &models.Note{Path: path, Body: body, CreatedAt: created, Title: path}
	return Record{Identity: id, Note: n}
}

func countFor(t *testing.T, db *DB, table, id string) int {
	t.Helper()
	var n int
	require.NoError(t, db.conn.Get(&n, `SELECT count(*) FROM `+table+` WHERE identity = ?`, id))
	return n
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range append([]string{"notes", "full_text"}, factTables...) {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestOpen_Reopen(t *testing.T) {
	f := filepath.Join(t.TempDir(), "zettel.db")
	db, err := Open(f)
	require.NoError(t, err)
	require.NoError(t, db.Apply(context.Background(), []Record{record("x", "x.md", "body", time.Unix(10, 0))}))
	require.NoError(t, db.Close())

	db, err = Open(f)
	require.NoError(t, err)
	defer db.Close()
	n, err := db.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
