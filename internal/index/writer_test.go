package index

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/zettel/internal/apperr"
	"github.com/starford/zettel/internal/extract"
	"github.com/starford/zettel/internal/models"
)

func extracted(t *testing.T, id, path, body string) Record {
	t.Helper()
	n, err := extract.Extract(path, []byte(body), time.Unix(1_700_000_000, 0))
	require.NoError(t, err)
	return Record{Identity: id, Note: n}
}

func TestApply_WritesAllFacts(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	rec := extracted(t, "n1", "a.md", "# Alpha\n## Sub\n#go #go [docs](b.md) [[c]]\n")
	require.NoError(t, db.Apply(ctx, []Record{rec}))

	d, err := db.Note(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", d.Title)
	assert.Equal(t, "a.md", d.Path)
	assert.Equal(t, int64(1_700_000_000), d.Timestamp)
	assert.Equal(t, []models.Header{{Level: 1, Text: "Alpha"}, {Level: 2, Text: "Sub"}}, d.Headers)
	assert.Equal(t, []string{"#go", "#go"}, d.Tags)
	assert.Equal(t, []models.Link{{Label: "docs", Target: "b.md"}, {Label: "c", Target: "c"}}, d.Links)
	assert.Equal(t, 1, countFor(t, db, "full_text", "n1"))
}

func TestApply_IdempotentReextraction(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	rec := extracted(t, "n1", "a.md", "# Alpha\n#x [l](t)\n")

	require.NoError(t, db.Apply(ctx, []Record{rec}))
	first, err := db.Note(ctx, "n1")
	require.NoError(t, err)

	require.NoError(t, db.Apply(ctx, []Record{rec}))
	second, err := db.Note(ctx, "n1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	for _, table := range append([]string{"notes", "full_text"}, factTables...) {
		assert.Equal(t, 1, countFor(t, db, table, "n1"), table)
	}
}

func TestApply_ReplacesNotMerges(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	require.NoError(t, db.Apply(ctx, []Record{extracted(t, "n1", "a.md", "#old [x](y)\n")}))
	require.NoError(t, db.Apply(ctx, []Record{extracted(t, "n1", "a.md", "#new\n")}))

	d, err := db.Note(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, []string{"#new"}, d.Tags)
	assert.Empty(t, d.Links)
	assert.Equal(t, "a.md", d.Title)
}

func TestApply_BatchAtomicity(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	_, err := db.conn.Exec(`
		CREATE TRIGGER reject_poison BEFORE INSERT ON notes
		WHEN NEW.title = 'poison'
		BEGIN SELECT RAISE(ABORT, 'poisoned'); END;
	`)
	require.NoError(t, err)

	good := extracted(t, "good", "good.md", "# Good\n#ok\n")
	bad := extracted(t, "bad", "bad.md", "# poison\n")

	err = db.Apply(ctx, []Record{good, bad})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrStore)

	n, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	for _, table := range append([]string{"full_text"}, factTables...) {
		assert.Zero(t, countFor(t, db, table, "good"), table)
	}
}

func TestApply_RollsBackOnStoreFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	db := NewFromConn(conn)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO notes`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`DELETE FROM headers`).WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err = db.Apply(context.Background(), []Record{record("n1", "a.md", "body", time.Unix(1, 0))})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrStore)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_BeginFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	db := NewFromConn(conn)

	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	err = db.Apply(context.Background(), []Record{record("n1", "a.md", "body", time.Unix(1, 0))})
	assert.ErrorIs(t, err, apperr.ErrStore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_RejectsRecordWithoutIdentity(t *testing.T) {
	db := testDB(t)
	err := db.Apply(context.Background(), []Record{record("", "a.md", "body", time.Unix(1, 0))})
	assert.ErrorIs(t, err, apperr.ErrStore)
}

func TestRemove_DeletionCompleteness(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	require.NoError(t, db.Apply(ctx, []Record{
		extracted(t, "n1", "a.md", "# A\n#t [l](x) [[y]]\n"),
		extracted(t, "n2", "b.md", "# B\n#t\n"),
	}))
	require.NoError(t, db.Remove(ctx, "a.md"))

	for _, table := range append([]string{"notes", "full_text"}, factTables...) {
		assert.Zero(t, countFor(t, db, table, "n1"), table)
	}
	assert.Equal(t, 1, countFor(t, db, "notes", "n2"))
	assert.Equal(t, 1, countFor(t, db, "tags", "n2"))
}

func TestRemove_Untracked(t *testing.T) {
	db := testDB(t)
	err := db.Remove(context.Background(), "ghost.md")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRemoveIdentities(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	require.NoError(t, db.Apply(ctx, []Record{
		extracted(t, "n1", "a.md", "#a"),
		extracted(t, "n2", "b.md", "#b"),
		extracted(t, "n3", "c.md", "#c"),
	}))

	require.NoError(t, db.RemoveIdentities(ctx, []string{"n1", "n3"}))
	n, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, countFor(t, db, "tags", "n3"))
}

func TestRename_PreservesIdentity(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	require.NoError(t, db.Apply(ctx, []Record{extracted(t, "n1", "a.md", "# Kept Title\n#t\n")}))

	moved := time.Unix(1_800_000_000, 0)
	require.NoError(t, db.Rename(ctx, "a.md", "dir/b.md", moved))

	id, err := db.IdentityByPath(ctx, "dir/b.md")
	require.NoError(t, err)
	assert.Equal(t, "n1", id)

	_, err = db.IdentityByPath(ctx, "a.md")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	d, err := db.Note(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "Kept Title", d.Title)
	assert.Equal(t, moved.Unix(), d.Timestamp)
	assert.Equal(t, []string{"#t"}, d.Tags)
}

func TestRename_PathDerivedTitleFollows(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	require.NoError(t, db.Apply(ctx, []Record{extracted(t, "n1", "a.md", "no header here")}))

	require.NoError(t, db.Rename(ctx, "a.md", "b.md", time.Unix(5, 0)))

	d, err := db.Note(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "b.md", d.Title)
}

func TestRename_ReplacesRecordAtTarget(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	require.NoError(t, db.Apply(ctx, []Record{
		extracted(t, "n1", "a.md", "#from"),
		extracted(t, "n2", "b.md", "#overwritten"),
	}))

	require.NoError(t, db.Rename(ctx, "a.md", "b.md", time.Unix(5, 0)))

	id, err := db.IdentityByPath(ctx, "b.md")
	require.NoError(t, err)
	assert.Equal(t, "n1", id)
	assert.Zero(t, countFor(t, db, "notes", "n2"))
	assert.Zero(t, countFor(t, db, "tags", "n2"))
}

func TestRename_UntrackedSource(t *testing.T) {
	db := testDB(t)
	err := db.Rename(context.Background(), "ghost.md", "b.md", time.Unix(1, 0))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
