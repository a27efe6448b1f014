package index

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/zettel/internal/apperr"
	"github.com/starford/zettel/internal/models"
)

func TestResolver_NewPathGetsFreshIdentity(t *testing.T) {
	db := testDB(t)
	r := NewResolver(db, seqGen())

	rec, err := r.Resolve(context.Background(), &models.Note{Path: "a.md"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", rec.Identity)
}

func TestResolver_TrackedPathKeepsIdentity(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	require.NoError(t, db.Apply(ctx, []Record{record("stored", "a.md", "x", time.Unix(1, 0))}))

	r := NewResolver(db, seqGen())
	rec, err := r.Resolve(ctx, &models.Note{Path: "a.md"})
	require.NoError(t, err)
	assert.Equal(t, "stored", rec.Identity)

	id, err := r.Lookup(ctx, "a.md")
	require.NoError(t, err)
	assert.Equal(t, "stored", id)
}

func TestResolver_LookupUntracked(t *testing.T) {
	r := NewResolver(testDB(t), nil)
	_, err := r.Lookup(context.Background(), "nope.md")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestResolver_DefaultGeneratorIsUUID(t *testing.T) {
	r := NewResolver(testDB(t), nil)
	rec, err := r.Resolve(context.Background(), &models.Note{Path: "a.md"})
	require.NoError(t, err)
	assert.Len(t, rec.Identity, 36)
}

func TestResolveAll_DuplicatePathsShareIdentity(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	require.NoError(t, db.Apply(ctx, []Record{record("stored", "old.md", "x", time.Unix(1, 0))}))

	r := NewResolver(db, seqGen())
	recs, err := r.ResolveAll(ctx, []*models.Note{
		{Path: "new.md"}, {Path: "old.md"}, {Path: "new.md"},
	})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "id-1", recs[0].Identity)
	assert.Equal(t, "stored", recs[1].Identity)
	assert.Equal(t, recs[0].Identity, recs[2].Identity)
}

func TestHighWaterMark(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	mark, err := db.HighWaterMark(ctx)
	require.NoError(t, err)
	assert.Zero(t, mark)

	require.NoError(t, db.Apply(ctx, []Record{
		record("a", "a.md", "", time.Unix(300, 0)),
		record("b", "b.md", "", time.Unix(700, 0)),
	}))
	mark, err = db.HighWaterMark(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(700), mark)
}

func TestPathIdentities(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	require.NoError(t, db.Apply(ctx, []Record{
		record("a", "a.md", "", time.Unix(1, 0)),
		record("b", "sub/b.md", "", time.Unix(1, 0)),
	}))

	got, err := db.PathIdentities(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a.md": "a", "sub/b.md": "b"}, got)
}
