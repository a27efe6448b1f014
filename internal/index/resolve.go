package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/starford/zettel/internal/apperr"
	"github.com/starford/zettel/internal/identity"
	"github.com/starford/zettel/internal/models"
)

func identityByPath(ctx context.Context, q sqlx.QueryerContext, path string) (string, error) {
	var id string
	err := sqlx.GetContext(ctx, q, &id,
		`SELECT identity FROM notes WHERE file_path = ?`, path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("index: no record at %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return "", storeErr("identity by path", err)
	}
	return id, nil
}

// IdentityByPath returns the identity of the record tracked at path, or an
// error wrapping apperr.ErrNotFound.
func (db *DB) IdentityByPath(ctx context.Context, path string) (string, error) {
	return identityByPath(ctx, db.conn, path)
}

// PathIdentities maps every tracked path to its identity.
func (db *DB) PathIdentities(ctx context.Context) (map[string]string, error) {
	return pathIdentities(ctx, db.conn)
}

func pathIdentities(ctx context.Context, q sqlx.QueryerContext) (map[string]string, error) {
	var rows []struct {
		Identity string `db:"identity"`
		Path     string `db:"file_path"`
	}
	if err := sqlx.SelectContext(ctx, q, &rows, `SELECT identity, file_path FROM notes`); err != nil {
		return nil, storeErr("path identities", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Path] = r.Identity
	}
	return out, nil
}

// HighWaterMark returns the newest record timestamp, or 0 for an empty store.
func (db *DB) HighWaterMark(ctx context.Context) (int64, error) {
	var mark sql.NullInt64
	if err := db.conn.GetContext(ctx, &mark, `SELECT MAX(timestamp) FROM notes`); err != nil {
		return 0, storeErr("high-water mark", err)
	}
	return mark.Int64, nil
}

// Resolver binds extracted notes to identities: the stored identity for a
// tracked path, a freshly generated one otherwise.
type Resolver struct {
	db  *DB
	gen identity.Generator
}

// NewResolver creates a resolver issuing new identities from gen.
func NewResolver(db *DB, gen identity.Generator) *Resolver {
	if gen == nil {
		gen = identity.UUID{}
	}
	return &Resolver{db: db, gen: gen}
}

// Lookup resolves the identity of an existing note by its path.
func (r *Resolver) Lookup(ctx context.Context, path string) (string, error) {
	return r.db.IdentityByPath(ctx, path)
}

// Resolve binds a single note.
func (r *Resolver) Resolve(ctx context.Context, n *models.Note) (Record, error) {
	id, err := r.db.IdentityByPath(ctx, n.Path)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		id = r.gen.New(n.CreatedAt)
	case err != nil:
		return Record{}, err
	}
	return Record{Identity: id, Note: n}, nil
}

// ResolveAll binds a batch against one snapshot of tracked paths. A path
// appearing twice in notes receives the same identity. The indexer binds
// inside its write transaction instead, so that no other writer can track a
// path between lookup and commit.
func (r *Resolver) ResolveAll(ctx context.Context, notes []*models.Note) ([]Record, error) {
	known, err := r.db.PathIdentities(ctx)
	if err != nil {
		return nil, err
	}
	return r.bind(known, notes), nil
}

// bind assigns identities from known, generating and recording one for every
// untracked path.
func (r *Resolver) bind(known map[string]string, notes []*models.Note) []Record {
	out := make([]Record, 0, len(notes))
	for _, n := range notes {
		id, ok := known[n.Path]
		if !ok {
			id = r.gen.New(n.CreatedAt)
			known[n.Path] = id
		}
		out = append(out, Record{Identity: id, Note: n})
	}
	return out
}
