package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/zettel/internal/apperr"
	"github.com/starford/zettel/internal/models"
)

const projectionCols = `n.identity, n.title, n.timestamp, n.file_path`

// FullText returns notes whose body matches query, most relevant first.
// limit <= 0 returns every match.
func (db *DB) FullText(ctx context.Context, query string, limit int) ([]models.Projection, error) {
	if limit <= 0 {
		limit = -1
	}
	out := []models.Projection{}
	if err := db.conn.SelectContext(ctx, &out, fullTextSQL, fullTextArgs(query, limit)...); err != nil {
		return nil, storeErr("full text", err)
	}
	return out, nil
}

// Tags returns notes carrying a tag that contains query, once per note.
func (db *DB) Tags(ctx context.Context, query string) ([]models.Projection, error) {
	return db.factSearch(ctx, "tags", "tag", query)
}

// Links returns notes linking to a target that contains query, once per
// note. Querying with a note's path or name yields its backlinks.
func (db *DB) Links(ctx context.Context, query string) ([]models.Projection, error) {
	return db.factSearch(ctx, "links", "link", query)
}

func (db *DB) factSearch(ctx context.Context, table, column, query string) ([]models.Projection, error) {
	q := fmt.Sprintf(`
		SELECT DISTINCT %s
		FROM %s f
		JOIN notes n ON n.identity = f.identity
		WHERE f.%s LIKE ? ESCAPE '\'
		ORDER BY n.timestamp DESC, n.identity
	`, projectionCols, table, column)

	out := []models.Projection{}
	if err := db.conn.SelectContext(ctx, &out, q, likePattern(query)); err != nil {
		return nil, storeErr(table+" search", err)
	}
	return out, nil
}

// likePattern wraps query in % wildcards, escaping LIKE metacharacters.
func likePattern(query string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(query) + "%"
}

// Note returns a record with all of its derived facts.
func (db *DB) Note(ctx context.Context, id string) (*models.NoteDetail, error) {
	var d models.NoteDetail
	err := db.conn.GetContext(ctx, &d.Projection,
		`SELECT `+projectionCols+` FROM notes n WHERE n.identity = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: note %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, storeErr("get note", err)
	}

	d.Headers = []models.Header{}
	if err := db.conn.SelectContext(ctx, &d.Headers,
		`SELECT level, text FROM headers WHERE identity = ? ORDER BY rowid`, id); err != nil {
		return nil, storeErr("get headers", err)
	}
	d.Tags = []string{}
	if err := db.conn.SelectContext(ctx, &d.Tags,
		`SELECT tag FROM tags WHERE identity = ? ORDER BY rowid`, id); err != nil {
		return nil, storeErr("get tags", err)
	}
	d.Links = []models.Link{}
	if err := db.conn.SelectContext(ctx, &d.Links,
		`SELECT label, link FROM links WHERE identity = ? ORDER BY rowid`, id); err != nil {
		return nil, storeErr("get links", err)
	}
	return &d, nil
}

// Count returns the number of tracked notes.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.GetContext(ctx, &n, `SELECT count(*) FROM notes`); err != nil {
		return 0, storeErr("count", err)
	}
	return n, nil
}
