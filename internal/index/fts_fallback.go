//go:build !sqlite_fts5

package index

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

func initFTS(conn *sql.DB) error {
	// FTS5 not compiled in; full_text is a plain relation matched with LIKE.
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS full_text (
			identity TEXT NOT NULL,
			body     TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_full_text_identity ON full_text(identity);
	`)
	return err
}

// fullTextSQL ranks by occurrence count of the query in the body.
const fullTextSQL = `
	SELECT n.identity, n.title, n.timestamp, n.file_path
	FROM full_text ft
	JOIN notes n ON n.identity = ft.identity
	WHERE ft.body LIKE ? ESCAPE '\'
	ORDER BY (length(ft.body) - length(replace(lower(ft.body), lower(?), ''))) DESC, n.identity
	LIMIT ?
`

func fullTextArgs(query string, limit int) []any {
	return []any{likePattern(query), query, limit}
}

func ftsReplace(ctx context.Context, tx *sqlx.Tx, id, body string) error {
	if err := ftsDelete(ctx, tx, id); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO full_text (identity, body) VALUES (?, ?)`, id, body)
	return err
}

func ftsDelete(ctx context.Context, tx *sqlx.Tx, id string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM full_text WHERE identity = ?`, id)
	return err
}
