//go:build sqlite_fts5

package index

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS full_text USING fts5(
			identity UNINDEXED,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

// fullTextSQL ranks by bm25 through the fts5 rank column; identity breaks ties.
const fullTextSQL = `
	SELECT n.identity, n.title, n.timestamp, n.file_path
	FROM full_text ft
	JOIN notes n ON n.identity = ft.identity
	WHERE full_text MATCH ?
	ORDER BY ft.rank, n.identity
	LIMIT ?
`

func fullTextArgs(query string, limit int) []any {
	return []any{query, limit}
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
