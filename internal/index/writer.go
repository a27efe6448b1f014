package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/starford/zettel/internal/apperr"
	"github.com/starford/zettel/internal/models"
)

// Record is an extracted note bound to its resolved identity.
type Record struct {
	Identity string
	Note     *models.Note
}

func storeErr(op string, err error) error {
	if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrStore) {
		return err
	}
	return fmt.Errorf("index: %s: %w: %w", op, apperr.ErrStore, err)
}

// Apply writes a batch of records in one transaction. For each record the
// notes row is upserted and every derived fact (headers, tags, links,
// full-text body) is replaced, never merged. Either the whole batch commits
// or none of it does.
func (db *DB) Apply(ctx context.Context, records []Record) error {
	return db.apply(ctx, records, nil)
}

// apply is Apply plus an optional fan-out removal of stale identities in the
// same transaction.
func (db *DB) apply(ctx context.Context, records []Record, stale []string) error {
	return db.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, r := range records {
			if err := writeRecord(ctx, tx, r); err != nil {
				return err
			}
		}
		for _, id := range stale {
			if err := fanOutDelete(ctx, tx, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// index resolves notes against the records tracked at commit time and writes
// them in one transaction. Tracked paths for which gone reports true are
// pruned in the same transaction; a nil gone prunes nothing.
func (db *DB) index(ctx context.Context, r *Resolver, notes []*models.Note, gone func(path string) bool) (indexed, pruned int, err error) {
	err = db.inTx(ctx, func(tx *sqlx.Tx) error {
		tracked, err := pathIdentities(ctx, tx)
		if err != nil {
			return err
		}
		var stale []string
		if gone != nil {
			for p, id := range tracked {
				if gone(p) {
					stale = append(stale, id)
				}
			}
		}
		for _, rec := range r.bind(tracked, notes) {
			if err := writeRecord(ctx, tx, rec); err != nil {
				return err
			}
		}
		for _, id := range stale {
			if err := fanOutDelete(ctx, tx, id); err != nil {
				return err
			}
		}
		indexed, pruned = len(notes), len(stale)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return indexed, pruned, nil
}

func (db *DB) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return storeErr("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit", err)
	}
	return nil
}

func writeRecord(ctx context.Context, tx *sqlx.Tx, r Record) error {
	n := r.Note
	if r.Identity == "" || n == nil {
		return storeErr("write record", errors.New("record without identity or note"))
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO notes (identity, timestamp, title, file_path)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			timestamp = excluded.timestamp,
			title     = excluded.title,
			file_path = excluded.file_path
	`, r.Identity, n.CreatedAt.Unix(), n.Title, n.Path)
	if err != nil {
		return storeErr("upsert note "+n.Path, err)
	}

	for _, table := range factTables {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE identity = ?`, r.Identity); err != nil {
			return storeErr("clear "+table, err)
		}
	}
	for _, h := range n.Headers {
		if _, err := tx.ExecContext(ctx, `INSERT INTO headers (identity, level, text) VALUES (?, ?, ?)`,
			r.Identity, h.Level, h.Text); err != nil {
			return storeErr("insert header", err)
		}
	}
	for _, tag := range n.Tags {
		if _, err := tx.ExecContext(ctx, `INSERT INTO tags (identity, tag) VALUES (?, ?)`,
			r.Identity, tag); err != nil {
			return storeErr("insert tag", err)
		}
	}
	for _, l := range n.Links {
		if _, err := tx.ExecContext(ctx, `INSERT INTO links (identity, link, label) VALUES (?, ?, ?)`,
			r.Identity, l.Target, l.Label); err != nil {
			return storeErr("insert link", err)
		}
	}

	if err := ftsReplace(ctx, tx, r.Identity, n.Body); err != nil {
		return storeErr("replace full text", err)
	}
	return nil
}

// Rename moves the record tracked at oldPath to newPath. Only metadata
// changes: the timestamp is refreshed from created, and a path-derived title
// follows the path. Derived facts are left as they are. A record already
// tracked at newPath is removed first, since its file was replaced.
func (db *DB) Rename(ctx context.Context, oldPath, newPath string, created time.Time) error {
	return db.inTx(ctx, func(tx *sqlx.Tx) error {
		id, err := identityByPath(ctx, tx, oldPath)
		if err != nil {
			return err
		}
		if clash, err := identityByPath(ctx, tx, newPath); err == nil && clash != id {
			if err := fanOutDelete(ctx, tx, clash); err != nil {
				return err
			}
		} else if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE notes
			SET file_path = ?,
			    timestamp = ?,
			    title     = CASE WHEN title = ? THEN ? ELSE title END
			WHERE identity = ?
		`, newPath, created.Unix(), oldPath, newPath, id)
		if err != nil {
			return storeErr("rename", err)
		}
		return nil
	})
}

// Remove deletes the record tracked at path together with every fact row
// keyed by its identity.
func (db *DB) Remove(ctx context.Context, path string) error {
	return db.inTx(ctx, func(tx *sqlx.Tx) error {
		id, err := identityByPath(ctx, tx, path)
		if err != nil {
			return err
		}
		return fanOutDelete(ctx, tx, id)
	})
}

// RemoveIdentities fan-out deletes the given identities in one transaction.
func (db *DB) RemoveIdentities(ctx context.Context, ids []string) error {
	return db.apply(ctx, nil, ids)
}

func fanOutDelete(ctx context.Context, tx *sqlx.Tx, id string) error {
	for _, table := range factTables {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE identity = ?`, id); err != nil {
			return storeErr("delete "+table, err)
		}
	}
	if err := ftsDelete(ctx, tx, id); err != nil {
		return storeErr("delete full text", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE identity = ?`, id); err != nil {
		return storeErr("delete note", err)
	}
	return nil
}
