package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"github.com/starford/zettel/internal/apperr"
	"github.com/starford/zettel/internal/checksum"
	"github.com/starford/zettel/internal/extract"
	"github.com/starford/zettel/internal/identity"
	"github.com/starford/zettel/internal/models"
	"github.com/starford/zettel/internal/storage"
)

// Report summarizes one indexing run. Failures lists the notes dropped from
// the batch and why; they never abort the run.
type Report struct {
	Indexed  int
	Pruned   int
	Failures []extract.Failure
}

// Indexer drives the extract → resolve → apply pipeline over a wiki.
type Indexer struct {
	db       *DB
	store    storage.Provider
	resolver *Resolver
	workers  int
	logger   *slog.Logger
}

// NewIndexer wires the pipeline. workers <= 0 means one per CPU.
func NewIndexer(db *DB, store storage.Provider, gen identity.Generator, workers int, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		db:       db,
		store:    store,
		resolver: NewResolver(db, gen),
		workers:  workers,
		logger:   logger,
	}
}

// DB returns the store the indexer writes to.
func (ix *Indexer) DB() *DB { return ix.db }

// IndexAll walks the whole wiki, re-extracts every note and commits the
// batch in one transaction. Records whose file no longer exists are pruned
// in the same transaction.
func (ix *Indexer) IndexAll(ctx context.Context) (Report, error) {
	return ix.scan(ctx, 0, true)
}

// CatchUp indexes only notes created after the store's high-water mark.
// Notes edited in place since the last run are not revisited.
func (ix *Indexer) CatchUp(ctx context.Context) (Report, error) {
	mark, err := ix.db.HighWaterMark(ctx)
	if err != nil {
		return Report{}, err
	}
	ix.logger.Info("sync: catch-up", slog.Int64("high_water_mark", mark))
	return ix.scan(ctx, mark, false)
}

func (ix *Indexer) scan(ctx context.Context, since int64, prune bool) (Report, error) {
	metas, err := ix.store.List("")
	if err != nil {
		return Report{}, fmt.Errorf("sync: list wiki: %w", err)
	}
	paths := lo.FilterMap(metas, func(m models.NoteMetadata, _ int) (string, bool) {
		return m.Path, m.CreatedAt.Unix() > since
	})

	var gone func(string) bool
	if prune {
		onDisk := lo.SliceToMap(metas, func(m models.NoteMetadata) (string, struct{}) {
			return m.Path, struct{}{}
		})
		// Re-stat paths missing from the listing: they may have been created
		// and tracked by the watcher since.
		gone = func(p string) bool {
			if _, ok := onDisk[p]; ok {
				return false
			}
			_, err := ix.store.Stat(p)
			return err != nil
		}
	}

	return ix.run(ctx, paths, gone)
}

// IndexPaths re-indexes the given notes. Paths may be absolute or relative
// to the working directory or the wiki root; paths outside the wiki or not
// ending in .md are reported as failures.
func (ix *Indexer) IndexPaths(ctx context.Context, paths []string) (Report, error) {
	var (
		rel      []string
		rejected []extract.Failure
	)
	for _, p := range paths {
		r, err := ix.store.Rel(p)
		if err == nil && !storage.IsNote(r) {
			err = fmt.Errorf("not a markdown note")
		}
		if err != nil {
			rejected = append(rejected, extract.Failure{Path: p, Err: fmt.Errorf("%w: %w", apperr.ErrExtraction, err)})
			continue
		}
		rel = append(rel, r)
	}

	rep, err := ix.run(ctx, lo.Uniq(rel), nil)
	rep.Failures = append(rejected, rep.Failures...)
	return rep, err
}

func (ix *Indexer) run(ctx context.Context, paths []string, gone func(string) bool) (Report, error) {
	out := extract.Batch(ctx, ix.store, paths, ix.workers)
	rep := Report{Failures: out.Failures}
	for _, f := range out.Failures {
		ix.logger.Warn("sync: extract failed", slog.String("path", f.Path), slog.String("error", f.Err.Error()))
	}
	if err := ctx.Err(); err != nil {
		return rep, err
	}

	indexed, pruned, err := ix.db.index(ctx, ix.resolver, out.Notes, gone)
	if err != nil {
		return rep, err
	}
	rep.Indexed, rep.Pruned = indexed, pruned

	ix.logger.Info("sync: committed",
		slog.Int("indexed", rep.Indexed),
		slog.Int("pruned", rep.Pruned),
		slog.Int("failed", len(rep.Failures)))
	return rep, nil
}

// indexOne re-indexes a single note as a one-record batch. When the content
// checksum equals lastSum nothing is written and changed is false.
func (ix *Indexer) indexOne(ctx context.Context, path, lastSum string) (sum string, changed bool, err error) {
	meta, err := ix.store.Stat(path)
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", apperr.ErrExtraction, err)
	}
	data, err := ix.store.Read(path)
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", apperr.ErrExtraction, err)
	}
	sum = checksum.Sum(data)
	if sum == lastSum {
		return sum, false, nil
	}
	note, err := extract.Extract(path, data, meta.CreatedAt)
	if err != nil {
		return "", false, err
	}
	if _, _, err := ix.db.index(ctx, ix.resolver, []*models.Note{note}, nil); err != nil {
		return "", false, err
	}
	return sum, true, nil
}

// rename moves a tracked note, refreshing its timestamp from the new file.
func (ix *Indexer) rename(ctx context.Context, oldPath, newPath string) error {
	meta, err := ix.store.Stat(newPath)
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrExtraction, err)
	}
	return ix.db.Rename(ctx, oldPath, newPath, meta.CreatedAt)
}
