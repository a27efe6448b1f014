package extract

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/zettel/internal/apperr"
	"github.com/starford/zettel/internal/models"
)

// Source is the read side of a wiki the batch extractor needs.
type Source interface {
	Stat(path string) (models.NoteMetadata, error)
	Read(path string) ([]byte, error)
}

// Failure records why a single note was dropped from a batch.
type Failure struct {
	Path string
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Outcome pairs the notes that extracted cleanly with those that did not.
type Outcome struct {
	Notes    []*models.Note
	Failures []Failure
}

// Batch extracts paths concurrently across at most workers goroutines
// (runtime.NumCPU when workers <= 0). A failing note is reported in
// Outcome.Failures and never aborts the others. Both slices are sorted by path.
func Batch(ctx context.Context, src Source, paths []string, workers int) Outcome {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var (
		mu  sync.Mutex
		out Outcome
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, p := range paths {
		g.Go(func() error {
			note, err := one(gCtx, src, p)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out.Failures = append(out.Failures, Failure{Path: p, Err: err})
				return nil
			}
			out.Notes = append(out.Notes, note)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(out.Notes, func(i, j int) bool { return out.Notes[i].Path < out.Notes[j].Path })
	sort.Slice(out.Failures, func(i, j int) bool { return out.Failures[i].Path < out.Failures[j].Path })
	return out
}

func one(ctx context.Context, src Source, path string) (*models.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	meta, err := src.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrExtraction, err)
	}
	data, err := src.Read(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrExtraction, err)
	}
	return Extract(path, data, meta.CreatedAt)
}
