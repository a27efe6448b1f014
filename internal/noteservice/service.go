// Package noteservice is the command-layer facade over indexing and queries.
package noteservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/zettel/internal/apperr"
	"github.com/starford/zettel/internal/index"
	"github.com/starford/zettel/internal/models"
)

// Service coordinates the indexer and the query side of the store.
type Service struct {
	ix *index.Indexer
	q  index.Querier
}

// NewService creates a new note service.
func NewService(ix *index.Indexer) *Service {
	return &Service{ix: ix, q: ix.DB()}
}

// IndexAll re-indexes the whole wiki and prunes records whose file is gone.
func (s *Service) IndexAll(ctx context.Context) (index.Report, error) {
	return s.ix.IndexAll(ctx)
}

// IndexPaths re-indexes only the given notes.
func (s *Service) IndexPaths(ctx context.Context, paths []string) (index.Report, error) {
	if len(paths) == 0 {
		return index.Report{}, fmt.Errorf("%w: no paths given", apperr.ErrConfiguration)
	}
	return s.ix.IndexPaths(ctx, paths)
}

// Watch keeps the index synchronized with the wiki until ctx is cancelled.
func (s *Service) Watch(ctx context.Context, opts index.WatchOptions, cb index.EventCallback) error {
	return s.ix.Watch(ctx, opts, cb)
}

// FullText searches note bodies. A blank query matches nothing.
func (s *Service) FullText(ctx context.Context, query string, limit int) ([]models.Projection, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Projection{}, nil
	}
	return s.q.FullText(ctx, query, limit)
}

// Tags finds notes carrying a tag containing query.
func (s *Service) Tags(ctx context.Context, query string) ([]models.Projection, error) {
	return s.q.Tags(ctx, strings.TrimSpace(query))
}

// Links finds notes linking to a target containing query.
func (s *Service) Links(ctx context.Context, query string) ([]models.Projection, error) {
	return s.q.Links(ctx, strings.TrimSpace(query))
}

// Note returns one record with its headers, tags and links.
func (s *Service) Note(ctx context.Context, id string) (*models.NoteDetail, error) {
	return s.q.Note(ctx, id)
}

// Count returns the number of indexed notes.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.ix.DB().Count(ctx)
}
