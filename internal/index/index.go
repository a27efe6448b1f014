package index

import (
	"context"
	"time"

	"github.com/starford/zettel/internal/models"
)

// Writer is the write side of the store.
type Writer interface {
	Apply(ctx context.Context, records []Record) error
	Rename(ctx context.Context, oldPath, newPath string, created time.Time) error
	Remove(ctx context.Context, path string) error
}

// Querier is the read side of the store. Implementations must be safe for
// concurrent use.
type Querier interface {
	FullText(ctx context.Context, query string, limit int) ([]models.Projection, error)
	Tags(ctx context.Context, query string) ([]models.Projection, error)
	Links(ctx context.Context, query string) ([]models.Projection, error)
	Note(ctx context.Context, id string) (*models.NoteDetail, error)
}

// Verify *DB satisfies both sides at compile time.
var (
	_ Writer  = (*DB)(nil)
	_ Querier = (*DB)(nil)
)
