package api

import (
	"github.com/starford/zettel/internal/models"
)

// Projection is a single query hit (aliased from the domain layer).
type Projection = models.Projection

// NoteDetail is a record with its derived facts (aliased from the domain layer).
type NoteDetail = models.NoteDetail

// ResultsResponse wraps the hits of any query endpoint.
type ResultsResponse struct {
	Results []Projection `json:"results" validate:"required"`
}

// ReindexRequest selects what to re-index. All takes precedence over Paths.
type ReindexRequest struct {
	All   bool     `json:"all" example:"false"`
	Paths []string `json:"paths" example:"notes/hello.md"`
}

// ReindexFailure names a note that could not be indexed.
type ReindexFailure struct {
	Path  string `json:"path" example:"notes/broken.md" validate:"required"`
	Error string `json:"error" example:"extraction failed" validate:"required"`
}

// ReindexResponse reports the outcome of a reindex request.
type ReindexResponse struct {
	Indexed  int              `json:"indexed" example:"12" validate:"required"`
	Pruned   int              `json:"pruned" example:"0" validate:"required"`
	Failures []ReindexFailure `json:"failures" validate:"required"`
}
