// Package apperr holds the sentinel errors shared across zettel packages.
// Callers wrap them with fmt.Errorf("...: %w", err) and match with errors.Is.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConfiguration = errors.New("configuration error")
	ErrExtraction    = errors.New("extraction failed")
	ErrStore         = errors.New("store error")
	ErrWatchSource   = errors.New("watch source error")
)
