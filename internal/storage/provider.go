// Package storage defines the wiki file-system abstraction.
package storage

import (
	"strings"

	"github.com/starford/zettel/internal/models"
)

// Provider is the read-only view of a wiki the indexer works from.
// All paths are relative to the wiki root unless stated otherwise.
type Provider interface {
	// Root returns the absolute wiki root.
	Root() string
	// Rel converts a path (absolute or relative to the working directory)
	// into a path relative to the wiki root.
	Rel(path string) (string, error)
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.NoteMetadata, error)
	// Stat returns metadata for the file at path.
	Stat(path string) (models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
}

// IsNote reports whether name looks like a markdown note.
func IsNote(name string) bool {
	return strings.HasSuffix(name, ".md")
}
