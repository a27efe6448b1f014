package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/zettel/internal/models"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the wiki directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute wiki root.
func (f *FS) Root() string { return f.root }

// safePath resolves a relative path against the wiki root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs := filepath.Join(f.root, cleaned)
	if !f.contains(abs) {
		return "", fmt.Errorf("storage: path escapes wiki root: %s", rel)
	}
	return abs, nil
}

func (f *FS) contains(abs string) bool {
	return abs == f.root || strings.HasPrefix(abs, f.root+string(os.PathSeparator))
}

// Rel converts path into a root-relative path. Absolute paths must lie under
// the root; relative paths are resolved against the working directory first
// and, if that lands outside the root, against the root itself.
func (f *FS) Rel(path string) (string, error) {
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil && f.contains(abs) {
			path = abs
		} else {
			path = filepath.Join(f.root, path)
		}
	}
	path = filepath.Clean(path)
	if !f.contains(path) {
		return "", fmt.Errorf("storage: path outside wiki root: %s", path)
	}
	return filepath.Rel(f.root, path)
}

// List walks dir (relative to root) and returns metadata for every .md file.
func (f *FS) List(dir string) ([]models.NoteMetadata, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []models.NoteMetadata
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !IsNote(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(f.root, p)
		out = append(out, metadata(rel, p, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

// Stat returns metadata for a single wiki file.
func (f *FS) Stat(path string) (models.NoteMetadata, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return models.NoteMetadata{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return models.NoteMetadata{}, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return models.NoteMetadata{}, fmt.Errorf("storage: %s is a directory", path)
	}
	return metadata(path, abs, info), nil
}

func metadata(rel, abs string, info os.FileInfo) models.NoteMetadata {
	return models.NoteMetadata{
		Path:      rel,
		CreatedAt: birthTime(abs, info),
		UpdatedAt: info.ModTime(),
	}
}

// Read returns the raw bytes of a wiki file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}
