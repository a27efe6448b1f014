package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/zettel/internal/apperr"
	"github.com/starford/zettel/internal/storage"
)

// DefaultDebounce is the quiet period after the last filesystem event before
// pending changes are reconciled.
const DefaultDebounce = 2 * time.Second

// EventKind names a watcher-driven index mutation.
type EventKind string

const (
	EventIndexed EventKind = "indexed"
	EventRemoved EventKind = "removed"
	EventRenamed EventKind = "renamed"
)

// Event describes one committed watcher mutation. OldPath is set for renames.
type Event struct {
	Kind    EventKind `json:"kind"`
	Path    string    `json:"path"`
	OldPath string    `json:"old_path,omitempty"`
}

// EventCallback is called after a watcher-driven index change.
type EventCallback func(Event)

// WatchOptions tunes Watch.
type WatchOptions struct {
	// Debounce is the quiet period; DefaultDebounce when zero.
	Debounce time.Duration
	// CatchUp indexes notes created since the last run before watching.
	CatchUp bool
}

// Watch starts an fsnotify watcher on the wiki root and keeps the index in
// step with it until ctx is cancelled. It calls cb (if non-nil) after each
// successful index mutation.
//
// Events are accumulated per path and reconciled once no event has arrived
// for the debounce period. New directories created at runtime are added to
// the watch list.
func (ix *Indexer) Watch(ctx context.Context, opts WatchOptions, cb EventCallback) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	root := ix.store.Root()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrWatchSource, err)
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrWatchSource, err)
	}

	if opts.CatchUp {
		if _, err := ix.CatchUp(ctx); err != nil {
			return err
		}
	}

	ix.logger.Info("watcher: started", slog.String("root", root), slog.Duration("debounce", opts.Debounce))

	var (
		events  = map[string]pending{}
		seq     int
		sums    = map[string]string{}
		timer   *time.Timer
		timerCh <-chan time.Time
	)

	enqueue := func(rel string, op fsnotify.Op) {
		p, ok := events[rel]
		if !ok {
			seq++
			p.seq = seq
		}
		p.ops |= op
		events[rel] = p
		if timer == nil {
			timer = time.NewTimer(opts.Debounce)
			timerCh = timer.C
		} else {
			timer.Reset(opts.Debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			ix.logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			window := events
			events = map[string]pending{}
			ix.reconcile(ctx, window, sums, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil || strings.HasPrefix(rel, "..") {
				continue
			}

			if ev.Op.Has(fsnotify.Create) {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						ix.logger.Warn("watcher: add new dir failed",
							slog.String("path", rel),
							slog.String("error", addErr.Error()))
					} else {
						ix.logger.Debug("watcher: watching new dir", slog.String("path", rel))
					}
					for _, p := range notesUnder(ev.Name, root) {
						enqueue(p, fsnotify.Create)
					}
					continue
				}
			}

			if !storage.IsNote(rel) {
				if ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
					// A vanished directory takes its tracked notes with it.
					for _, p := range ix.trackedUnder(ctx, rel) {
						enqueue(p, ev.Op)
					}
				} else {
					ix.logger.Debug("watcher: ignored", slog.String("path", rel), slog.String("op", ev.Op.String()))
				}
				continue
			}
			enqueue(rel, ev.Op)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			ix.logger.Error("watcher: error",
				slog.String("error", fmt.Errorf("%w: %w", apperr.ErrWatchSource, watchErr).Error()))
		}
	}
}

// reconcile applies one debounce window, one action at a time.
func (ix *Indexer) reconcile(ctx context.Context, window map[string]pending, sums map[string]string, cb EventCallback) {
	exists := func(p string) bool {
		_, err := ix.store.Stat(p)
		return err == nil
	}
	emit := func(e Event) {
		if cb != nil {
			cb(e)
		}
	}

	for _, a := range coalesce(window, exists) {
		if ctx.Err() != nil {
			return
		}
		switch a.kind {
		case actionIndex:
			ix.watchIndex(ctx, a.path, sums, emit)

		case actionRemove:
			delete(sums, a.path)
			err := ix.db.Remove(ctx, a.path)
			switch {
			case errors.Is(err, apperr.ErrNotFound):
				ix.logger.Debug("watcher: remove skipped, not tracked", slog.String("path", a.path))
			case err != nil:
				ix.logger.Warn("watcher: remove failed", slog.String("path", a.path), slog.String("error", err.Error()))
			default:
				ix.logger.Debug("watcher: removed", slog.String("path", a.path))
				emit(Event{Kind: EventRemoved, Path: a.path})
			}

		case actionRename:
			err := ix.rename(ctx, a.oldPath, a.path)
			switch {
			case errors.Is(err, apperr.ErrNotFound):
				ix.logger.Debug("watcher: rename source not tracked, indexing target",
					slog.String("old_path", a.oldPath), slog.String("path", a.path))
				ix.watchIndex(ctx, a.path, sums, emit)
			case err != nil:
				ix.logger.Warn("watcher: rename failed",
					slog.String("old_path", a.oldPath), slog.String("path", a.path), slog.String("error", err.Error()))
			default:
				if sum, ok := sums[a.oldPath]; ok {
					sums[a.path] = sum
					delete(sums, a.oldPath)
				}
				ix.logger.Debug("watcher: renamed", slog.String("old_path", a.oldPath), slog.String("path", a.path))
				emit(Event{Kind: EventRenamed, Path: a.path, OldPath: a.oldPath})
			}
		}
	}
}

func (ix *Indexer) watchIndex(ctx context.Context, path string, sums map[string]string, emit func(Event)) {
	sum, changed, err := ix.indexOne(ctx, path, sums[path])
	if err != nil {
		ix.logger.Warn("watcher: index failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	if !changed {
		ix.logger.Debug("watcher: unchanged", slog.String("path", path))
		return
	}
	sums[path] = sum
	ix.logger.Debug("watcher: indexed", slog.String("path", path))
	emit(Event{Kind: EventIndexed, Path: path})
}

// trackedUnder returns the tracked note paths inside dir.
func (ix *Indexer) trackedUnder(ctx context.Context, dir string) []string {
	tracked, err := ix.db.PathIdentities(ctx)
	if err != nil {
		ix.logger.Warn("watcher: tracked paths lookup failed", slog.String("error", err.Error()))
		return nil
	}
	prefix := dir + string(os.PathSeparator)
	var out []string
	for p := range tracked {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	return out
}

// notesUnder lists markdown files below dir as root-relative paths.
func notesUnder(dir, root string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !storage.IsNote(p) {
			return nil
		}
		if rel, relErr := filepath.Rel(root, p); relErr == nil {
			out = append(out, rel)
		}
		return nil
	})
	return out
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
