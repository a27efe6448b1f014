package index

import (
	"path/filepath"
	"sort"

	"github.com/fsnotify/fsnotify"
)

// pending is the accumulated state of one path inside a debounce window.
type pending struct {
	ops fsnotify.Op
	seq int // arrival order of the first event
}

type actionKind int

const (
	actionIndex actionKind = iota
	actionRemove
	actionRename
)

func (k actionKind) String() string {
	switch k {
	case actionIndex:
		return "index"
	case actionRemove:
		return "remove"
	case actionRename:
		return "rename"
	}
	return "unknown"
}

// action is one terminal reconciliation step produced by coalesce.
type action struct {
	kind    actionKind
	path    string
	oldPath string // rename only
}

// coalesce folds a window of pending events into terminal actions ordered by
// first arrival. exists reports whether a path is present on disk at flush
// time.
//
// A path that is gone after receiving a Rename op is paired with a created
// path from the same window: a created path with the same base name first,
// otherwise the single remaining created path when exactly one gone and one
// created path are left. Paired paths become a rename followed by an index of
// the target, so a note moved in never keeps the facts of the one moved out;
// for a plain move the index is skipped by checksum. Every other gone path is
// removed and every present path is indexed.
func coalesce(events map[string]pending, exists func(string) bool) []action {
	paths := make([]string, 0, len(events))
	for p := range events {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool {
		a, b := events[paths[i]], events[paths[j]]
		if a.seq != b.seq {
			return a.seq < b.seq
		}
		return paths[i] < paths[j]
	})

	present := make(map[string]bool, len(paths))
	var renamedAway, created []string
	for _, p := range paths {
		present[p] = exists(p)
		ev := events[p]
		switch {
		case !present[p] && ev.ops.Has(fsnotify.Rename):
			renamedAway = append(renamedAway, p)
		case present[p] && ev.ops.Has(fsnotify.Create):
			created = append(created, p)
		}
	}

	target := map[string]string{} // old -> new
	claimed := map[string]bool{}
	for _, old := range renamedAway {
		for _, p := range created {
			if !claimed[p] && filepath.Base(p) == filepath.Base(old) {
				target[old] = p
				claimed[p] = true
				break
			}
		}
	}
	var leftOld, leftNew []string
	for _, old := range renamedAway {
		if _, ok := target[old]; !ok {
			leftOld = append(leftOld, old)
		}
	}
	for _, p := range created {
		if !claimed[p] {
			leftNew = append(leftNew, p)
		}
	}
	if len(leftOld) == 1 && len(leftNew) == 1 {
		target[leftOld[0]] = leftNew[0]
		claimed[leftNew[0]] = true
	}

	out := make([]action, 0, len(paths))
	for _, p := range paths {
		switch {
		case claimed[p]:
			// emitted with its rename source
		case present[p]:
			out = append(out, action{kind: actionIndex, path: p})
		default:
			next, ok := target[p]
			if !ok {
				out = append(out, action{kind: actionRemove, path: p})
				continue
			}
			out = append(out,
				action{kind: actionRename, path: next, oldPath: p},
				action{kind: actionIndex, path: next})
		}
	}
	return out
}
