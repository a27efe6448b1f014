// Package identity issues the permanent opaque tokens that name notes.
package identity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Schemes accepted by New.
const (
	SchemeUUID      = "uuid"
	SchemeTimestamp = "timestamp"
)

// Generator issues a fresh, globally unique identity for a newly seen note.
// created is the note's creation time; generators may ignore it.
type Generator interface {
	New(created time.Time) string
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(created time.Time) string

// New calls f.
func (f GeneratorFunc) New(created time.Time) string { return f(created) }

// UUID issues random v4 UUIDs.
type UUID struct{}

// New returns a random token unrelated to content or time.
func (UUID) New(time.Time) string {
	return uuid.NewString()
}

// Timestamp formats the creation time with Layout (a Go time layout) and
// appends a short random suffix so notes created within the same
// timestamp resolution never collide.
type Timestamp struct {
	Layout string
}

// New returns "<formatted time>-<8 hex chars>".
func (g Timestamp) New(created time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return created.UTC().Format(g.Layout) + "-" + suffix
}

// FromScheme returns the generator configured by scheme.
func FromScheme(scheme, layout string) (Generator, error) {
	switch scheme {
	case "", SchemeUUID:
		return UUID{}, nil
	case SchemeTimestamp:
		if layout == "" {
			return nil, fmt.Errorf("identity: timestamp scheme requires a layout")
		}
		return Timestamp{Layout: layout}, nil
	default:
		return nil, fmt.Errorf("identity: unknown scheme %q", scheme)
	}
}

var strftimeLayout = strings.NewReplacer(
	"%Y", "2006",
	"%y", "06",
	"%m", "01",
	"%d", "02",
	"%e", "_2",
	"%H", "15",
	"%I", "03",
	"%M", "04",
	"%S", "05",
	"%p", "PM",
	"%b", "Jan",
	"%B", "January",
	"%a", "Mon",
	"%A", "Monday",
	"%j", "002",
	"%Z", "MST",
	"%z", "-0700",
	"%%", "%",
)

// LayoutFromStrftime converts a strftime-style format such as "%Y%m%d%H%M"
// into a Go time layout. Unknown directives are left as they are.
func LayoutFromStrftime(format string) string {
	return strftimeLayout.Replace(format)
}
