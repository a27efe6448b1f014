// Package output renders query results for the terminal and for launchers.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/samber/lo"

	"github.com/starford/zettel/internal/apperr"
	"github.com/starford/zettel/internal/models"
)

// Format selects a result renderer.
type Format int

const (
	Text Format = iota
	JSON
	Alfred
)

var formatNames = map[Format]string{
	Text:   "text",
	JSON:   "json",
	Alfred: "alfred",
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat maps a flag value onto a Format.
func ParseFormat(s string) (Format, error) {
	for f, name := range formatNames {
		if strings.EqualFold(s, name) {
			return f, nil
		}
	}
	return Text, fmt.Errorf("%w: unknown output format %q (want %s)",
		apperr.ErrConfiguration, s, strings.Join(FormatNames(), ", "))
}

// FormatNames lists the accepted format names in declaration order.
func FormatNames() []string {
	return []string{Text.String(), JSON.String(), Alfred.String()}
}

// Render writes results to w in the chosen format. Stored paths are relative
// to the wiki; they are joined onto root so launchers can open them directly.
func Render(w io.Writer, f Format, root string, results []models.Projection) error {
	results = absolute(root, results)
	switch f {
	case Text:
		return renderText(w, results)
	case JSON:
		return writeJSON(w, results)
	case Alfred:
		return writeJSON(w, alfredResults(results))
	}
	return fmt.Errorf("output: unsupported format %s", f)
}

func absolute(root string, results []models.Projection) []models.Projection {
	if root == "" {
		return results
	}
	return lo.Map(results, func(r models.Projection, _ int) models.Projection {
		if !filepath.IsAbs(r.Path) {
			r.Path = filepath.Join(root, r.Path)
		}
		return r
	})
}

var (
	countColor = color.New(color.Bold)
	titleColor = color.New(color.FgCyan)
	pathColor  = color.New(color.Faint)
)

func renderText(w io.Writer, results []models.Projection) error {
	if _, err := countColor.Fprintf(w, "%d results\n", len(results)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "Title,Path"); err != nil {
		return err
	}
	for _, r := range results {
		if _, err := fmt.Fprintf(w, "%s,%s\n", titleColor.Sprint(r.Title), pathColor.Sprint(r.Path)); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type alfredDoc struct {
	Items []alfredItem `json:"items"`
}

type alfredItem struct {
	UID          string     `json:"uid"`
	Type         string     `json:"type"`
	Title        string     `json:"title"`
	Subtitle     string     `json:"subtitle"`
	Arg          string     `json:"arg"`
	Autocomplete string     `json:"autocomplete"`
	Icon         alfredIcon `json:"icon"`
}

type alfredIcon struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

func alfredResults(results []models.Projection) alfredDoc {
	return alfredDoc{Items: lo.Map(results, func(r models.Projection, _ int) alfredItem {
		return alfredItem{
			UID:          r.Identity,
			Type:         "file",
			Title:        r.Title,
			Subtitle:     r.Path,
			Arg:          r.Path,
			Autocomplete: r.Title,
			Icon:         alfredIcon{Type: "filetype", Path: r.Path},
		}
	})}
}
