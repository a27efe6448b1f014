// Package extract turns raw markdown notes into headers, tags, links and a title.
package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/starford/zettel/internal/apperr"
	"github.com/starford/zettel/internal/models"
)

var (
	tagRe    = regexp.MustCompile(`#[A-Za-z0-9._-]+`)
	linkRe   = regexp.MustCompile(`\[([^\[\]]+)\]\(([^)]*)\)|\[\[([^\[\]]+)\]\]`)
	headerRe = regexp.MustCompile(`(?m)^(#{1,6}) (.*)$`)
)

// Extract parses one note. It is a pure function of its inputs.
func Extract(path string, data []byte, created time.Time) (*models.Note, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("extract %s: invalid utf-8: %w", path, apperr.ErrExtraction)
	}
	body := string(data)
	headers := extractHeaders(body)

	return &models.Note{
		Path:      path,
		Body:      body,
		CreatedAt: created,
		Title:     deriveTitle(headers, path),
		Headers:   headers,
		Tags:      extractTags(body),
		Links:     extractLinks(body),
	}, nil
}

// extractTags returns every tag occurrence, marker included, duplicates kept.
func extractTags(body string) []string {
	return tagRe.FindAllString(body, -1)
}

// extractLinks normalizes [label](target) and [[target]] into one shape.
func extractLinks(body string) []models.Link {
	matches := linkRe.FindAllStringSubmatch(body, -1)
	out := make([]models.Link, 0, len(matches))
	for _, m := range matches {
		if m[3] != "" {
			out = append(out, models.Link{Label: m[3], Target: m[3]})
			continue
		}
		out = append(out, models.Link{Label: m[1], Target: m[2]})
	}
	return out
}

func extractHeaders(body string) []models.Header {
	matches := headerRe.FindAllStringSubmatch(body, -1)
	out := make([]models.Header, 0, len(matches))
	for _, m := range matches {
		out = append(out, models.Header{
			Level: len(m[1]),
			Text:  strings.TrimRight(m[2], "\r"),
		})
	}
	return out
}

// deriveTitle returns the first level-1 header, otherwise the path.
func deriveTitle(headers []models.Header, path string) string {
	for _, h := range headers {
		if h.Level == 1 {
			return h.Text
		}
	}
	return path
}
