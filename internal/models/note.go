// Package models defines the domain types for zettel.
package models

import "time"

// Note is the structured bundle extracted from one markdown file.
type Note struct {
	Path      string
	Body      string
	CreatedAt time.Time
	Title     string
	Headers   []Header
	Tags      []string
	Links     []Link
}

// Header is an ATX heading found in a note body.
type Header struct {
	Level int    `json:"level" db:"level"`
	Text  string `json:"text" db:"text"`
}

// Link is a bracket link or wiki link. Wiki links carry Label == Target.
type Link struct {
	Label  string `json:"label" db:"label"`
	Target string `json:"target" db:"link"`
}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Projection is the row shape every query returns.
type Projection struct {
	Identity  string `json:"identity" db:"identity"`
	Title     string `json:"title" db:"title"`
	Timestamp int64  `json:"timestamp" db:"timestamp"`
	Path      string `json:"file_path" db:"file_path"`
}

// Created returns the projection timestamp as a time value.
func (p Projection) Created() time.Time {
	return time.Unix(p.Timestamp, 0)
}

// NoteDetail is a record together with all of its derived facts.
type NoteDetail struct {
	Projection
	Headers []Header `json:"headers"`
	Tags    []string `json:"tags"`
	Links   []Link   `json:"links"`
}
