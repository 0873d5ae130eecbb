// Package models defines the domain types shared by the archive surfaces.
package models

import "time"

// Paper is the read-side view of one stored note document.
type Paper struct {
	ID        string    `json:"id"`
	Year      string    `json:"year"`
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags"`
	Tagged    bool      `json:"tagged"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileMeta is a lightweight listing entry returned by storage walks.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
