// Package storage defines the archive file-system abstraction.
package storage

import "github.com/starford/papernotes/internal/models"

// Provider is the interface for archive file operations. All paths are
// relative to the archive root.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.FileMeta, error)
	// Exists reports whether a file is present at path.
	Exists(path string) (bool, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Create writes content to path only if nothing exists there yet.
	// It returns apperr.ErrAlreadyExists otherwise.
	Create(path string, content []byte) error
	// Write atomically replaces the content at path.
	Write(path string, content []byte) error
	// Root returns the absolute archive root.
	Root() string
}
