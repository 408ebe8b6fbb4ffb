// Package storage reads and writes note files inside the vault directory.
package storage

import "github.com/starford/now/internal/models"

// Provider is the interface for vault file operations. Paths are
// slash-separated and relative to the vault root.
type Provider interface {
	// Root returns the absolute vault directory.
	Root() string
	// List returns metadata for every note file under dir.
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the note at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the note at path.
	Write(path string, content []byte) error
	// Create writes a new note and fails with apperr.ErrAlreadyExists if
	// path is taken.
	Create(path string, content []byte) error
	// Delete removes the note at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
}
