package identity

import (
	"errors"
	"time"
)

// Collection names used by this package. The index collection is a
// denormalized mirror of the repository holding only what recognition
// needs, so matching never loads image paths.
const (
	CollectionIdentities = "identities"
	CollectionIndex      = "embeddings"
)

var (
	// ErrNotFound is returned when the referenced identity does not exist.
	ErrNotFound = errors.New("identity not found")

	// ErrValidation is returned for malformed enrollment input.
	ErrValidation = errors.New("validation failed")

	// ErrConfirmationRequired is returned when a delete request lacks the
	// explicit confirmation flag.
	ErrConfirmationRequired = errors.New("confirmation required")
)

// Identity is one enrolled person: a stable sequential id, a display name,
// and the embedding vectors extracted from their enrollment photos.
// Embeddings and ImagePaths are index-aligned: embedding i came from the
// photo stored at ImagePaths[i].
type Identity struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Embeddings [][]float32 `json:"embeddings"`
	ImagePaths []string    `json:"image_paths"`
	CreatedAt  time.Time   `json:"created_at"`
}

// IndexEntry is the denormalized per-identity record in the embedding
// index collection.
type IndexEntry struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Embeddings [][]float32 `json:"embeddings"`
}
