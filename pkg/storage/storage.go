package storage

import "context"

// Kind classifies uploaded binaries.
type Kind string

const (
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
)

// Object describes a stored binary.
type Object struct {
	URL       string `json:"url"`
	StorageID string `json:"storage_id"`
}

// Store is the object-storage collaborator. Implementations host the
// binary content; callers only keep the returned reference.
type Store interface {
	Upload(ctx context.Context, data []byte, kind Kind, filename string) (Object, error)
	Delete(ctx context.Context, storageID string) error
}
