// Package storage holds uploaded attachments outside the database.
package storage

import "context"

// StoredObject is the stable reference returned for a stored file.
type StoredObject struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// AttachmentStore durably holds uploaded files and deletes them by key.
type AttachmentStore interface {
	Store(ctx context.Context, key string, data []byte, contentType string) (StoredObject, error)
	Delete(ctx context.Context, key string) error
}
