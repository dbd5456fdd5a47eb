// Package storage contains file/object storage abstractions for uploaded images and generated documents.
// Keys are single, already-sanitized names; implementations refuse keys that would leave their root.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotExist is returned when no object is stored under the key.
	ErrNotExist = errors.New("storage: object does not exist")
	// ErrOutsideRoot is returned when a key resolves outside the storage root.
	ErrOutsideRoot = errors.New("storage: key resolves outside storage root")
)

// PutObjectOptions define optional parameters for storing objects.
// Size should be the exact number of bytes if known; if unknown, set to -1.
// ContentType and Metadata are optional.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the interface shared by the local directory store and the S3-compatible store.
type Storage interface {
	// Put stores the reader's content under key, replacing any previous object.
	// Readers never observe a partially written object.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object by key. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
	// List returns info for every stored object. In-flight temporary files are not listed.
	List(ctx context.Context) ([]ObjectInfo, error)
}
