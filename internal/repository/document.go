package repository

import (
	"context"
	"errors"
	"time"

	"impugnaya/internal/model"
)

// ErrNotFound is returned by FindByName when no document is registered under the name.
var ErrNotFound = errors.New("generated document not found")

// GeneratedDocumentRepository records generated documents so they can be evicted later.
// No business logic here, only persistence operations.
type GeneratedDocumentRepository interface {
	// Upsert inserts the document or replaces the record with the same name.
	Upsert(ctx context.Context, doc *model.GeneratedDocument) (*model.GeneratedDocument, error)

	// FindByName returns the document registered under name, or ErrNotFound.
	FindByName(ctx context.Context, name string) (*model.GeneratedDocument, error)

	// ListExpired returns up to limit documents whose ExpiresAt is set and not after before,
	// oldest expiry first.
	ListExpired(ctx context.Context, before time.Time, limit int) ([]model.GeneratedDocument, error)

	// DeleteExpired removes the record by name only if it is still expired at before,
	// so a document regenerated after being listed survives. It reports whether a row was removed.
	DeleteExpired(ctx context.Context, name string, before time.Time) (bool, error)
}
