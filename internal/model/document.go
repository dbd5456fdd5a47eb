package model

import "time"

// GeneratedDocument is a rendered descargo stored in the outgoing store.
// ExpiresAt is zero when the document is kept indefinitely.
type GeneratedDocument struct {
	Name        string    `json:"name"`
	StoragePath string    `json:"storage_path"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the document's retention period has elapsed at now.
func (d GeneratedDocument) Expired(now time.Time) bool {
	return !d.ExpiresAt.IsZero() && !now.Before(d.ExpiresAt)
}

// DescargoRequest is the body accepted by the document generator.
type DescargoRequest struct {
	Texto  string `json:"texto"`
	Nombre string `json:"nombre"`
}
