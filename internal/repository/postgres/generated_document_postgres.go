package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"impugnaya/internal/model"
	"impugnaya/internal/repository"
)

// GeneratedDocumentPostgres is a PostgreSQL implementation of repository.GeneratedDocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type GeneratedDocumentPostgres struct {
	db *sql.DB
}

// NewGeneratedDocumentPostgres creates a new GeneratedDocumentPostgres repository.
func NewGeneratedDocumentPostgres(db *sql.DB) *GeneratedDocumentPostgres {
	return &GeneratedDocumentPostgres{db: db}
}

var _ repository.GeneratedDocumentRepository = (*GeneratedDocumentPostgres)(nil)

const columns = `name, storage_path, size, content_type, created_at, expires_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*model.GeneratedDocument, error) {
	var (
		d       model.GeneratedDocument
		expires sql.NullTime
	)
	if err := s.Scan(
		&d.Name,
		&d.StoragePath,
		&d.Size,
		&d.ContentType,
		&d.CreatedAt,
		&expires,
	); err != nil {
		return nil, err
	}
	if expires.Valid {
		d.ExpiresAt = expires.Time
	}
	return &d, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// Upsert inserts a document row, replacing an existing row with the same name.
func (r *GeneratedDocumentPostgres) Upsert(ctx context.Context, doc *model.GeneratedDocument) (*model.GeneratedDocument, error) {
	const q = `
		INSERT INTO generated_documents (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE SET
			storage_path = EXCLUDED.storage_path,
			size         = EXCLUDED.size,
			content_type = EXCLUDED.content_type,
			created_at   = EXCLUDED.created_at,
			expires_at   = EXCLUDED.expires_at
		RETURNING ` + columns
	row := r.db.QueryRowContext(ctx, q,
		doc.Name,
		doc.StoragePath,
		doc.Size,
		doc.ContentType,
		doc.CreatedAt,
		nullTime(doc.ExpiresAt),
	)
	return scanDocument(row)
}

// FindByName fetches a single document by its name.
func (r *GeneratedDocumentPostgres) FindByName(ctx context.Context, name string) (*model.GeneratedDocument, error) {
	const q = `
		SELECT ` + columns + `
		FROM generated_documents
		WHERE name = $1
	`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

// ListExpired returns documents whose expiry is at or before the given time.
func (r *GeneratedDocumentPostgres) ListExpired(ctx context.Context, before time.Time, limit int) ([]model.GeneratedDocument, error) {
	const q = `
		SELECT ` + columns + `
		FROM generated_documents
		WHERE expires_at IS NOT NULL AND expires_at <= $1
		ORDER BY expires_at ASC, name ASC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, q, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.GeneratedDocument, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteExpired removes the row only while it is still expired.
func (r *GeneratedDocumentPostgres) DeleteExpired(ctx context.Context, name string, before time.Time) (bool, error) {
	const q = `DELETE FROM generated_documents WHERE name = $1 AND expires_at IS NOT NULL AND expires_at <= $2`
	res, err := r.db.ExecContext(ctx, q, name, before)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
