package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"impugnaya/internal/filename"
	"impugnaya/internal/logging"
	"impugnaya/internal/model"
	"impugnaya/internal/render"
	"impugnaya/internal/repository"
	"impugnaya/internal/storage"
)

// DefaultDocumentName is the base name used when the caller gives none.
const DefaultDocumentName = "descargo"

// DescargoOptions configures DescargoService.
type DescargoOptions struct {
	// TTL is how long a generated document is kept; zero keeps it forever.
	TTL time.Duration
	Now func() time.Time
}

// DescargoService defines the document generation, download and eviction use cases.
type DescargoService interface {
	// Generate renders texto into the descargo template and stores it as <nombre>.<ext>,
	// replacing any previous document with the same name.
	Generate(ctx context.Context, texto, nombre string) (*model.GeneratedDocument, error)

	// Open returns a reader for a previously generated document. name is the raw,
	// client-supplied name; anything addressing more than a single entry is refused.
	Open(ctx context.Context, name string) (io.ReadCloser, storage.ObjectInfo, error)

	// PurgeExpired removes up to limit documents whose retention elapsed at now and
	// reports how many were removed.
	PurgeExpired(ctx context.Context, now time.Time, limit int) (int, error)

	// AdoptUntracked registers stored documents the registry does not know about, expiring
	// them TTL after their modification time, and reports how many were added. It is a
	// no-op when documents are kept forever.
	AdoptUntracked(ctx context.Context) (int, error)
}

type descargoService struct {
	store    storage.Storage
	repo     repository.GeneratedDocumentRepository
	renderer render.Renderer
	logger   *logging.Logger
	opts     DescargoOptions
}

// NewDescargoService constructs a DescargoService.
func NewDescargoService(store storage.Storage, repo repository.GeneratedDocumentRepository, renderer render.Renderer, logger *logging.Logger, opts DescargoOptions) DescargoService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &descargoService{store: store, repo: repo, renderer: renderer, logger: logger, opts: opts}
}

// DocumentName derives the stored name from the requested one.
func DocumentName(nombre, ext string) string {
	base := filename.Secure(strings.TrimSpace(nombre))
	if base == "" {
		base = DefaultDocumentName
	}
	return base + "." + ext
}

func (s *descargoService) Generate(ctx context.Context, texto, nombre string) (*model.GeneratedDocument, error) {
	body := strings.TrimSpace(texto)
	if body == "" {
		return nil, ErrEmptyText
	}
	name := DocumentName(nombre, s.renderer.Extension())

	var buf bytes.Buffer
	if err := render.Descargo(ctx, s.renderer, body, &buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}

	info, err := s.store.Put(ctx, name, &buf, storage.PutObjectOptions{
		Size:        int64(buf.Len()),
		ContentType: s.renderer.ContentType(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: store document: %w", ErrRender, err)
	}

	now := s.opts.Now().UTC()
	doc := &model.GeneratedDocument{
		Name:        name,
		StoragePath: info.Key,
		Size:        info.Size,
		ContentType: s.renderer.ContentType(),
		CreatedAt:   now,
	}
	if s.opts.TTL > 0 {
		doc.ExpiresAt = now.Add(s.opts.TTL)
	}

	// The file is already in place; a registry failure only means it will not be evicted.
	if _, err := s.repo.Upsert(ctx, doc); err != nil {
		s.logger.Error("failed to register generated document", err, map[string]any{"document": name})
	}
	return doc, nil
}

func (s *descargoService) Open(ctx context.Context, name string) (io.ReadCloser, storage.ObjectInfo, error) {
	if filename.HasPathComponents(name) {
		return nil, storage.ObjectInfo{}, ErrForbidden
	}
	key := filename.Secure(name)
	if key == "" {
		return nil, storage.ObjectInfo{}, ErrInvalidFilename
	}

	if doc, err := s.repo.FindByName(ctx, key); err == nil {
		if doc.Expired(s.opts.Now()) {
			return nil, storage.ObjectInfo{}, ErrNotFound
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("registry lookup failed", map[string]any{"document": key, "error": err.Error()})
	}

	rc, info, err := s.store.Get(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotExist):
		return nil, storage.ObjectInfo{}, ErrNotFound
	case errors.Is(err, storage.ErrOutsideRoot):
		return nil, storage.ObjectInfo{}, ErrForbidden
	case err != nil:
		return nil, storage.ObjectInfo{}, fmt.Errorf("open document: %w", err)
	}
	info.Key = key
	return rc, info, nil
}

func (s *descargoService) PurgeExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	docs, err := s.repo.ListExpired(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("list expired documents: %w", err)
	}

	var (
		removed int
		errs    []error
	)
	for _, d := range docs {
		deleted, err := s.repo.DeleteExpired(ctx, d.Name, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("unregister %s: %w", d.Name, err))
			continue
		}
		if !deleted {
			// regenerated since it was listed
			continue
		}
		if err := s.store.Delete(ctx, d.StoragePath); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", d.Name, err))
			s.reregister(ctx, d)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// reregister puts back the record of a document whose file could not be deleted so the
// next sweep retries it. A record written by a regeneration in the meantime is kept.
func (s *descargoService) reregister(ctx context.Context, d model.GeneratedDocument) {
	if _, err := s.repo.FindByName(ctx, d.Name); !errors.Is(err, repository.ErrNotFound) {
		return
	}
	if _, err := s.repo.Upsert(ctx, &d); err != nil {
		s.logger.Error("failed to re-register undeleted document", err, map[string]any{"document": d.Name})
	}
}

func (s *descargoService) AdoptUntracked(ctx context.Context) (int, error) {
	if s.opts.TTL <= 0 {
		return 0, nil
	}
	infos, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list stored documents: %w", err)
	}

	suffix := "." + s.renderer.Extension()
	var (
		adopted int
		errs    []error
	)
	for _, info := range infos {
		if !strings.HasSuffix(info.Key, suffix) || filename.Secure(info.Key) != info.Key {
			continue
		}
		_, err := s.repo.FindByName(ctx, info.Key)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			errs = append(errs, fmt.Errorf("look up %s: %w", info.Key, err))
			continue
		}

		created := info.LastModified.UTC()
		if created.IsZero() {
			created = s.opts.Now().UTC()
		}
		ct := info.ContentType
		if ct == "" {
			ct = s.renderer.ContentType()
		}
		if _, err := s.repo.Upsert(ctx, &model.GeneratedDocument{
			Name:        info.Key,
			StoragePath: info.Key,
			Size:        info.Size,
			ContentType: ct,
			CreatedAt:   created,
			ExpiresAt:   created.Add(s.opts.TTL),
		}); err != nil {
			errs = append(errs, fmt.Errorf("register %s: %w", info.Key, err))
			continue
		}
		adopted++
	}
	return adopted, errors.Join(errs...)
}
