package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"impugnaya/internal/model"
	"impugnaya/internal/repository"
)

// GeneratedDocumentMemory is a process-local repository.GeneratedDocumentRepository.
// Records are lost on restart; DescargoService.AdoptUntracked re-registers the stored
// documents at startup.
type GeneratedDocumentMemory struct {
	mu   sync.RWMutex
	docs map[string]model.GeneratedDocument
}

// NewGeneratedDocumentMemory creates an empty in-memory repository.
func NewGeneratedDocumentMemory() *GeneratedDocumentMemory {
	return &GeneratedDocumentMemory{docs: make(map[string]model.GeneratedDocument)}
}

var _ repository.GeneratedDocumentRepository = (*GeneratedDocumentMemory)(nil)

func (r *GeneratedDocumentMemory) Upsert(ctx context.Context, doc *model.GeneratedDocument) (*model.GeneratedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.Name] = *doc
	out := *doc
	return &out, nil
}

func (r *GeneratedDocumentMemory) FindByName(ctx context.Context, name string) (*model.GeneratedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.docs[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r *GeneratedDocumentMemory) ListExpired(ctx context.Context, before time.Time, limit int) ([]model.GeneratedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	items := make([]model.GeneratedDocument, 0)
	for _, d := range r.docs {
		if d.Expired(before) {
			items = append(items, d)
		}
	}
	r.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].ExpiresAt.Equal(items[j].ExpiresAt) {
			return items[i].Name < items[j].Name
		}
		return items[i].ExpiresAt.Before(items[j].ExpiresAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (r *GeneratedDocumentMemory) DeleteExpired(ctx context.Context, name string, before time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[name]
	if !ok || !d.Expired(before) {
		return false, nil
	}
	delete(r.docs, name)
	return true, nil
}
