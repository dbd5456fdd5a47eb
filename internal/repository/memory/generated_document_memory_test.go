package memory

import (
	"context"
	"testing"
	"time"

	"impugnaya/internal/model"
	"impugnaya/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratedDocumentMemory(t *testing.T) {
	ctx := context.Background()
	repo := NewGeneratedDocumentMemory()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	_, err := repo.FindByName(ctx, "missing.pdf")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	docs := []model.GeneratedDocument{
		{Name: "b.pdf", ExpiresAt: now.Add(-time.Hour)},
		{Name: "a.pdf", ExpiresAt: now.Add(-2 * time.Hour)},
		{Name: "c.pdf", ExpiresAt: now.Add(-time.Hour)},
		{Name: "fresh.pdf", ExpiresAt: now.Add(time.Hour)},
		{Name: "forever.pdf"},
	}
	for i := range docs {
		_, err := repo.Upsert(ctx, &docs[i])
		require.NoError(t, err)
	}

	got, err := repo.FindByName(ctx, "fresh.pdf")
	require.NoError(t, err)
	assert.Equal(t, "fresh.pdf", got.Name)

	expired, err := repo.ListExpired(ctx, now, 0)
	require.NoError(t, err)
	names := make([]string, 0, len(expired))
	for _, d := range expired {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"a.pdf", "b.pdf", "c.pdf"}, names)

	limited, err := repo.ListExpired(ctx, now, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	deleted, err := repo.DeleteExpired(ctx, "a.pdf", now)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.DeleteExpired(ctx, "fresh.pdf", now)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = repo.DeleteExpired(ctx, "forever.pdf", now)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = repo.DeleteExpired(ctx, "missing.pdf", now)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestGeneratedDocumentMemoryUpsertReplacesExpiry(t *testing.T) {
	ctx := context.Background()
	repo := NewGeneratedDocumentMemory()
	now := time.Now()

	_, err := repo.Upsert(ctx, &model.GeneratedDocument{Name: "descargo.pdf", ExpiresAt: now.Add(-time.Minute)})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, &model.GeneratedDocument{Name: "descargo.pdf", ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)

	deleted, err := repo.DeleteExpired(ctx, "descargo.pdf", now)
	require.NoError(t, err)
	assert.False(t, deleted, "a regenerated document must survive a stale sweep")
}
