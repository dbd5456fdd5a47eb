package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"impugnaya/internal/logging"
	"impugnaya/internal/model"
	"impugnaya/internal/repository"
	"impugnaya/internal/repository/memory"
	repoMocks "impugnaya/internal/repository/mocks"
	"impugnaya/internal/storage"
	storeMocks "impugnaya/internal/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	err   error
	texts []string
}

func (f *fakeRenderer) Render(ctx context.Context, text string, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	f.texts = append(f.texts, text)
	_, err := io.WriteString(w, "%PDF-fake\n"+text)
	return err
}

func (f *fakeRenderer) ContentType() string { return "application/pdf" }
func (f *fakeRenderer) Extension() string   { return "pdf" }

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func TestDocumentName(t *testing.T) {
	tests := []struct {
		nombre string
		want   string
	}{
		{"", "descargo.pdf"},
		{"   ", "descargo.pdf"},
		{"!!!", "descargo.pdf"},
		{"mi descargo", "mi_descargo.pdf"},
		{"  multa-2024 ", "multa-2024.pdf"},
		{"../../etc/passwd", "etc_passwd.pdf"},
		{"señor", "senor.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.nombre, func(t *testing.T) {
			assert.Equal(t, tt.want, DocumentName(tt.nombre, "pdf"))
		})
	}
}

func TestDescargoService_Generate(t *testing.T) {
	ctx := context.Background()
	logger := logging.New(io.Discard, nil)
	clock := &testClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}

	t.Run("default name and registry entry", func(t *testing.T) {
		store, root := newLocalStore(t)
		repo := memory.NewGeneratedDocumentMemory()
		r := &fakeRenderer{}
		svc := NewDescargoService(store, repo, r, logger, DescargoOptions{TTL: time.Hour, Now: clock.Now})

		doc, err := svc.Generate(ctx, "  Hola  ", "")

		require.NoError(t, err)
		assert.Equal(t, "descargo.pdf", doc.Name)
		assert.Equal(t, clock.now.Add(time.Hour), doc.ExpiresAt)
		require.Len(t, r.texts, 1)
		assert.Contains(t, r.texts[0], "descargo:\n\nHola\n\nSolicito")

		data, err := os.ReadFile(filepath.Join(root, "descargo.pdf"))
		require.NoError(t, err)
		assert.Equal(t, int64(len(data)), doc.Size)

		stored, err := repo.FindByName(ctx, "descargo.pdf")
		require.NoError(t, err)
		assert.Equal(t, doc.ExpiresAt, stored.ExpiresAt)
	})

	t.Run("zero ttl never expires", func(t *testing.T) {
		store, _ := newLocalStore(t)
		svc := NewDescargoService(store, memory.NewGeneratedDocumentMemory(), &fakeRenderer{}, logger, DescargoOptions{Now: clock.Now})

		doc, err := svc.Generate(ctx, "texto", "x")

		require.NoError(t, err)
		assert.True(t, doc.ExpiresAt.IsZero())
	})

	t.Run("same name overwrites", func(t *testing.T) {
		store, root := newLocalStore(t)
		svc := NewDescargoService(store, memory.NewGeneratedDocumentMemory(), &fakeRenderer{}, logger, DescargoOptions{Now: clock.Now})

		_, err := svc.Generate(ctx, "primero", "multa")
		require.NoError(t, err)
		_, err = svc.Generate(ctx, "segundo", "multa")
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(root, "multa.pdf"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "segundo")
		assert.NotContains(t, string(data), "primero")

		entries, err := os.ReadDir(root)
		require.NoError(t, err)
		assert.Len(t, entries, 1, "no temp files left behind")
	})

	t.Run("empty text", func(t *testing.T) {
		store, root := newLocalStore(t)
		svc := NewDescargoService(store, memory.NewGeneratedDocumentMemory(), &fakeRenderer{}, logger, DescargoOptions{})

		for _, texto := range []string{"", "   \n\t"} {
			_, err := svc.Generate(ctx, texto, "x")
			assert.ErrorIs(t, err, ErrEmptyText)
		}
		entries, _ := os.ReadDir(root)
		assert.Empty(t, entries)
	})

	t.Run("render failure", func(t *testing.T) {
		store, root := newLocalStore(t)
		svc := NewDescargoService(store, memory.NewGeneratedDocumentMemory(), &fakeRenderer{err: errors.New("font missing")}, logger, DescargoOptions{})

		_, err := svc.Generate(ctx, "texto", "x")

		assert.ErrorIs(t, err, ErrRender)
		entries, _ := os.ReadDir(root)
		assert.Empty(t, entries)
	})

	t.Run("storage failure", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("Put", ctx, "x.pdf", mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{}, errors.New("bucket missing"))
		mRepo := new(repoMocks.MockGeneratedDocumentRepository)
		svc := NewDescargoService(mStore, mRepo, &fakeRenderer{}, logger, DescargoOptions{})

		_, err := svc.Generate(ctx, "texto", "x")

		assert.ErrorIs(t, err, ErrRender)
		mRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("registry failure still returns the document", func(t *testing.T) {
		store, _ := newLocalStore(t)
		mRepo := new(repoMocks.MockGeneratedDocumentRepository)
		mRepo.On("Upsert", ctx, mock.MatchedBy(func(d *model.GeneratedDocument) bool {
			return d.Name == "x.pdf"
		})).Return(nil, errors.New("db down"))
		svc := NewDescargoService(store, mRepo, &fakeRenderer{}, logger, DescargoOptions{})

		doc, err := svc.Generate(ctx, "texto", "x")

		require.NoError(t, err)
		assert.Equal(t, "x.pdf", doc.Name)
		mRepo.AssertExpectations(t)
	})
}

func TestDescargoService_Open(t *testing.T) {
	ctx := context.Background()
	logger := logging.New(io.Discard, nil)
	clock := &testClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}

	store, root := newLocalStore(t)
	repo := memory.NewGeneratedDocumentMemory()
	svc := NewDescargoService(store, repo, &fakeRenderer{}, logger, DescargoOptions{TTL: time.Hour, Now: clock.Now})

	_, err := svc.Generate(ctx, "contenido", "multa")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(root), "secret.txt"), []byte("s"), 0o644))

	t.Run("existing document", func(t *testing.T) {
		rc, info, err := svc.Open(ctx, "multa.pdf")
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Contains(t, string(data), "contenido")
		assert.Equal(t, "multa.pdf", info.Key)
		assert.Equal(t, int64(len(data)), info.Size)
	})

	t.Run("path components are forbidden", func(t *testing.T) {
		for _, name := range []string{"../secret.txt", "..", `..\secret.txt`, "/etc/passwd", "C:secret.txt", "a/multa.pdf"} {
			_, _, err := svc.Open(ctx, name)
			assert.ErrorIs(t, err, ErrForbidden, name)
		}
	})

	t.Run("empty after sanitizing", func(t *testing.T) {
		for _, name := range []string{"", "...", "***"} {
			_, _, err := svc.Open(ctx, name)
			assert.ErrorIs(t, err, ErrInvalidFilename, name)
		}
	})

	t.Run("missing", func(t *testing.T) {
		_, _, err := svc.Open(ctx, "otro.pdf")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("expired but not yet swept", func(t *testing.T) {
		clock.now = clock.now.Add(2 * time.Hour)
		defer func() { clock.now = clock.now.Add(-2 * time.Hour) }()

		_, _, err := svc.Open(ctx, "multa.pdf")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDescargoService_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	logger := logging.New(io.Discard, nil)
	start := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	t.Run("removes expired files and records", func(t *testing.T) {
		clock := &testClock{now: start}
		store, root := newLocalStore(t)
		repo := memory.NewGeneratedDocumentMemory()
		svc := NewDescargoService(store, repo, &fakeRenderer{}, logger, DescargoOptions{TTL: time.Hour, Now: clock.Now})

		_, err := svc.Generate(ctx, "viejo", "viejo")
		require.NoError(t, err)
		clock.now = start.Add(90 * time.Minute)
		_, err = svc.Generate(ctx, "nuevo", "nuevo")
		require.NoError(t, err)

		removed, err := svc.PurgeExpired(ctx, clock.now, 10)

		require.NoError(t, err)
		assert.Equal(t, 1, removed)
		_, statErr := os.Stat(filepath.Join(root, "viejo.pdf"))
		assert.True(t, os.IsNotExist(statErr))
		_, statErr = os.Stat(filepath.Join(root, "nuevo.pdf"))
		assert.NoError(t, statErr)
		_, err = repo.FindByName(ctx, "viejo.pdf")
		assert.Error(t, err)
	})

	t.Run("regenerated document is kept", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockGeneratedDocumentRepository)
		now := start.Add(2 * time.Hour)
		mRepo.On("ListExpired", ctx, now, 100).
			Return([]model.GeneratedDocument{{Name: "a.pdf", StoragePath: "a.pdf", ExpiresAt: start}}, nil)
		mRepo.On("DeleteExpired", ctx, "a.pdf", now).Return(false, nil)
		svc := NewDescargoService(mStore, mRepo, &fakeRenderer{}, logger, DescargoOptions{})

		removed, err := svc.PurgeExpired(ctx, now, 0)

		require.NoError(t, err)
		assert.Zero(t, removed)
		mStore.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("continues past failures", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockGeneratedDocumentRepository)
		now := start.Add(2 * time.Hour)
		mRepo.On("ListExpired", ctx, now, 5).Return([]model.GeneratedDocument{
			{Name: "a.pdf", StoragePath: "a.pdf"},
			{Name: "b.pdf", StoragePath: "b.pdf"},
		}, nil)
		mRepo.On("DeleteExpired", ctx, "a.pdf", now).Return(true, nil)
		mRepo.On("DeleteExpired", ctx, "b.pdf", now).Return(true, nil)
		mStore.On("Delete", ctx, "a.pdf").Return(errors.New("permission denied"))
		mStore.On("Delete", ctx, "b.pdf").Return(nil)
		mRepo.On("FindByName", ctx, "a.pdf").Return(nil, repository.ErrNotFound)
		mRepo.On("Upsert", ctx, mock.MatchedBy(func(d *model.GeneratedDocument) bool { return d.Name == "a.pdf" })).
			Return(nil, nil)
		svc := NewDescargoService(mStore, mRepo, &fakeRenderer{}, logger, DescargoOptions{})

		removed, err := svc.PurgeExpired(ctx, now, 5)

		assert.Equal(t, 1, removed)
		assert.ErrorContains(t, err, "delete a.pdf: permission denied")
		mRepo.AssertExpectations(t)
	})

	t.Run("undeletable file stays registered until a later sweep removes it", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		repo := memory.NewGeneratedDocumentMemory()
		_, err := repo.Upsert(ctx, &model.GeneratedDocument{Name: "a.pdf", StoragePath: "a.pdf", ExpiresAt: start})
		require.NoError(t, err)
		mStore.On("Delete", ctx, "a.pdf").Return(errors.New("device busy")).Once()
		mStore.On("Delete", ctx, "a.pdf").Return(nil).Once()
		svc := NewDescargoService(mStore, repo, &fakeRenderer{}, logger, DescargoOptions{})
		now := start.Add(time.Hour)

		removed, err := svc.PurgeExpired(ctx, now, 10)
		assert.Zero(t, removed)
		assert.ErrorContains(t, err, "device busy")

		doc, err := repo.FindByName(ctx, "a.pdf")
		require.NoError(t, err)
		assert.True(t, doc.Expired(now))

		removed, err = svc.PurgeExpired(ctx, now, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)
		_, err = repo.FindByName(ctx, "a.pdf")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		mStore.AssertExpectations(t)
	})

	t.Run("regenerated record is not overwritten after a failed delete", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockGeneratedDocumentRepository)
		now := start.Add(2 * time.Hour)
		mRepo.On("ListExpired", ctx, now, 100).Return([]model.GeneratedDocument{{Name: "a.pdf", StoragePath: "a.pdf"}}, nil)
		mRepo.On("DeleteExpired", ctx, "a.pdf", now).Return(true, nil)
		mStore.On("Delete", ctx, "a.pdf").Return(errors.New("device busy"))
		fresh := &model.GeneratedDocument{Name: "a.pdf", ExpiresAt: now.Add(time.Hour)}
		mRepo.On("FindByName", ctx, "a.pdf").Return(fresh, nil)
		svc := NewDescargoService(mStore, mRepo, &fakeRenderer{}, logger, DescargoOptions{})

		_, err := svc.PurgeExpired(ctx, now, 100)

		assert.Error(t, err)
		mRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("list failure", func(t *testing.T) {
		mRepo := new(repoMocks.MockGeneratedDocumentRepository)
		mRepo.On("ListExpired", ctx, start, 100).Return(nil, errors.New("db down"))
		svc := NewDescargoService(new(storeMocks.MockStorage), mRepo, &fakeRenderer{}, logger, DescargoOptions{})

		_, err := svc.PurgeExpired(ctx, start, 100)

		assert.ErrorContains(t, err, "list expired documents")
	})
}

func TestDescargoService_AdoptUntracked(t *testing.T) {
	ctx := context.Background()
	logger := logging.New(io.Discard, nil)
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	write := func(t *testing.T, root, name string, mtime time.Time) {
		t.Helper()
		p := filepath.Join(root, name)
		require.NoError(t, os.WriteFile(p, []byte("%PDF-fake"), 0o644))
		require.NoError(t, os.Chtimes(p, mtime, mtime))
	}

	t.Run("registers documents left from a previous run", func(t *testing.T) {
		store, root := newLocalStore(t)
		repo := memory.NewGeneratedDocumentMemory()
		write(t, root, "viejo.pdf", now.Add(-3*time.Hour))
		write(t, root, "reciente.pdf", now.Add(-10*time.Minute))
		write(t, root, "conocido.pdf", now.Add(-5*time.Hour))
		write(t, root, "foto.png", now.Add(-5*time.Hour))
		write(t, root, ".a1b2.tmp", now.Add(-5*time.Hour))
		known := &model.GeneratedDocument{Name: "conocido.pdf", StoragePath: "conocido.pdf", ExpiresAt: now.Add(time.Hour)}
		_, err := repo.Upsert(ctx, known)
		require.NoError(t, err)
		svc := NewDescargoService(store, repo, &fakeRenderer{}, logger, DescargoOptions{TTL: time.Hour, Now: func() time.Time { return now }})

		adopted, err := svc.AdoptUntracked(ctx)

		require.NoError(t, err)
		assert.Equal(t, 2, adopted)
		doc, err := repo.FindByName(ctx, "viejo.pdf")
		require.NoError(t, err)
		assert.Equal(t, now.Add(-2*time.Hour), doc.ExpiresAt)
		assert.Equal(t, "application/pdf", doc.ContentType)
		doc, err = repo.FindByName(ctx, "conocido.pdf")
		require.NoError(t, err)
		assert.Equal(t, now.Add(time.Hour), doc.ExpiresAt)
		_, err = repo.FindByName(ctx, "foto.png")
		assert.ErrorIs(t, err, repository.ErrNotFound)

		removed, err := svc.PurgeExpired(ctx, now, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)
		_, statErr := os.Stat(filepath.Join(root, "viejo.pdf"))
		assert.True(t, os.IsNotExist(statErr))
		_, statErr = os.Stat(filepath.Join(root, "reciente.pdf"))
		assert.NoError(t, statErr)
	})

	t.Run("zero ttl keeps everything untracked", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		svc := NewDescargoService(mStore, memory.NewGeneratedDocumentMemory(), &fakeRenderer{}, logger, DescargoOptions{})

		adopted, err := svc.AdoptUntracked(ctx)

		require.NoError(t, err)
		assert.Zero(t, adopted)
		mStore.AssertNotCalled(t, "List", mock.Anything)
	})

	t.Run("list failure", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("List", ctx).Return(nil, errors.New("bucket gone"))
		svc := NewDescargoService(mStore, memory.NewGeneratedDocumentMemory(), &fakeRenderer{}, logger, DescargoOptions{TTL: time.Hour})

		_, err := svc.AdoptUntracked(ctx)

		assert.ErrorContains(t, err, "list stored documents: bucket gone")
	})
}
