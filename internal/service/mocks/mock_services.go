package mocks

import (
	"context"
	"io"
	"time"

	"impugnaya/internal/model"
	"impugnaya/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockOCRService struct {
	mock.Mock
}

func (m *MockOCRService) Extract(ctx context.Context, r io.Reader, originalName string, size int64) (*model.Extraction, error) {
	args := m.Called(ctx, r, originalName, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Extraction), args.Error(1)
}

type MockDescargoService struct {
	mock.Mock
}

func (m *MockDescargoService) Generate(ctx context.Context, texto, nombre string) (*model.GeneratedDocument, error) {
	args := m.Called(ctx, texto, nombre)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GeneratedDocument), args.Error(1)
}

func (m *MockDescargoService) Open(ctx context.Context, name string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, name)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Get(1).(storage.ObjectInfo), args.Error(2)
}

func (m *MockDescargoService) PurgeExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	args := m.Called(ctx, now, limit)
	return args.Int(0), args.Error(1)
}

func (m *MockDescargoService) AdoptUntracked(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
