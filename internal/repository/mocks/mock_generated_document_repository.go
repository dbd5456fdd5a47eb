package mocks

import (
	"context"
	"time"

	"impugnaya/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockGeneratedDocumentRepository struct {
	mock.Mock
}

func (m *MockGeneratedDocumentRepository) Upsert(ctx context.Context, doc *model.GeneratedDocument) (*model.GeneratedDocument, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GeneratedDocument), args.Error(1)
}

func (m *MockGeneratedDocumentRepository) FindByName(ctx context.Context, name string) (*model.GeneratedDocument, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GeneratedDocument), args.Error(1)
}

func (m *MockGeneratedDocumentRepository) ListExpired(ctx context.Context, before time.Time, limit int) ([]model.GeneratedDocument, error) {
	args := m.Called(ctx, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.GeneratedDocument), args.Error(1)
}

func (m *MockGeneratedDocumentRepository) DeleteExpired(ctx context.Context, name string, before time.Time) (bool, error) {
	args := m.Called(ctx, name, before)
	return args.Bool(0), args.Error(1)
}
