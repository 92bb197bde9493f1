package document

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/intellidoc-ai/intellidoc/internal/domain"
)

type mockDocumentStore struct {
	getFn    func(ctx context.Context, id string) (domain.Document, error)
	listFn   func(ctx context.Context) ([]domain.Document, error)
	deleteFn func(ctx context.Context, id string) error
	countFn  func(ctx context.Context) (int, error)

	deleteCalls int
}

func (m *mockDocumentStore) Get(ctx context.Context, id string) (domain.Document, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return domain.Document{ID: id}, nil
}

func (m *mockDocumentStore) List(ctx context.Context) ([]domain.Document, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockDocumentStore) Delete(ctx context.Context, id string) error {
	m.deleteCalls++
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockDocumentStore) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

type mockSegmentStore struct {
	deleteByDocFn func(ctx context.Context, documentID string) (int, error)
	listByDocFn   func(ctx context.Context, documentID string) ([]domain.Segment, error)
	countByDocFn  func(ctx context.Context, documentID string) (int, error)

	deleteCalls int
}

func (m *mockSegmentStore) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	m.deleteCalls++
	if m.deleteByDocFn != nil {
		return m.deleteByDocFn(ctx, documentID)
	}
	return 0, nil
}

func (m *mockSegmentStore) ListByDocument(ctx context.Context, documentID string) ([]domain.Segment, error) {
	if m.listByDocFn != nil {
		return m.listByDocFn(ctx, documentID)
	}
	return nil, nil
}

func (m *mockSegmentStore) CountByDocument(ctx context.Context, documentID string) (int, error) {
	if m.countByDocFn != nil {
		return m.countByDocFn(ctx, documentID)
	}
	return 0, nil
}

func newTestService(t *testing.T) (*Service, *mockDocumentStore, *mockSegmentStore) {
	t.Helper()
	docs := &mockDocumentStore{}
	segs := &mockSegmentStore{}
	return New(docs, segs, zap.NewNop()), docs, segs
}

func testDocument(id string) domain.Document {
	return domain.Document{
		ID:           id,
		Filename:     "notes.txt",
		SourceType:   domain.SourceTXT,
		ByteSize:     64,
		SegmentCount: 2,
		IngestedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}
