package document

import (
	"context"

	"github.com/intellidoc-ai/intellidoc/internal/domain"
)

// DocumentStore reads and removes document records.
type DocumentStore interface {
	Get(ctx context.Context, id string) (domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// SegmentStore reads and removes a document's segments.
type SegmentStore interface {
	DeleteByDocument(ctx context.Context, documentID string) (int, error)
	ListByDocument(ctx context.Context, documentID string) ([]domain.Segment, error)
	CountByDocument(ctx context.Context, documentID string) (int, error)
}
