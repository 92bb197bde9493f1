// Package document manages stored document records: listing, inspection
// and cascading deletion.
package document

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/intellidoc-ai/intellidoc/internal/domain"
)

// Service handles document management operations.
type Service struct {
	documents DocumentStore
	segments  SegmentStore
	logger    *zap.Logger
}

// New creates a document management service.
func New(documents DocumentStore, segments SegmentStore, logger *zap.Logger) *Service {
	return &Service{documents: documents, segments: segments, logger: logger}
}

// List returns all document records, newest first.
func (s *Service) List(ctx context.Context) ([]domain.Document, error) {
	docs, err := s.documents.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Get returns a document record by ID. SegmentCount is refreshed from the
// index: the record holds the count from ingest time, and the live value
// exposes drift left by an interrupted delete.
func (s *Service) Get(ctx context.Context, id string) (domain.Document, error) {
	doc, err := s.documents.Get(ctx, id)
	if err != nil {
		return domain.Document{}, fmt.Errorf("get document %s: %w", id, err)
	}

	n, err := s.segments.CountByDocument(ctx, id)
	if err != nil {
		s.logger.Warn("Failed to count indexed segments",
			zap.String("document_id", id), zap.Error(err))
		return doc, nil
	}
	doc.SegmentCount = n
	return doc, nil
}

// Segments returns a document's segments in ordinal order, without vectors.
func (s *Service) Segments(ctx context.Context, id string) ([]domain.Segment, error) {
	if _, err := s.documents.Get(ctx, id); err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	segments, err := s.segments.ListByDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list segments of %s: %w", id, err)
	}
	return segments, nil
}

// Count returns the number of stored documents.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.documents.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Delete removes a document and all its segments. Segments go first: if
// the record delete fails the document stays listed and a retry finishes
// the job, whereas the reverse order could leave recordless segments
// surfacing in search forever.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.documents.Get(ctx, id); err != nil {
		return fmt.Errorf("get document %s: %w", id, err)
	}

	removed, err := s.segments.DeleteByDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("delete segments of %s: %w", id, err)
	}

	if err := s.documents.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}

	s.logger.Info("Document deleted",
		zap.String("document_id", id),
		zap.Int("segments_removed", removed),
	)
	return nil
}
