package ingest

import (
	"context"

	"github.com/intellidoc-ai/intellidoc/internal/domain"
)

// Parser extracts normalized plain text from raw file bytes.
type Parser interface {
	Parse(data []byte, src domain.SourceType) (string, error)
}

// Chunker splits normalized text into bounded overlapping segments.
type Chunker interface {
	Chunk(text string) []string
	Overlap() int
}

// Embedder vectorizes segment texts in provider-batched calls.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// SegmentStore persists segments and supports document-scoped deletion.
type SegmentStore interface {
	UpsertBatch(ctx context.Context, segments []domain.Segment) error
	DeleteByDocument(ctx context.Context, documentID string) (int, error)
}

// DocumentStore persists document records.
type DocumentStore interface {
	Put(ctx context.Context, doc *domain.Document) error
	Delete(ctx context.Context, id string) error
}
