// Package ingest runs the document ingestion pipeline: parse, chunk,
// embed, store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/intellidoc-ai/intellidoc/internal/domain"
	"github.com/intellidoc-ai/intellidoc/internal/metrics"
)

// previewRunes bounds the stored content preview.
const previewRunes = 200

// rollbackTimeout bounds cleanup after a failed ingestion. Rollback runs
// detached from the request context so caller abandonment still cleans up.
const rollbackTimeout = 15 * time.Second

// Service implements the ingestion pipeline.
type Service struct {
	parser     Parser
	chunker    Chunker
	embedder   Embedder
	segments   SegmentStore
	documents  DocumentStore
	dimensions int
	logger     *zap.Logger
}

// New creates an ingestion service. dimensions is the configured embedding
// dimensionality every returned vector must match.
func New(
	parser Parser,
	chunker Chunker,
	embedder Embedder,
	segments SegmentStore,
	documents DocumentStore,
	dimensions int,
	logger *zap.Logger,
) *Service {
	return &Service{
		parser:     parser,
		chunker:    chunker,
		embedder:   embedder,
		segments:   segments,
		documents:  documents,
		dimensions: dimensions,
		logger:     logger,
	}
}

// Ingest runs the full pipeline for one uploaded file and returns the
// stored document record. Segments are written before the document record;
// the record is the visibility marker, so a document is never listable
// with missing segments. Any failure after the first write rolls back
// everything written for this document.
func (s *Service) Ingest(
	ctx context.Context, data []byte, filename string, src domain.SourceType,
) (domain.Document, error) {
	start := time.Now()

	doc, err := s.ingest(ctx, data, filename, src)
	if err != nil {
		metrics.DocumentsIngestedTotal.WithLabelValues("failed").Inc()
		return domain.Document{}, err
	}

	metrics.DocumentsIngestedTotal.WithLabelValues("complete").Inc()
	metrics.IngestDuration.WithLabelValues(string(src)).Observe(time.Since(start).Seconds())
	metrics.SegmentsIngestedTotal.Add(float64(doc.SegmentCount))

	s.logger.Info("Document ingested",
		zap.String("document_id", doc.ID),
		zap.String("filename", doc.Filename),
		zap.String("source_type", string(doc.SourceType)),
		zap.Int("segment_count", doc.SegmentCount),
		zap.Int64("byte_size", doc.ByteSize),
		zap.Duration("duration", time.Since(start)),
	)
	return doc, nil
}

func (s *Service) ingest(
	ctx context.Context, data []byte, filename string, src domain.SourceType,
) (domain.Document, error) {
	text, err := s.parser.Parse(data, src)
	if err != nil {
		return domain.Document{}, &StageError{Stage: StageParse, Err: err}
	}

	chunks := s.chunker.Chunk(text)
	if len(chunks) == 0 {
		return domain.Document{}, &StageError{Stage: StageChunk, Err: domain.ErrEmptyDocument}
	}

	result, err := s.embedder.BatchEmbed(ctx, chunks)
	if err != nil {
		return domain.Document{}, &StageError{Stage: StageEmbed, Err: err}
	}
	domain.UsageFromContext(ctx).AddTokens(result.TotalTokens)

	docID := uuid.NewString()
	segments, err := s.buildSegments(docID, chunks, result.Embeddings)
	if err != nil {
		return domain.Document{}, &StageError{Stage: StageEmbed, Err: err}
	}

	// first write: pipelined HSET may leave partial state on failure
	if err := s.segments.UpsertBatch(ctx, segments); err != nil {
		s.rollback(ctx, docID)
		return domain.Document{}, &StageError{Stage: StageStore, Err: err}
	}

	doc := domain.Document{
		ID:           docID,
		Filename:     filename,
		SourceType:   src,
		ByteSize:     int64(len(data)),
		SegmentCount: len(segments),
		Preview:      preview(text),
		IngestedAt:   time.Now().UTC(),
	}

	if err := s.documents.Put(ctx, &doc); err != nil {
		s.rollback(ctx, docID)
		return domain.Document{}, &StageError{Stage: StageStore, Err: err}
	}

	return doc, nil
}

func (s *Service) buildSegments(docID string, chunks []string, embeddings [][]float32) ([]domain.Segment, error) {
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("provider returned %d embeddings for %d segments: %w",
			len(embeddings), len(chunks), domain.ErrEmbeddingProviderError)
	}

	segments := make([]domain.Segment, 0, len(chunks))
	for i, chunk := range chunks {
		if len(embeddings[i]) != s.dimensions {
			return nil, fmt.Errorf("segment %d: vector has %d dimensions, index expects %d: %w",
				i, len(embeddings[i]), s.dimensions, domain.ErrVectorDimMismatch)
		}

		overlap := s.chunker.Overlap()
		if i == 0 {
			overlap = 0
		}

		segments = append(segments, domain.Segment{
			ID:         domain.SegmentID(docID, i),
			DocumentID: docID,
			Ordinal:    i,
			Text:       chunk,
			Overlap:    overlap,
			Vector:     embeddings[i],
		})
	}
	return segments, nil
}

// rollback removes everything written for a failed ingestion. It runs on a
// detached context: a canceled upload must not leave orphaned segments.
func (s *Service) rollback(ctx context.Context, docID string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	removed, err := s.segments.DeleteByDocument(cleanupCtx, docID)
	if err != nil {
		s.logger.Error("Ingestion rollback failed to delete segments",
			zap.String("document_id", docID), zap.Error(err))
	}

	if err := s.documents.Delete(cleanupCtx, docID); err != nil && !errors.Is(err, domain.ErrDocumentNotFound) {
		s.logger.Error("Ingestion rollback failed to delete document record",
			zap.String("document_id", docID), zap.Error(err))
	}

	s.logger.Warn("Ingestion rolled back",
		zap.String("document_id", docID), zap.Int("segments_removed", removed))
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes])
}
