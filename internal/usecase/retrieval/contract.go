package retrieval

import (
	"context"

	"github.com/intellidoc-ai/intellidoc/internal/domain"
)

// Embedder vectorizes the question text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// SegmentSearcher runs KNN search over stored segments.
type SegmentSearcher interface {
	SearchKNN(ctx context.Context, vector []float32, k int) ([]domain.ScoredSegment, error)
}

// Generator produces the answer text from a system and user prompt.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}
