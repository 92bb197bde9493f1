// Package retrieval answers questions over ingested documents: embed the
// question, fetch the nearest segments, generate a grounded answer.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/intellidoc-ai/intellidoc/internal/domain"
	"github.com/intellidoc-ai/intellidoc/internal/metrics"
)

// NoContextAnswer is returned verbatim when the store has no segments near
// the question. It is a successful answer, not an error; the generator is
// never called in that case.
const NoContextAnswer = "I don't have any ingested documents with information relevant to that question."

// Service implements the retrieval pipeline.
type Service struct {
	embedder    Embedder
	searcher    SegmentSearcher
	generator   Generator
	defaultTopK int
	maxTopK     int
	logger      *zap.Logger
}

// New creates a retrieval service.
func New(
	embedder Embedder,
	searcher SegmentSearcher,
	generator Generator,
	defaultTopK, maxTopK int,
	logger *zap.Logger,
) *Service {
	return &Service{
		embedder:    embedder,
		searcher:    searcher,
		generator:   generator,
		defaultTopK: defaultTopK,
		maxTopK:     maxTopK,
		logger:      logger,
	}
}

// Answer answers a question from the k nearest stored segments. k <= 0
// selects the configured default; k above the configured maximum is capped.
func (s *Service) Answer(ctx context.Context, question string, k int) (domain.Answer, error) {
	start := time.Now()
	question = strings.TrimSpace(question)

	if k <= 0 {
		k = s.defaultTopK
	}
	if k > s.maxTopK {
		k = s.maxTopK
	}

	embResult, err := s.embedder.Embed(ctx, question)
	if err != nil {
		metrics.AnswersTotal.WithLabelValues("failed").Inc()
		return domain.Answer{}, fmt.Errorf("vectorize question: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(embResult.TotalTokens)

	hits, err := s.searcher.SearchKNN(ctx, embResult.Embedding, k)
	if err != nil {
		metrics.AnswersTotal.WithLabelValues("failed").Inc()
		return domain.Answer{}, fmt.Errorf("search segments: %w", err)
	}

	if len(hits) == 0 {
		metrics.AnswersTotal.WithLabelValues("no_context").Inc()
		s.logger.Info("Question answered without context", zap.Int("top_k", k))
		return domain.Answer{Text: NoContextAnswer, NoContext: true}, nil
	}

	text, err := s.generator.Generate(ctx, systemPrompt, buildUserPrompt(question, hits))
	if err != nil {
		metrics.AnswersTotal.WithLabelValues("failed").Inc()
		return domain.Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	cited := make([]string, 0, len(hits))
	for _, hit := range hits {
		cited = append(cited, hit.ID)
	}

	metrics.AnswersTotal.WithLabelValues("answered").Inc()
	metrics.AnswerDuration.Observe(time.Since(start).Seconds())

	s.logger.Info("Question answered",
		zap.Int("top_k", k),
		zap.Int("segments_used", len(hits)),
		zap.Float64("top_score", hits[0].Score),
		zap.Duration("duration", time.Since(start)),
	)

	return domain.Answer{Text: text, CitedSegmentIDs: cited}, nil
}
