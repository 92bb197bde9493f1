package retrieval

import (
	"context"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/intellidoc-ai/intellidoc/internal/domain"
	"github.com/intellidoc-ai/intellidoc/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return m.result, m.err
}

type mockSearcher struct {
	hits []domain.ScoredSegment
	err  error
	gotK int
}

func (m *mockSearcher) SearchKNN(_ context.Context, _ []float32, k int) ([]domain.ScoredSegment, error) {
	m.gotK = k
	return m.hits, m.err
}

type mockGenerator struct {
	text      string
	err       error
	calls     int
	gotSystem string
	gotUser   string
}

func (m *mockGenerator) Generate(_ context.Context, system, user string) (string, error) {
	m.calls++
	m.gotSystem = system
	m.gotUser = user
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

type testHarness struct {
	svc       *Service
	embedder  *mockEmbedder
	searcher  *mockSearcher
	generator *mockGenerator
}

func newTestService(t *testing.T) *testHarness {
	t.Helper()
	h := &testHarness{
		embedder:  &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, TotalTokens: 4}},
		searcher:  &mockSearcher{},
		generator: &mockGenerator{text: "generated answer"},
	}
	h.svc = New(h.embedder, h.searcher, h.generator, 3, 10, zap.NewNop())
	return h
}

func scoredSegment(id string, score float64, text string) domain.ScoredSegment {
	return domain.ScoredSegment{
		Segment: domain.Segment{ID: id, Text: text},
		Score:   score,
	}
}
