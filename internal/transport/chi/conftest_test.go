package chi

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/intellidoc-ai/intellidoc/internal/domain"
	healthuc "github.com/intellidoc-ai/intellidoc/internal/usecase/health"
)

// --- Mocks ---

type mockIngestor struct {
	ingestFn func(ctx context.Context, data []byte, filename string, src domain.SourceType) (domain.Document, error)
}

func (m *mockIngestor) Ingest(
	ctx context.Context, data []byte, filename string, src domain.SourceType,
) (domain.Document, error) {
	return m.ingestFn(ctx, data, filename, src)
}

type mockAnswerer struct {
	answerFn func(ctx context.Context, question string, k int) (domain.Answer, error)
}

func (m *mockAnswerer) Answer(ctx context.Context, question string, k int) (domain.Answer, error) {
	return m.answerFn(ctx, question, k)
}

type mockDocuments struct {
	listFn     func(ctx context.Context) ([]domain.Document, error)
	getFn      func(ctx context.Context, id string) (domain.Document, error)
	segmentsFn func(ctx context.Context, id string) ([]domain.Segment, error)
	countFn    func(ctx context.Context) (int, error)
	deleteFn   func(ctx context.Context, id string) error
}

func (m *mockDocuments) List(ctx context.Context) ([]domain.Document, error) {
	return m.listFn(ctx)
}

func (m *mockDocuments) Get(ctx context.Context, id string) (domain.Document, error) {
	return m.getFn(ctx, id)
}

func (m *mockDocuments) Segments(ctx context.Context, id string) ([]domain.Segment, error) {
	return m.segmentsFn(ctx, id)
}

func (m *mockDocuments) Count(ctx context.Context) (int, error) {
	return m.countFn(ctx)
}

func (m *mockDocuments) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

// --- Helpers ---

const testMaxUploadBytes = 1 << 20

func newTestRouter(ingest Ingestor, retrieval Answerer, docs DocumentReader, health HealthChecker) http.Handler {
	s := NewServer(ingest, retrieval, docs, health, testMaxUploadBytes, zap.NewNop())
	r := chi.NewRouter()
	s.Routes(r)
	return r
}

// multipartUpload builds a multipart request body with a single "file" part.
func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func doRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}
