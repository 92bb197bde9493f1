// Package chi holds the HTTP transport: handlers, routing, and auth.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/intellidoc-ai/intellidoc/internal/domain"
	healthuc "github.com/intellidoc-ai/intellidoc/internal/usecase/health"
)

// Error codes returned in the JSON error payload.
const (
	codeBadRequest        = "bad_request"
	codeValidationFailed  = "validation_failed"
	codeUnsupportedFormat = "unsupported_format"
	codeParseFailure      = "parse_failure"
	codeEmptyDocument     = "empty_document"
	codeDocumentNotFound  = "document_not_found"
	codeVectorDimMismatch = "vector_dim_mismatch"
	codeEmbeddingProvider = "embedding_provider_error"
	codeAnswerGeneration  = "answer_generation_failed"
	codeStoreUnavailable  = "store_unavailable"
	codePayloadTooLarge   = "payload_too_large"
	codeInternalError     = "internal_error"
)

// Ingestor runs the upload pipeline.
type Ingestor interface {
	Ingest(ctx context.Context, data []byte, filename string, src domain.SourceType) (domain.Document, error)
}

// Answerer runs the retrieval pipeline.
type Answerer interface {
	Answer(ctx context.Context, question string, k int) (domain.Answer, error)
}

// DocumentReader serves document record queries and deletion.
type DocumentReader interface {
	List(ctx context.Context) ([]domain.Document, error)
	Get(ctx context.Context, id string) (domain.Document, error)
	Segments(ctx context.Context, id string) ([]domain.Segment, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id string) error
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers for the document and retrieval API.
type Server struct {
	ingest         Ingestor
	retrieval      Answerer
	documents      DocumentReader
	health         HealthChecker
	maxUploadBytes int64
	logger         *zap.Logger
	errorHandlers  []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest Ingestor,
	retrieval Answerer,
	documents DocumentReader,
	health HealthChecker,
	maxUploadBytes int64,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ingest:         ingest,
		retrieval:      retrieval,
		documents:      documents,
		health:         health,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrUnsupportedFormat, http.StatusUnsupportedMediaType, codeUnsupportedFormat),
		sentinelHandler(domain.ErrParseFailure, http.StatusUnprocessableEntity, codeParseFailure),
		sentinelHandler(domain.ErrEmptyDocument, http.StatusUnprocessableEntity, codeEmptyDocument),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeVectorDimMismatch),
		sentinelHandler(domain.ErrInvalidConfiguration, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProvider),
		sentinelHandler(domain.ErrAnswerGeneration, http.StatusBadGateway, codeAnswerGeneration),
		sentinelHandler(domain.ErrStoreFailure, http.StatusServiceUnavailable, codeStoreUnavailable),
	}
	return s
}

// Routes registers all API routes on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents", s.UploadDocument)
		r.Get("/documents", s.ListDocuments)
		r.Get("/documents/{id}", s.GetDocument)
		r.Delete("/documents/{id}", s.DeleteDocument)
		r.Get("/documents/{id}/segments", s.ListSegments)
		r.Post("/ask", s.Ask)
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// uploadResponse acknowledges a completed ingestion. The full record shape
// (documentResponse) is served by the read endpoints.
type uploadResponse struct {
	DocumentID   string `json:"document_id"`
	Filename     string `json:"filename"`
	Status       string `json:"status"`
	SegmentCount int    `json:"segment_count"`
	Preview      string `json:"preview"`
}

type documentResponse struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	SourceType   string    `json:"source_type"`
	ByteSize     int64     `json:"byte_size"`
	SegmentCount int       `json:"segment_count"`
	Preview      string    `json:"preview"`
	IngestedAt   time.Time `json:"ingested_at"`
}

type documentListResponse struct {
	Items []documentResponse `json:"items"`
	Total int                `json:"total"`
}

type segmentResponse struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Ordinal    int    `json:"ordinal"`
	Overlap    int    `json:"overlap"`
	Text       string `json:"text"`
}

type segmentListResponse struct {
	Items []segmentResponse `json:"items"`
	Total int               `json:"total"`
}

type askRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

type askResponse struct {
	Answer    string   `json:"answer"`
	Citations []string `json:"cited_segment_ids"`
	NoContext bool     `json:"no_context"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// UploadDocument handles POST /api/v1/documents (multipart upload).
func (s *Server) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		if isMaxBytesError(err) {
			writeError(w, http.StatusRequestEntityTooLarge, codePayloadTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", s.maxUploadBytes))
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, `multipart field "file" is required`)
		return
	}
	defer file.Close()

	src, err := domain.SourceTypeFromExtension(filepath.Ext(header.Filename))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		if isMaxBytesError(err) {
			writeError(w, http.StatusRequestEntityTooLarge, codePayloadTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", s.maxUploadBytes))
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "read upload: "+err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	doc, err := s.ingest.Ingest(ctx, data, header.Filename, src)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	w.Header().Set("Location", "/api/v1/documents/"+doc.ID)
	writeJSON(w, http.StatusCreated, uploadResponse{
		DocumentID:   doc.ID,
		Filename:     doc.Filename,
		Status:       "complete",
		SegmentCount: doc.SegmentCount,
		Preview:      doc.Preview,
	})
}

// ListDocuments handles GET /api/v1/documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.documents.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]documentResponse, len(docs))
	for i, d := range docs {
		items[i] = documentToResponse(d)
	}

	// Count goes back to the store rather than len(items) so the total stays
	// honest once listing becomes paginated.
	total, err := s.documents.Count(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, documentListResponse{Items: items, Total: total})
}

// GetDocument handles GET /api/v1/documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, documentToResponse(doc))
}

// DeleteDocument handles DELETE /api/v1/documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.documents.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListSegments handles GET /api/v1/documents/{id}/segments.
func (s *Server) ListSegments(w http.ResponseWriter, r *http.Request) {
	segments, err := s.documents.Segments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]segmentResponse, len(segments))
	for i, seg := range segments {
		items[i] = segmentResponse{
			ID:         seg.ID,
			DocumentID: seg.DocumentID,
			Ordinal:    seg.Ordinal,
			Overlap:    seg.Overlap,
			Text:       seg.Text,
		}
	}

	writeJSON(w, http.StatusOK, segmentListResponse{Items: items, Total: len(items)})
}

// Ask handles POST /api/v1/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "question is required")
		return
	}
	if req.TopK < 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "top_k must not be negative")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	answer, err := s.retrieval.Answer(ctx, req.Question, req.TopK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, askResponse{
		Answer:    answer.Text,
		Citations: answer.CitedSegmentIDs,
		NoContext: answer.NoContext,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func documentToResponse(d domain.Document) documentResponse {
	return documentResponse{
		ID:           d.ID,
		Filename:     d.Filename,
		SourceType:   string(d.SourceType),
		ByteSize:     d.ByteSize,
		SegmentCount: d.SegmentCount,
		Preview:      d.Preview,
		IngestedAt:   d.IngestedAt,
	}
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func isMaxBytesError(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrUnsupportedFormat,
		domain.ErrParseFailure,
		domain.ErrEmptyDocument,
		domain.ErrDocumentNotFound,
		domain.ErrVectorDimMismatch,
		domain.ErrInvalidConfiguration,
		domain.ErrEmbeddingProviderError,
		domain.ErrAnswerGeneration,
		domain.ErrStoreFailure,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
