// Package segment persists document segments as Redis hashes indexed for
// KNN vector search, and owns the segment index lifecycle.
package segment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/intellidoc-ai/intellidoc/internal/db"
	"github.com/intellidoc-ai/intellidoc/internal/domain"
)

// listFetchLimit bounds a per-document segment listing. Documents are
// capped well below this by the upload size limit.
const listFetchLimit = 10000

// store is the consumer interface for segments (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// IndexSettings fixes the embedding geometry of the segment index. The
// settings are persisted alongside the index; a later process configured
// with a different model or dimensionality must not reuse the index.
type IndexSettings struct {
	Model              string
	Dimensions         int
	HNSWM              int
	HNSWEFConstruction int
}

// indexMeta is the persisted form of the index guard.
type indexMeta struct {
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
	Metric     string `json:"metric"`
}

// Repo implements the segment store consumed by the ingest, retrieval and
// document usecases.
type Repo struct {
	store    store
	settings IndexSettings
}

// New creates a segment repository.
func New(s store, settings IndexSettings) *Repo {
	return &Repo{store: s, settings: settings}
}

// EnsureIndex creates the segment index if absent and verifies that the
// persisted index metadata matches the configured embedding model and
// dimensionality. A mismatch means stored vectors are incompatible with
// new queries; the only migration is dropping the index and re-ingesting.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	raw, err := r.store.Get(ctx, metaKey)
	switch {
	case err == nil:
		var meta indexMeta
		if uerr := json.Unmarshal(raw, &meta); uerr != nil {
			return fmt.Errorf("parse index metadata: %w: %w", domain.ErrInvalidConfiguration, uerr)
		}
		if meta.Model != r.settings.Model || meta.Dimensions != r.settings.Dimensions {
			return fmt.Errorf(
				"segment index built with model=%s dim=%d, configured model=%s dim=%d; drop the index and re-ingest: %w",
				meta.Model, meta.Dimensions, r.settings.Model, r.settings.Dimensions,
				domain.ErrInvalidConfiguration,
			)
		}
		return nil
	case errors.Is(err, db.ErrKeyNotFound):
		// first start, fall through to create
	default:
		return fmt.Errorf("read index metadata: %w: %w", domain.ErrStoreFailure, err)
	}

	if err := r.createIndex(ctx); err != nil {
		return err
	}

	meta := indexMeta{
		Model:      r.settings.Model,
		Dimensions: r.settings.Dimensions,
		Metric:     string(db.DistanceCosine),
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal index metadata: %w", err)
	}
	if err := r.store.Set(ctx, metaKey, data); err != nil {
		return fmt.Errorf("write index metadata: %w: %w", domain.ErrStoreFailure, err)
	}
	return nil
}

func (r *Repo) createIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, indexName)
	if err != nil {
		return fmt.Errorf("check index: %w: %w", domain.ErrStoreFailure, err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     indexName,
		Prefixes: []string{segKeyPrefix},
		Fields: []db.IndexField{
			{Name: fieldDocumentID, Type: db.IndexFieldTag},
			{Name: fieldOrdinal, Type: db.IndexFieldNumeric},
			{Name: fieldOverlap, Type: db.IndexFieldNumeric},
			{Name: fieldContent, Type: db.IndexFieldText},
			{
				Name:              fieldVector,
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         r.settings.Dimensions,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.settings.HNSWM,
				VectorEFConstruct: r.settings.HNSWEFConstruction,
			},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		// another replica won the race
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index: %w: %w", domain.ErrStoreFailure, err)
	}
	return nil
}

// UpsertBatch writes all segments in one pipelined round trip.
func (r *Repo) UpsertBatch(ctx context.Context, segments []domain.Segment) error {
	if len(segments) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, 0, len(segments))
	for i := range segments {
		items = append(items, db.HashSetItem{
			Key:    segKey(segments[i].ID),
			Fields: buildHashFields(&segments[i]),
		})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset segments: %w: %w", domain.ErrStoreFailure, err)
	}
	return nil
}

// DeleteByDocument removes every segment of a document and returns the
// number of keys removed. Deleting a document with no segments is not an
// error.
func (r *Repo) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	keys, err := r.store.Scan(ctx, segKeyPattern(documentID))
	if err != nil {
		return 0, fmt.Errorf("scan segments of %s: %w: %w", documentID, domain.ErrStoreFailure, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := r.store.Del(ctx, keys...); err != nil {
		return 0, fmt.Errorf("del segments of %s: %w: %w", documentID, domain.ErrStoreFailure, err)
	}
	return len(keys), nil
}

// SearchKNN returns the k nearest segments to the query vector, highest
// similarity first.
func (r *Repo) SearchKNN(ctx context.Context, vector []float32, k int) ([]domain.ScoredSegment, error) {
	result, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName,
		Vector:       vector,
		K:            k,
		ReturnFields: []string{fieldDocumentID, fieldOrdinal, fieldOverlap, fieldContent},
	})
	if err != nil {
		return nil, fmt.Errorf("knn search: %w: %w", domain.ErrStoreFailure, err)
	}

	hits := make([]domain.ScoredSegment, 0, len(result.Entries))
	for _, entry := range result.Entries {
		hits = append(hits, domain.ScoredSegment{
			Segment: parseSegmentEntry(entry.Key, entry.Fields),
			Score:   entry.Score,
		})
	}
	return hits, nil
}

// ListByDocument returns all segments of a document ordered by ordinal.
// Vectors are not fetched.
func (r *Repo) ListByDocument(ctx context.Context, documentID string) ([]domain.Segment, error) {
	result, err := r.store.SearchList(ctx, indexName, docFilterQuery(documentID),
		0, listFetchLimit,
		[]string{fieldDocumentID, fieldOrdinal, fieldOverlap, fieldContent},
	)
	if err != nil {
		return nil, fmt.Errorf("list segments of %s: %w: %w", documentID, domain.ErrStoreFailure, err)
	}

	segments := make([]domain.Segment, 0, len(result.Entries))
	for _, entry := range result.Entries {
		segments = append(segments, parseSegmentEntry(entry.Key, entry.Fields))
	}
	sort.Slice(segments, func(i, j int) bool {
		return segments[i].Ordinal < segments[j].Ordinal
	})
	return segments, nil
}

// CountByDocument returns the number of indexed segments for a document.
func (r *Repo) CountByDocument(ctx context.Context, documentID string) (int, error) {
	n, err := r.store.SearchCount(ctx, indexName, docFilterQuery(documentID))
	if err != nil {
		return 0, fmt.Errorf("count segments of %s: %w: %w", documentID, domain.ErrStoreFailure, err)
	}
	return n, nil
}
