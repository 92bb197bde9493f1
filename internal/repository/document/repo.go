// Package document persists document metadata records as Redis hashes.
package document

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/intellidoc-ai/intellidoc/internal/db"
	"github.com/intellidoc-ai/intellidoc/internal/domain"
)

// store is the consumer interface for document records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements the document record store consumed by the ingest and
// document usecases.
type Repo struct {
	store store
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Put writes the full document record. Records are immutable; Put is only
// called once per document, at the end of ingestion.
func (r *Repo) Put(ctx context.Context, doc *domain.Document) error {
	key := docKey(doc.ID)
	if err := r.store.HSet(ctx, key, buildHashFields(doc)); err != nil {
		return fmt.Errorf("hset %s: %w: %w", key, domain.ErrStoreFailure, err)
	}
	return nil
}

// Get returns a document record by ID.
func (r *Repo) Get(ctx context.Context, id string) (domain.Document, error) {
	key := docKey(id)
	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Document{}, domain.ErrDocumentNotFound
		}
		return domain.Document{}, fmt.Errorf("hgetall %s: %w: %w", key, domain.ErrStoreFailure, err)
	}
	return parseHashFields(id, fields), nil
}

// List returns all document records, newest first.
func (r *Repo) List(ctx context.Context) ([]domain.Document, error) {
	keys, err := r.store.Scan(ctx, docKeyPattern())
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w: %w", domain.ErrStoreFailure, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall documents: %w: %w", domain.ErrStoreFailure, err)
	}

	docs := make([]domain.Document, 0, len(keys))
	for i, fields := range maps {
		if fields == nil {
			// key expired or deleted between SCAN and HGETALL
			continue
		}
		docs = append(docs, parseHashFields(docID(keys[i]), fields))
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].IngestedAt.After(docs[j].IngestedAt)
	})
	return docs, nil
}

// Count returns the number of stored document records.
func (r *Repo) Count(ctx context.Context) (int, error) {
	keys, err := r.store.Scan(ctx, docKeyPattern())
	if err != nil {
		return 0, fmt.Errorf("scan documents: %w: %w", domain.ErrStoreFailure, err)
	}
	return len(keys), nil
}

// Delete removes a document record.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := docKey(id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w: %w", key, domain.ErrStoreFailure, err)
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w: %w", key, domain.ErrStoreFailure, err)
	}
	return nil
}
