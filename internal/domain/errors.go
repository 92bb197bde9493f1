package domain

import "errors"

var (
	// ErrUnsupportedFormat signals an upload with a source type the parser cannot handle.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrParseFailure signals a corrupted or unreadable file body.
	ErrParseFailure = errors.New("parse failure")
	// ErrEmptyDocument signals a file that yielded no text after extraction.
	ErrEmptyDocument = errors.New("empty document")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrVectorDimMismatch signals an embedding whose dimensionality does not match the index.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidConfiguration signals rejected pipeline configuration.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrStoreFailure signals a vector store failure.
	ErrStoreFailure = errors.New("vector store failure")
	// ErrAnswerGeneration signals an LLM answer generation failure.
	ErrAnswerGeneration = errors.New("answer generation failure")
)
