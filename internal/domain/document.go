package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// KeyPrefix namespaces every key this service writes to the store.
const KeyPrefix = "intellidoc:"

// SourceType identifies the format of an uploaded file.
type SourceType string

const (
	// SourcePDF is a PDF upload.
	SourcePDF SourceType = "pdf"
	// SourceTXT is a plain-text upload.
	SourceTXT SourceType = "txt"
)

// SourceTypeFromExtension maps a file extension (with or without the leading
// dot, any case) to a SourceType. Anything outside the allow-list is
// ErrUnsupportedFormat.
func SourceTypeFromExtension(ext string) (SourceType, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "pdf":
		return SourcePDF, nil
	case "txt":
		return SourceTXT, nil
	default:
		return "", fmt.Errorf("file extension %q: %w", ext, ErrUnsupportedFormat)
	}
}

// Document is the metadata record for one ingested upload. Immutable once
// stored; removing it cascades to its segments.
type Document struct {
	ID           string
	Filename     string
	SourceType   SourceType
	ByteSize     int64
	SegmentCount int
	Preview      string
	IngestedAt   time.Time
}

// Segment is one bounded span of a document's text — the unit of embedding
// and retrieval. Overlap is the number of leading runes repeated from the
// previous segment.
type Segment struct {
	ID         string
	DocumentID string
	Ordinal    int
	Text       string
	Overlap    int
	Vector     []float32
}

// SegmentID builds the canonical segment identifier.
func SegmentID(documentID string, ordinal int) string {
	return documentID + ":" + strconv.Itoa(ordinal)
}

// ScoredSegment is a similarity-search hit.
type ScoredSegment struct {
	Segment
	Score float64
}

// Answer is the result of one retrieval request. Ephemeral — never persisted.
type Answer struct {
	Text            string
	CitedSegmentIDs []string
	NoContext       bool
}
