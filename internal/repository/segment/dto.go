package segment

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/intellidoc-ai/intellidoc/internal/domain"
)

const (
	indexName    = domain.KeyPrefix + "segment_idx"
	segKeyPrefix = domain.KeyPrefix + "segment:"
	metaKey      = domain.KeyPrefix + "segment_index:meta"

	fieldDocumentID = "document_id"
	fieldOrdinal    = "ordinal"
	fieldOverlap    = "overlap"
	fieldContent    = "__content"
	fieldVector     = "__vector"
)

func segKey(segmentID string) string {
	return segKeyPrefix + segmentID
}

func segKeyPattern(documentID string) string {
	return segKeyPrefix + documentID + ":*"
}

// docFilterQuery builds an FT tag filter on document_id. Document IDs are
// UUIDs; hyphens must be escaped in TAG queries.
func docFilterQuery(documentID string) string {
	return "@" + fieldDocumentID + ":{" + tagEscaper.Replace(documentID) + "}"
}

var tagEscaper = strings.NewReplacer("-", "\\-", ":", "\\:", ".", "\\.")

// buildHashFields converts a segment into a flat map for HSET.
func buildHashFields(seg *domain.Segment) map[string]string {
	return map[string]string{
		fieldDocumentID: seg.DocumentID,
		fieldOrdinal:    strconv.Itoa(seg.Ordinal),
		fieldOverlap:    strconv.Itoa(seg.Overlap),
		fieldContent:    seg.Text,
		fieldVector:     vectorToBytes(seg.Vector),
	}
}

// parseSegmentEntry converts a search hit back into a segment. Vectors are
// not returned by searches, only the indexed scalar fields.
func parseSegmentEntry(key string, m map[string]string) domain.Segment {
	ordinal, _ := strconv.Atoi(m[fieldOrdinal])
	overlap, _ := strconv.Atoi(m[fieldOverlap])
	return domain.Segment{
		ID:         strings.TrimPrefix(key, segKeyPrefix),
		DocumentID: m[fieldDocumentID],
		Ordinal:    ordinal,
		Overlap:    overlap,
		Text:       m[fieldContent],
	}
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
