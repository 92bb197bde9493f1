package document

import (
	"strconv"
	"strings"
	"time"

	"github.com/intellidoc-ai/intellidoc/internal/domain"
)

const keyPrefix = domain.KeyPrefix + "document:"

func docKey(id string) string {
	return keyPrefix + id
}

func docKeyPattern() string {
	return keyPrefix + "*"
}

func docID(key string) string {
	return strings.TrimPrefix(key, keyPrefix)
}

// buildHashFields converts a document record into a flat map for HSET.
func buildHashFields(doc *domain.Document) map[string]string {
	return map[string]string{
		"filename":      doc.Filename,
		"source_type":   string(doc.SourceType),
		"byte_size":     strconv.FormatInt(doc.ByteSize, 10),
		"segment_count": strconv.Itoa(doc.SegmentCount),
		"preview":       doc.Preview,
		"ingested_at":   strconv.FormatInt(doc.IngestedAt.UnixMilli(), 10),
	}
}

// parseHashFields converts a flat hash map back into a document record.
// Malformed numeric fields degrade to zero values instead of failing a read.
func parseHashFields(id string, m map[string]string) domain.Document {
	byteSize, _ := strconv.ParseInt(m["byte_size"], 10, 64)
	segmentCount, _ := strconv.Atoi(m["segment_count"])

	var ingestedAt time.Time
	if ms, err := strconv.ParseInt(m["ingested_at"], 10, 64); err == nil {
		ingestedAt = time.UnixMilli(ms).UTC()
	}

	return domain.Document{
		ID:           id,
		Filename:     m["filename"],
		SourceType:   domain.SourceType(m["source_type"]),
		ByteSize:     byteSize,
		SegmentCount: segmentCount,
		Preview:      m["preview"],
		IngestedAt:   ingestedAt,
	}
}
