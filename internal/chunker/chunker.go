// Package chunker splits normalized text into bounded, overlapping segments.
package chunker

import (
	"fmt"

	"github.com/intellidoc-ai/intellidoc/internal/domain"
)

// Chunker splits text into rune-bounded segments where each segment after
// the first repeats the trailing overlap of its predecessor, preserving
// cross-boundary context for embedding.
type Chunker struct {
	maxRunes     int
	overlapRunes int
}

// New validates the chunking configuration. Overlap must be strictly smaller
// than the segment bound or chunking would make no forward progress.
func New(maxRunes, overlapRunes int) (*Chunker, error) {
	if maxRunes <= 0 {
		return nil, fmt.Errorf("max segment length must be positive, got %d: %w",
			maxRunes, domain.ErrInvalidConfiguration)
	}
	if overlapRunes < 0 {
		return nil, fmt.Errorf("overlap must not be negative, got %d: %w",
			overlapRunes, domain.ErrInvalidConfiguration)
	}
	if overlapRunes >= maxRunes {
		return nil, fmt.Errorf("overlap %d must be smaller than max segment length %d: %w",
			overlapRunes, maxRunes, domain.ErrInvalidConfiguration)
	}
	return &Chunker{maxRunes: maxRunes, overlapRunes: overlapRunes}, nil
}

// MaxLen returns the configured segment bound in runes.
func (c *Chunker) MaxLen() int { return c.maxRunes }

// Overlap returns the configured overlap in runes.
func (c *Chunker) Overlap() int { return c.overlapRunes }

// Chunk splits text into ordered segments of at most MaxLen runes. Text that
// fits the bound yields exactly one segment; empty text yields none.
// Concatenating the segments while stripping the leading Overlap runes of
// every segment after the first reproduces the input exactly.
func (c *Chunker) Chunk(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= c.maxRunes {
		return []string{text}
	}

	step := c.maxRunes - c.overlapRunes
	segments := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; ; start += step {
		end := start + c.maxRunes
		if end >= len(runes) {
			segments = append(segments, string(runes[start:]))
			break
		}
		segments = append(segments, string(runes[start:end]))
	}
	return segments
}
