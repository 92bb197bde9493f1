package chunker

import (
	"errors"
	"strings"
	"testing"

	"github.com/intellidoc-ai/intellidoc/internal/domain"
)

func TestNew_RejectsBadConfig(t *testing.T) {
	cases := []struct {
		name    string
		max     int
		overlap int
	}{
		{"zero max", 0, 0},
		{"negative max", -1, 0},
		{"negative overlap", 10, -1},
		{"overlap equals max", 10, 10},
		{"overlap above max", 10, 11},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.max, tc.overlap)
			if !errors.Is(err, domain.ErrInvalidConfiguration) {
				t.Fatalf("want ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestChunk_ShortTextSingleSegment(t *testing.T) {
	c, err := New(100, 10)
	if err != nil {
		t.Fatal(err)
	}

	segments := c.Chunk("short text")
	if len(segments) != 1 || segments[0] != "short text" {
		t.Fatalf("unexpected segments: %v", segments)
	}
}

func TestChunk_EmptyTextNoSegments(t *testing.T) {
	c, err := New(100, 10)
	if err != nil {
		t.Fatal(err)
	}

	if segments := c.Chunk(""); segments != nil {
		t.Fatalf("expected no segments, got %v", segments)
	}
}

func TestChunk_OverlapScenario(t *testing.T) {
	c, err := New(15, 5)
	if err != nil {
		t.Fatal(err)
	}

	segments := c.Chunk("Hello world. This is a test.")
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d: %q", len(segments), segments)
	}

	want := []string{"Hello world. Th", "d. This is a te", " a test."}
	for i, s := range segments {
		if s != want[i] {
			t.Errorf("segment %d = %q, want %q", i, s, want[i])
		}
	}

	// segment 2 starts with the last 5 runes of segment 1
	tail := segments[0][len(segments[0])-5:]
	if !strings.HasPrefix(segments[1], tail) {
		t.Errorf("segment 1 %q does not start with tail of segment 0 %q", segments[1], tail)
	}
}

func TestChunk_RoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		max     int
		overlap int
		text    string
	}{
		{"no overlap", 4, 0, "abcdefghij"},
		{"small overlap", 10, 3, strings.Repeat("segment round trip. ", 25)},
		{"large overlap", 20, 19, "the quick brown fox jumps over the lazy dog"},
		{"multibyte runes", 7, 2, strings.Repeat("привет мир ", 12)},
		{"exact boundary", 5, 2, "abcde"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := New(tc.max, tc.overlap)
			if err != nil {
				t.Fatal(err)
			}

			segments := c.Chunk(tc.text)

			var sb strings.Builder
			for i, s := range segments {
				runes := []rune(s)
				if len(runes) > tc.max {
					t.Fatalf("segment %d has %d runes, max %d", i, len(runes), tc.max)
				}
				if i == 0 {
					sb.WriteString(s)
					continue
				}
				sb.WriteString(string(runes[tc.overlap:]))
			}

			if sb.String() != tc.text {
				t.Errorf("round trip mismatch:\ngot:  %q\nwant: %q", sb.String(), tc.text)
			}
		})
	}
}

func TestChunk_EverySegmentStartsWithPredecessorTail(t *testing.T) {
	c, err := New(12, 4)
	if err != nil {
		t.Fatal(err)
	}

	text := strings.Repeat("abcdefghij", 10)
	segments := c.Chunk(text)
	if len(segments) < 2 {
		t.Fatalf("expected multiple segments, got %d", len(segments))
	}

	for i := 1; i < len(segments); i++ {
		prev := []rune(segments[i-1])
		tail := string(prev[len(prev)-4:])
		if !strings.HasPrefix(segments[i], tail) {
			t.Errorf("segment %d %q does not start with %q", i, segments[i], tail)
		}
	}
}
