// Package parser extracts normalized plain text from uploaded file bytes.
package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/intellidoc-ai/intellidoc/internal/domain"
)

// Parser is a pure transform over bytes: no side effects, safe for
// concurrent use.
type Parser struct{}

// New creates a Parser.
func New() *Parser {
	return &Parser{}
}

// Parse extracts text from data according to the declared source type and
// normalizes it. Fails with ErrUnsupportedFormat for unknown source types,
// ErrParseFailure for unreadable bodies, and ErrEmptyDocument when nothing
// remains after normalization.
func (p *Parser) Parse(data []byte, src domain.SourceType) (string, error) {
	var text string
	var err error

	switch src {
	case domain.SourceTXT:
		text, err = parseTXT(data)
	case domain.SourcePDF:
		text, err = parsePDF(data)
	default:
		return "", fmt.Errorf("source type %q: %w", src, domain.ErrUnsupportedFormat)
	}
	if err != nil {
		return "", err
	}

	text = Normalize(text)
	if text == "" {
		return "", domain.ErrEmptyDocument
	}
	return text, nil
}

func parseTXT(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("text file is not valid UTF-8: %w", domain.ErrParseFailure)
	}
	return string(data), nil
}

// parsePDF extracts the plain text of every page. The reader panics on some
// malformed xref tables, so failures are recovered into ErrParseFailure.
func parsePDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("pdf reader panic: %v: %w", r, domain.ErrParseFailure)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %v: %w", err, domain.ErrParseFailure)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %v: %w", err, domain.ErrParseFailure)
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %v: %w", err, domain.ErrParseFailure)
	}
	return sb.String(), nil
}

// Normalize canonicalizes extracted text: CRLF/CR become LF, runs of spaces
// and tabs collapse to a single space, line edges are trimmed, runs of blank
// lines collapse to one, and outer blank lines are dropped.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
