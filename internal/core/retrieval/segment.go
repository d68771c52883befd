// Package retrieval turns extracted document text into ordered chunks and picks
// the chunks that ground an answer to a query. Everything here is pure: no I/O,
// no shared state, and the config is always passed in.
package retrieval

import (
	"strings"
	"unicode"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

const paragraphSeparator = "\n\n"

// Segment splits text into chunks of at most cfg.ChunkSize words, packing whole
// paragraphs greedily and carrying cfg.Overlap words across chunk boundaries.
func Segment(text string, cfg domain.RetrievalConfig) ([]domain.Chunk, error) {
	if err := cfg.ValidateSegmentation(); err != nil {
		return nil, err
	}

	normalized := normalizeWhitespace(text)
	if normalized == "" {
		return []domain.Chunk{}, nil
	}

	s := &segmenter{size: cfg.ChunkSize, overlap: cfg.Overlap}
	for _, paragraph := range strings.Split(normalized, "\n") {
		if paragraph == "" {
			continue
		}
		s.add(paragraph)
	}
	s.flush()

	if len(s.chunks) == 0 {
		s.emitWindows(strings.Fields(normalized))
	}
	return s.chunks, nil
}

type segmenter struct {
	size    int
	overlap int

	parts     []string
	wordCount int
	chunks    []domain.Chunk
}

func (s *segmenter) add(paragraph string) {
	words := strings.Fields(paragraph)

	switch {
	case len(words) > s.size:
		s.flush()
		s.emitWindows(words)
	case s.wordCount+len(words) > s.size && len(s.parts) > 0:
		tail := lastWords(strings.Fields(strings.Join(s.parts, " ")), s.seedOverlap(len(words)))
		s.flush()
		if len(tail) > 0 {
			s.parts = append(s.parts, strings.Join(tail, " "))
		}
		s.parts = append(s.parts, paragraph)
		s.wordCount = len(tail) + len(words)
	default:
		s.parts = append(s.parts, paragraph)
		s.wordCount += len(words)
	}
}

// seedOverlap keeps the carried-over words plus the next paragraph within the
// chunk size.
func (s *segmenter) seedOverlap(paragraphWords int) int {
	room := s.size - paragraphWords
	if room < s.overlap {
		return room
	}
	return s.overlap
}

func (s *segmenter) flush() {
	if len(s.parts) == 0 {
		return
	}
	s.emit(strings.Join(s.parts, paragraphSeparator))
	s.parts = s.parts[:0]
	s.wordCount = 0
}

// emitWindows emits fixed windows of s.size words stepping by size-overlap.
// The last window always ends on the final word.
func (s *segmenter) emitWindows(words []string) {
	step := s.size - s.overlap
	for start := 0; start < len(words); start += step {
		end := start + s.size
		if end > len(words) {
			end = len(words)
		}
		s.emit(strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
}

func (s *segmenter) emit(content string) {
	s.chunks = append(s.chunks, domain.Chunk{
		Content:    content,
		ChunkIndex: len(s.chunks),
		PageNumber: 0,
	})
}

func lastWords(words []string, n int) []string {
	if n <= 0 {
		return nil
	}
	if n > len(words) {
		n = len(words)
	}
	return words[len(words)-n:]
}

// normalizeWhitespace unifies line breaks, collapses horizontal whitespace and
// trims every line, keeping line breaks as paragraph boundaries.
func normalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.FieldsFunc(line, isHorizontalSpace), " ")
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func isHorizontalSpace(r rune) bool {
	return r != '\n' && unicode.IsSpace(r)
}
