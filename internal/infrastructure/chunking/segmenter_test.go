package chunking

import (
	"strings"
	"testing"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

func TestNewSegmenterRejectsInvalidSettings(t *testing.T) {
	cfg := domain.DefaultRetrievalConfig()
	cfg.Overlap = cfg.ChunkSize

	if _, err := NewSegmenter(cfg); !domain.IsInvalidConfiguration(err) {
		t.Fatalf("expected invalid configuration, got %v", err)
	}
}

func TestSegmenterSplitUsesConfiguredSize(t *testing.T) {
	cfg := domain.DefaultRetrievalConfig()
	cfg.ChunkSize = 3
	cfg.Overlap = 0

	s, err := NewSegmenter(cfg)
	if err != nil {
		t.Fatalf("NewSegmenter() error = %v", err)
	}
	chunks, err := s.Split(strings.Repeat("word ", 7))
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[2].Content != "word" || chunks[2].ChunkIndex != 2 {
		t.Fatalf("unexpected last chunk: %+v", chunks[2])
	}
}
