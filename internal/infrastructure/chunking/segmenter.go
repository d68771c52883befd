// Package chunking binds the configured segmentation settings to the pure
// segmenter so the processing pipeline can depend on ports.Chunker.
package chunking

import (
	"github.com/kirillkom/study-assistant/internal/core/domain"
	"github.com/kirillkom/study-assistant/internal/core/retrieval"
)

type Segmenter struct {
	cfg domain.RetrievalConfig
}

// NewSegmenter rejects settings the segmenter cannot run with instead of
// clamping them.
func NewSegmenter(cfg domain.RetrievalConfig) (*Segmenter, error) {
	if err := cfg.ValidateSegmentation(); err != nil {
		return nil, err
	}
	return &Segmenter{cfg: cfg}, nil
}

func (s *Segmenter) Split(text string) ([]domain.Chunk, error) {
	return retrieval.Segment(text, s.cfg)
}
