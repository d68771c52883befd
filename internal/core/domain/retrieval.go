package domain

import (
	"errors"
	"fmt"
)

// RetrievalConfig tunes segmentation and context selection. It is passed by
// value to every call; nothing reads it from package state.
type RetrievalConfig struct {
	ChunkSize                int `json:"chunk_size" yaml:"chunk_size"`
	Overlap                  int `json:"overlap" yaml:"overlap"`
	SmallCorpusCharThreshold int `json:"small_corpus_char_threshold" yaml:"small_corpus_char_threshold"`
	FallbackCount            int `json:"fallback_count" yaml:"fallback_count"`
	ResultCap                int `json:"result_cap" yaml:"result_cap"`
	EmptyQueryPreviewCount   int `json:"empty_query_preview_count" yaml:"empty_query_preview_count"`
}

func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		ChunkSize:                500,
		Overlap:                  50,
		SmallCorpusCharThreshold: 30000,
		FallbackCount:            5,
		ResultCap:                15,
		EmptyQueryPreviewCount:   3,
	}
}

// ValidateSegmentation checks the settings the segmenter depends on. A step of
// ChunkSize-Overlap below one would never advance.
func (c RetrievalConfig) ValidateSegmentation() error {
	switch {
	case c.ChunkSize <= 0:
		return invalidConfig(fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize))
	case c.Overlap < 0:
		return invalidConfig(fmt.Errorf("overlap must not be negative, got %d", c.Overlap))
	case c.Overlap >= c.ChunkSize:
		return invalidConfig(fmt.Errorf("overlap %d must be smaller than chunk size %d", c.Overlap, c.ChunkSize))
	}
	return nil
}

// Validate checks every setting, including the selection limits.
func (c RetrievalConfig) Validate() error {
	if err := c.ValidateSegmentation(); err != nil {
		return err
	}
	switch {
	case c.ResultCap <= 0:
		return invalidConfig(fmt.Errorf("result cap must be positive, got %d", c.ResultCap))
	case c.SmallCorpusCharThreshold < 0:
		return invalidConfig(fmt.Errorf("small corpus threshold must not be negative, got %d", c.SmallCorpusCharThreshold))
	case c.FallbackCount < 0 || c.FallbackCount > c.ResultCap:
		return invalidConfig(fmt.Errorf("fallback count %d must be within [0, %d]", c.FallbackCount, c.ResultCap))
	case c.EmptyQueryPreviewCount < 0 || c.EmptyQueryPreviewCount > c.ResultCap:
		return invalidConfig(fmt.Errorf("empty query preview count %d must be within [0, %d]", c.EmptyQueryPreviewCount, c.ResultCap))
	}
	return nil
}

func invalidConfig(err error) error {
	return WrapError(ErrInvalidConfiguration, "validate retrieval config", err)
}

// IsInvalidConfiguration reports whether err came from config validation.
func IsInvalidConfiguration(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}
