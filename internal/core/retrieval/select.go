package retrieval

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

const (
	phraseMatchBonus = 10.0
	termMatchBonus   = 1.0
)

// Selection is the outcome of a context selection together with the policy
// branch that produced it.
type Selection struct {
	Chunks   []domain.Chunk
	Strategy domain.SelectionStrategy
}

type scoredChunk struct {
	domain.Chunk
	matchScore float64
	score      float64
}

// Select returns the chunks that should ground an answer to query, in document
// order. Short corpora are returned whole; longer ones are ranked by keyword
// overlap and capped at cfg.ResultCap.
func Select(chunks []domain.Chunk, query string, cfg domain.RetrievalConfig) ([]domain.Chunk, error) {
	selection, err := SelectWithStrategy(chunks, query, cfg)
	if err != nil {
		return nil, err
	}
	return selection.Chunks, nil
}

func SelectWithStrategy(chunks []domain.Chunk, query string, cfg domain.RetrievalConfig) (Selection, error) {
	if err := cfg.Validate(); err != nil {
		return Selection{}, err
	}

	if len(chunks) == 0 {
		return Selection{Chunks: []domain.Chunk{}, Strategy: domain.StrategyEmptyCorpus}, nil
	}

	// A blank query previews the opening of the document, however short it is.
	normalizedQuery := strings.ToLower(strings.TrimSpace(query))
	if normalizedQuery == "" {
		return Selection{
			Chunks:   firstByIndex(chunks, cfg.EmptyQueryPreviewCount),
			Strategy: domain.StrategyPreview,
		}, nil
	}

	// Short documents go out whole whatever the question.
	if totalChars(chunks) < cfg.SmallCorpusCharThreshold {
		all := make([]domain.Chunk, len(chunks))
		copy(all, chunks)
		return Selection{Chunks: all, Strategy: domain.StrategyBypass}, nil
	}

	ranked := rankChunks(chunks, normalizedQuery)
	if ranked[0].matchScore == 0 {
		return Selection{
			Chunks:   firstByIndex(chunks, cfg.FallbackCount),
			Strategy: domain.StrategyFallback,
		}, nil
	}

	selected := ranked
	if len(selected) > cfg.ResultCap {
		selected = selected[:cfg.ResultCap]
	}
	selected = includeFirstChunk(selected, chunks, cfg.ResultCap)

	out := make([]domain.Chunk, 0, len(selected))
	for _, sc := range selected {
		out = append(out, sc.Chunk)
	}
	sortByIndex(out)
	return Selection{Chunks: out, Strategy: domain.StrategyScored}, nil
}

// rankChunks scores every chunk and orders them best first. A chunk that
// matched anything always outranks one that did not, because the position
// bonus never exceeds one.
func rankChunks(chunks []domain.Chunk, query string) []scoredChunk {
	terms := queryTerms(query)

	ranked := make([]scoredChunk, 0, len(chunks))
	for _, chunk := range chunks {
		content := strings.ToLower(chunk.Content)

		match := 0.0
		if strings.Contains(content, query) {
			match += phraseMatchBonus
		}
		for _, term := range terms {
			if strings.Contains(content, term) {
				match += termMatchBonus
			}
		}

		ranked = append(ranked, scoredChunk{
			Chunk:      chunk,
			matchScore: match,
			score:      match + positionBonus(chunk.ChunkIndex),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].ChunkIndex < ranked[j].ChunkIndex
	})
	return ranked
}

// queryTerms returns the distinct whitespace tokens longer than one character.
func queryTerms(query string) []string {
	fields := strings.Fields(query)
	seen := make(map[string]struct{}, len(fields))
	terms := make([]string, 0, len(fields))
	for _, field := range fields {
		if utf8.RuneCountInString(field) <= 1 {
			continue
		}
		if _, ok := seen[field]; ok {
			continue
		}
		seen[field] = struct{}{}
		terms = append(terms, field)
	}
	return terms
}

func positionBonus(chunkIndex int) float64 {
	if chunkIndex < 0 {
		chunkIndex = 0
	}
	return 1.0 / float64(chunkIndex+1)
}

// includeFirstChunk makes sure the opening chunk, which usually carries the
// title and abstract, is part of a ranked selection. It takes the place of the
// lowest-ranked pick; a cap of one keeps the best match instead.
func includeFirstChunk(selected []scoredChunk, corpus []domain.Chunk, resultCap int) []scoredChunk {
	for _, sc := range selected {
		if sc.ChunkIndex == 0 {
			return selected
		}
	}

	first, ok := findChunk(corpus, 0)
	if !ok {
		return selected
	}
	// selected is short of the cap only when it holds the whole corpus, so
	// reaching here means it is full.
	if resultCap <= 1 {
		return selected
	}

	out := make([]scoredChunk, len(selected))
	copy(out, selected)
	out[len(out)-1] = scoredChunk{Chunk: first}
	return out
}

func findChunk(chunks []domain.Chunk, chunkIndex int) (domain.Chunk, bool) {
	for _, chunk := range chunks {
		if chunk.ChunkIndex == chunkIndex {
			return chunk, true
		}
	}
	return domain.Chunk{}, false
}

func firstByIndex(chunks []domain.Chunk, n int) []domain.Chunk {
	ordered := make([]domain.Chunk, len(chunks))
	copy(ordered, chunks)
	sortByIndex(ordered)
	if n > len(ordered) {
		n = len(ordered)
	}
	if n < 0 {
		n = 0
	}
	return ordered[:n]
}

func sortByIndex(chunks []domain.Chunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})
}

func totalChars(chunks []domain.Chunk) int {
	total := 0
	for _, chunk := range chunks {
		total += utf8.RuneCountInString(chunk.Content)
	}
	return total
}
