package domain

import "time"

// SelectionStrategy names the policy branch that produced a context selection.
type SelectionStrategy string

const (
	StrategyEmptyCorpus SelectionStrategy = "empty"
	StrategyPreview     SelectionStrategy = "preview"
	StrategyBypass      SelectionStrategy = "bypass"
	StrategyScored      SelectionStrategy = "scored"
	StrategyFallback    SelectionStrategy = "fallback"
)

type ContextSelection struct {
	DocumentID string            `json:"document_id"`
	Query      string            `json:"query"`
	Strategy   SelectionStrategy `json:"strategy"`
	Sources    []int             `json:"sources"`
	Chunks     []Chunk           `json:"chunks"`
}

type ChatAnswer struct {
	Question string            `json:"question"`
	Answer   string            `json:"answer"`
	Sources  []int             `json:"sources"`
	Strategy SelectionStrategy `json:"strategy"`
}

type ConceptExplanation struct {
	Concept     string            `json:"concept"`
	Explanation string            `json:"explanation"`
	Sources     []int             `json:"sources"`
	Strategy    SelectionStrategy `json:"strategy"`
}

type Summary struct {
	DocumentID string `json:"document_id"`
	Language   string `json:"language"`
	Summary    string `json:"summary"`
}

type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

type ChatMessage struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Role       ChatRole  `json:"role"`
	Content    string    `json:"content"`
	Sources    []int     `json:"sources"`
	CreatedAt  time.Time `json:"created_at"`
}
