package ports

import (
	"context"
	"io"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, title, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentManager is the inbound read/write model for document metadata.
type DocumentManager interface {
	Get(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, opts domain.ListOptions) (domain.DocumentPage, error)
	Chunks(ctx context.Context, id string) ([]domain.Chunk, error)
	UpdateTitle(ctx context.Context, id, title string) (*domain.Document, error)
	Delete(ctx context.Context, id string) error
}

// StudyService answers questions about a single ready document.
type StudyService interface {
	Chat(ctx context.Context, documentID, question string) (*domain.ChatAnswer, error)
	ExplainConcept(ctx context.Context, documentID, concept string) (*domain.ConceptExplanation, error)
	Summarize(ctx context.Context, documentID, language string) (*domain.Summary, error)
	SelectContext(ctx context.Context, documentID, query string) (*domain.ContextSelection, error)
	ChatHistory(ctx context.Context, documentID string) ([]domain.ChatMessage, error)
	DeleteChatHistory(ctx context.Context, documentID string) error
}
