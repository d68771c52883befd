package ports

import (
	"context"
	"io"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

// DocumentRepository persists document state and its chunk list.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, opts domain.ListOptions) (domain.DocumentPage, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	UpdateTitle(ctx context.Context, id, title string) error
	// SaveProcessingResult replaces the extracted text and the whole chunk list
	// in one step and marks the document ready.
	SaveProcessingResult(ctx context.Context, id, text string, chunks []domain.Chunk) error
	GetChunks(ctx context.Context, id string) ([]domain.Chunk, error)
	Touch(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// ChatHistoryStore persists per-document chat messages.
type ChatHistoryStore interface {
	AppendMessages(ctx context.Context, messages ...domain.ChatMessage) error
	ListMessages(ctx context.Context, documentID string) ([]domain.ChatMessage, error)
	DeleteMessages(ctx context.Context, documentID string) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// Chunker splits extracted text into ordered chunks.
type Chunker interface {
	Split(text string) ([]domain.Chunk, error)
}

// AnswerGenerator produces the user-facing text from selected context.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, chunks []domain.Chunk) (string, error)
	ExplainConcept(ctx context.Context, concept string, chunks []domain.Chunk) (string, error)
	Summarize(ctx context.Context, text, language string) (string, error)
}
