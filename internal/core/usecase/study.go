package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/study-assistant/internal/core/domain"
	"github.com/kirillkom/study-assistant/internal/core/ports"
	"github.com/kirillkom/study-assistant/internal/core/retrieval"
)

const DefaultSummaryLanguage = "VIETNAMESE"

// StudyUseCase grounds chat, explanations and summaries on one ready document.
type StudyUseCase struct {
	repo      ports.DocumentRepository
	chats     ports.ChatHistoryStore
	generator ports.AnswerGenerator
	cfg       domain.RetrievalConfig
	now       func() time.Time
}

func NewStudyUseCase(
	repo ports.DocumentRepository,
	chats ports.ChatHistoryStore,
	generator ports.AnswerGenerator,
	cfg domain.RetrievalConfig,
) *StudyUseCase {
	return &StudyUseCase{
		repo:      repo,
		chats:     chats,
		generator: generator,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (uc *StudyUseCase) SelectContext(ctx context.Context, documentID, query string) (*domain.ContextSelection, error) {
	if _, err := uc.readyDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return uc.selectContext(ctx, documentID, query)
}

func (uc *StudyUseCase) Chat(ctx context.Context, documentID, question string) (*domain.ChatAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chat", errors.New("question is required"))
	}
	if _, err := uc.readyDocument(ctx, documentID); err != nil {
		return nil, err
	}

	selection, err := uc.selectContext(ctx, documentID, question)
	if err != nil {
		return nil, err
	}

	answer, err := uc.generator.GenerateAnswer(ctx, question, selection.Chunks)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	now := uc.now()
	if err := uc.chats.AppendMessages(ctx,
		domain.ChatMessage{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			Role:       domain.ChatRoleUser,
			Content:    question,
			Sources:    []int{},
			CreatedAt:  now,
		},
		domain.ChatMessage{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			Role:       domain.ChatRoleAssistant,
			Content:    answer,
			Sources:    selection.Sources,
			CreatedAt:  now,
		},
	); err != nil {
		return nil, fmt.Errorf("append chat history: %w", err)
	}

	return &domain.ChatAnswer{
		Question: question,
		Answer:   answer,
		Sources:  selection.Sources,
		Strategy: selection.Strategy,
	}, nil
}

func (uc *StudyUseCase) ExplainConcept(ctx context.Context, documentID, concept string) (*domain.ConceptExplanation, error) {
	concept = strings.TrimSpace(concept)
	if concept == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "explain concept", errors.New("concept is required"))
	}
	if _, err := uc.readyDocument(ctx, documentID); err != nil {
		return nil, err
	}

	selection, err := uc.selectContext(ctx, documentID, concept)
	if err != nil {
		return nil, err
	}

	explanation, err := uc.generator.ExplainConcept(ctx, concept, selection.Chunks)
	if err != nil {
		return nil, fmt.Errorf("explain concept: %w", err)
	}

	return &domain.ConceptExplanation{
		Concept:     concept,
		Explanation: explanation,
		Sources:     selection.Sources,
		Strategy:    selection.Strategy,
	}, nil
}

func (uc *StudyUseCase) Summarize(ctx context.Context, documentID, language string) (*domain.Summary, error) {
	doc, err := uc.readyDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	language = strings.TrimSpace(language)
	if language == "" {
		language = DefaultSummaryLanguage
	}

	summary, err := uc.generator.Summarize(ctx, doc.ExtractedText, language)
	if err != nil {
		return nil, fmt.Errorf("summarize document: %w", err)
	}

	return &domain.Summary{
		DocumentID: documentID,
		Language:   language,
		Summary:    summary,
	}, nil
}

func (uc *StudyUseCase) ChatHistory(ctx context.Context, documentID string) ([]domain.ChatMessage, error) {
	if _, err := uc.repo.GetByID(ctx, documentID); err != nil {
		return nil, err
	}
	return uc.chats.ListMessages(ctx, documentID)
}

func (uc *StudyUseCase) DeleteChatHistory(ctx context.Context, documentID string) error {
	if _, err := uc.repo.GetByID(ctx, documentID); err != nil {
		return err
	}
	return uc.chats.DeleteMessages(ctx, documentID)
}

func (uc *StudyUseCase) readyDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != domain.StatusReady {
		return nil, domain.WrapError(
			domain.ErrNotReady,
			"load document",
			fmt.Errorf("document %s is %s", documentID, doc.Status),
		)
	}
	return doc, nil
}

func (uc *StudyUseCase) selectContext(ctx context.Context, documentID, query string) (*domain.ContextSelection, error) {
	chunks, err := uc.repo.GetChunks(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}

	selection, err := retrieval.SelectWithStrategy(chunks, query, uc.cfg)
	if err != nil {
		return nil, err
	}

	sources := domain.ChunkIndexes(selection.Chunks)
	slog.DebugContext(ctx, "context_selected",
		"document_id", documentID,
		"strategy", string(selection.Strategy),
		"corpus_chunks", len(chunks),
		"selected_chunks", len(selection.Chunks),
	)

	return &domain.ContextSelection{
		DocumentID: documentID,
		Query:      query,
		Strategy:   selection.Strategy,
		Sources:    sources,
		Chunks:     selection.Chunks,
	}, nil
}
