package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/study-assistant/internal/core/domain"
	"github.com/kirillkom/study-assistant/internal/core/ports"
)

type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{repo: repo, extractor: extractor, chunker: chunker}
}

// segmentedDocument is the output of one extraction run, persisted as a unit.
type segmentedDocument struct {
	text   string
	chunks []domain.Chunk
}

// ProcessByID extracts and segments a stored document. On success the chunk
// list and text are replaced together and the document becomes ready; any
// failure leaves it failed with the error message.
func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	result, err := uc.segment(ctx, documentID)
	if err != nil {
		return uc.fail(ctx, documentID, err)
	}
	if err := uc.repo.SaveProcessingResult(ctx, documentID, result.text, result.chunks); err != nil {
		return uc.fail(ctx, documentID, fmt.Errorf("save processing result: %w", err))
	}
	return nil
}

// segment accepts empty text: such a document ends up ready with no chunks.
func (uc *ProcessDocumentUseCase) segment(ctx context.Context, documentID string) (segmentedDocument, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return segmentedDocument{}, fmt.Errorf("fetch document by id: %w", err)
	}

	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return segmentedDocument{}, fmt.Errorf("extract text: %w", err)
	}

	chunks, err := uc.chunker.Split(text)
	if err != nil {
		return segmentedDocument{}, fmt.Errorf("segment document: %w", err)
	}
	return segmentedDocument{text: text, chunks: chunks}, nil
}

// fail records processErr on the document and returns it, annotated when the
// status update itself fails. The update ignores cancellation of ctx, which is
// often the reason processing stopped.
func (uc *ProcessDocumentUseCase) fail(ctx context.Context, documentID string, processErr error) error {
	if err := uc.repo.UpdateStatus(context.WithoutCancel(ctx), documentID, domain.StatusFailed, processErr.Error()); err != nil {
		return fmt.Errorf("%w; mark failed status: %v", processErr, err)
	}
	return processErr
}
