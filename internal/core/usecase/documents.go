package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/study-assistant/internal/core/domain"
	"github.com/kirillkom/study-assistant/internal/core/ports"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type DocumentService struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	chats   ports.ChatHistoryStore
}

func NewDocumentService(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	chats ports.ChatHistoryStore,
) *DocumentService {
	return &DocumentService{
		repo:    repo,
		storage: storage,
		chats:   chats,
	}
}

func (s *DocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Touch(ctx, id); err != nil {
		return nil, fmt.Errorf("touch document: %w", err)
	}
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context, opts domain.ListOptions) (domain.DocumentPage, error) {
	if opts.Offset < 0 {
		return domain.DocumentPage{}, domain.WrapError(domain.ErrInvalidInput, "list documents", errors.New("offset must not be negative"))
	}
	switch {
	case opts.Limit <= 0:
		opts.Limit = defaultListLimit
	case opts.Limit > maxListLimit:
		opts.Limit = maxListLimit
	}
	return s.repo.List(ctx, opts)
}

func (s *DocumentService) Chunks(ctx context.Context, id string) ([]domain.Chunk, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetChunks(ctx, id)
}

func (s *DocumentService) UpdateTitle(ctx context.Context, id, title string) (*domain.Document, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "update title", errors.New("title is required"))
	}
	if err := s.repo.UpdateTitle(ctx, id, title); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Delete removes the stored file, the chat history and the document row with
// its chunks. A file that is already gone is not an error.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, doc.StoragePath); err != nil {
		return fmt.Errorf("delete stored file: %w", err)
	}
	if err := s.chats.DeleteMessages(ctx, id); err != nil {
		return fmt.Errorf("delete chat history: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
