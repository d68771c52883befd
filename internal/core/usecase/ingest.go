package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/kirillkom/study-assistant/internal/core/domain"
	"github.com/kirillkom/study-assistant/internal/core/ports"
)

type IngestDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

// Upload stores the file, records the document as processing and hands it to
// the worker. The caller gets the document back before any text is extracted.
func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	title, filename, mimeType string,
	body io.Reader,
) (*domain.Document, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("filename is required"))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	size, err := uc.storage.Save(ctx, storageKey, body)
	if err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = filepath.Base(filename)
	}

	doc := &domain.Document{
		ID:           id,
		Title:        title,
		Filename:     filename,
		MimeType:     mimeType,
		StoragePath:  storageKey,
		SizeBytes:    size,
		Status:       domain.StatusProcessing,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastAccessed: now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	if err := uc.queue.PublishDocumentIngested(ctx, doc.ID); err != nil {
		err = fmt.Errorf("publish ingestion event: %w", err)
		// Nothing will pick the document up, so it must not stay processing.
		if statusErr := uc.repo.UpdateStatus(context.WithoutCancel(ctx), doc.ID, domain.StatusFailed, err.Error()); statusErr != nil {
			return nil, fmt.Errorf("%w; mark failed status: %v", err, statusErr)
		}
		return nil, err
	}

	return doc, nil
}

const fallbackStorageName = "document.bin"

// sanitizeFilename reduces name to its base and replaces anything outside
// ASCII letters, digits, dot, dash and underscore.
func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		return fallbackStorageName
	}

	var b strings.Builder
	b.Grow(len(base))
	for _, r := range base {
		if isStorageSafe(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}

func isStorageSafe(r rune) bool {
	if r > unicode.MaxASCII {
		return false
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_'
}
