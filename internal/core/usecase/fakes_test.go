package usecase

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

type statusCall struct {
	status domain.DocumentStatus
	errMsg string
}

type docRepoFake struct {
	docs        map[string]*domain.Document
	chunks      map[string][]domain.Chunk
	statusCalls []statusCall
	touched     []string
	deleted     []string

	createErr     error
	getErr        error
	statusErr     error
	failStatusErr error
	saveErr       error
}

func newDocRepoFake(docs ...*domain.Document) *docRepoFake {
	f := &docRepoFake{docs: map[string]*domain.Document{}, chunks: map[string][]domain.Chunk{}}
	for _, doc := range docs {
		f.docs[doc.ID] = doc
	}
	return f
}

func (f *docRepoFake) Create(_ context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	copyDoc := *doc
	f.docs[doc.ID] = &copyDoc
	return nil
}

func (f *docRepoFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(id))
	}
	copyDoc := *doc
	return &copyDoc, nil
}

func (f *docRepoFake) List(_ context.Context, opts domain.ListOptions) (domain.DocumentPage, error) {
	all := make([]domain.Document, 0, len(f.docs))
	for _, doc := range f.docs {
		all = append(all, *doc)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if opts.Offset > len(all) {
		opts.Offset = len(all)
	}
	end := opts.Offset + opts.Limit
	if end > len(all) {
		end = len(all)
	}
	page := all[opts.Offset:end]
	return domain.DocumentPage{Documents: page, Count: len(page)}, nil
}

func (f *docRepoFake) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	if err := ctx.Err(); err != nil {
		return err
	}
	if status == domain.StatusFailed && f.failStatusErr != nil {
		return f.failStatusErr
	}
	if f.statusErr != nil {
		return f.statusErr
	}
	if doc, ok := f.docs[id]; ok {
		doc.Status = status
		doc.Error = errMessage
	}
	return nil
}

func (f *docRepoFake) UpdateTitle(_ context.Context, id, title string) error {
	doc, ok := f.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "update title", errors.New(id))
	}
	doc.Title = title
	return nil
}

func (f *docRepoFake) SaveProcessingResult(_ context.Context, id, text string, chunks []domain.Chunk) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.chunks[id] = chunks
	if doc, ok := f.docs[id]; ok {
		doc.ExtractedText = text
		doc.ChunkCount = len(chunks)
		doc.Status = domain.StatusReady
		doc.Error = ""
	}
	f.statusCalls = append(f.statusCalls, statusCall{status: domain.StatusReady})
	return nil
}

func (f *docRepoFake) GetChunks(_ context.Context, id string) ([]domain.Chunk, error) {
	return f.chunks[id], nil
}

func (f *docRepoFake) Touch(_ context.Context, id string) error {
	f.touched = append(f.touched, id)
	return nil
}

func (f *docRepoFake) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.docs, id)
	delete(f.chunks, id)
	return nil
}

type storageFake struct {
	savedKey  string
	savedBody string
	deleted   []string
	err       error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return 0, err
	}
	f.savedKey = key
	f.savedBody = string(raw)
	return int64(len(raw)), nil
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.savedBody)), nil
}

func (f *storageFake) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type queueFake struct {
	publishedID string
	err         error
}

func (f *queueFake) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.publishedID = documentID
	return nil
}

func (f *queueFake) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return nil
}

type extractorFake struct {
	text string
	err  error
	// onExtract runs before the result is returned, e.g. to cancel the caller.
	onExtract func()
}

func (f *extractorFake) Extract(context.Context, *domain.Document) (string, error) {
	if f.onExtract != nil {
		f.onExtract()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type chatStoreFake struct {
	messages map[string][]domain.ChatMessage
	err      error
}

func newChatStoreFake() *chatStoreFake {
	return &chatStoreFake{messages: map[string][]domain.ChatMessage{}}
}

func (f *chatStoreFake) AppendMessages(_ context.Context, messages ...domain.ChatMessage) error {
	if f.err != nil {
		return f.err
	}
	for _, msg := range messages {
		f.messages[msg.DocumentID] = append(f.messages[msg.DocumentID], msg)
	}
	return nil
}

func (f *chatStoreFake) ListMessages(_ context.Context, documentID string) ([]domain.ChatMessage, error) {
	return f.messages[documentID], nil
}

func (f *chatStoreFake) DeleteMessages(_ context.Context, documentID string) error {
	delete(f.messages, documentID)
	return nil
}

type generatorFake struct {
	answer      string
	err         error
	gotQuestion string
	gotChunks   []domain.Chunk
	gotText     string
	gotLanguage string
}

func (f *generatorFake) GenerateAnswer(_ context.Context, question string, chunks []domain.Chunk) (string, error) {
	f.gotQuestion = question
	f.gotChunks = chunks
	return f.answer, f.err
}

func (f *generatorFake) ExplainConcept(_ context.Context, concept string, chunks []domain.Chunk) (string, error) {
	f.gotQuestion = concept
	f.gotChunks = chunks
	return f.answer, f.err
}

func (f *generatorFake) Summarize(_ context.Context, text, language string) (string, error) {
	f.gotText = text
	f.gotLanguage = language
	return f.answer, f.err
}
