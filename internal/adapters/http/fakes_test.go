package httpadapter

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/kirillkom/study-assistant/internal/config"
	"github.com/kirillkom/study-assistant/internal/core/domain"
	"github.com/kirillkom/study-assistant/internal/observability/metrics"
)

type ingestFake struct {
	err      error
	title    string
	filename string
	mimeType string
	body     []byte
}

func (f *ingestFake) Upload(_ context.Context, title, filename, mimeType string, body io.Reader) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.title, f.filename, f.mimeType, f.body = title, filename, mimeType, raw

	now := time.Now().UTC()
	return &domain.Document{
		ID:        "doc-1",
		Title:     title,
		Filename:  filename,
		MimeType:  mimeType,
		SizeBytes: int64(len(raw)),
		Status:    domain.StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

type docsFake struct {
	err       error
	doc       *domain.Document
	chunks    []domain.Chunk
	listOpts  domain.ListOptions
	newTitle  string
	deletedID string
}

func (f *docsFake) Get(_ context.Context, id string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.doc != nil {
		return f.doc, nil
	}
	return &domain.Document{ID: id, Title: "Lecture 1", Status: domain.StatusReady}, nil
}

func (f *docsFake) List(_ context.Context, opts domain.ListOptions) (domain.DocumentPage, error) {
	f.listOpts = opts
	if f.err != nil {
		return domain.DocumentPage{}, f.err
	}
	return domain.DocumentPage{Documents: []domain.Document{{ID: "doc-1"}}, Count: 1}, nil
}

func (f *docsFake) Chunks(_ context.Context, _ string) ([]domain.Chunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks, nil
}

func (f *docsFake) UpdateTitle(_ context.Context, id, title string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.newTitle = title
	return &domain.Document{ID: id, Title: title, Status: domain.StatusReady}, nil
}

func (f *docsFake) Delete(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deletedID = id
	return nil
}

type studyFake struct {
	err       error
	question  string
	concept   string
	query     string
	language  string
	cleared   string
	selection *domain.ContextSelection
}

func (f *studyFake) Chat(_ context.Context, _ string, question string) (*domain.ChatAnswer, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.question = question
	return &domain.ChatAnswer{Question: question, Answer: "grounded", Sources: []int{0, 3}, Strategy: domain.StrategyScored}, nil
}

func (f *studyFake) ExplainConcept(_ context.Context, _ string, concept string) (*domain.ConceptExplanation, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.concept = concept
	return &domain.ConceptExplanation{Concept: concept, Explanation: "explained", Sources: []int{0}, Strategy: domain.StrategyFallback}, nil
}

func (f *studyFake) Summarize(_ context.Context, documentID, language string) (*domain.Summary, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.language = language
	return &domain.Summary{DocumentID: documentID, Language: language, Summary: "short"}, nil
}

func (f *studyFake) SelectContext(_ context.Context, documentID, query string) (*domain.ContextSelection, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.query = query
	if f.selection != nil {
		return f.selection, nil
	}
	return &domain.ContextSelection{
		DocumentID: documentID,
		Query:      query,
		Strategy:   domain.StrategyPreview,
		Sources:    []int{0},
		Chunks:     []domain.Chunk{{Content: "intro", ChunkIndex: 0}},
	}, nil
}

func (f *studyFake) ChatHistory(_ context.Context, documentID string) ([]domain.ChatMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []domain.ChatMessage{
		{ID: "m1", DocumentID: documentID, Role: domain.ChatRoleUser, Content: "q", Sources: []int{}},
		{ID: "m2", DocumentID: documentID, Role: domain.ChatRoleAssistant, Content: "a", Sources: []int{0}},
	}, nil
}

func (f *studyFake) DeleteChatHistory(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.cleared = documentID
	return nil
}

func testConfig() config.Config {
	return config.Config{
		MaxUploadBytes:  1 << 20,
		SummaryLanguage: "VIETNAMESE",
	}
}

type testDeps struct {
	ingest  *ingestFake
	docs    *docsFake
	study   *studyFake
	metrics *metrics.HTTPServerMetrics
}

func newTestDeps() *testDeps {
	return &testDeps{
		ingest:  &ingestFake{},
		docs:    &docsFake{},
		study:   &studyFake{},
		metrics: metrics.NewHTTPServerMetrics(serviceName),
	}
}

func newTestHandler(t *testing.T, cfg config.Config, deps *testDeps) http.Handler {
	t.Helper()
	handler, err := NewRouter(cfg, deps.ingest, deps.docs, deps.study, deps.metrics).Handler(context.Background())
	if err != nil {
		t.Fatalf("Handler() error = %v", err)
	}
	return handler
}
