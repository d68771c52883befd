package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

func postJSON(handler http.Handler, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(http.MethodPost, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestChatReturnsAnswerWithSources(t *testing.T) {
	deps := newTestDeps()
	handler := newTestHandler(t, testConfig(), deps)

	res := postJSON(handler, "/v1/documents/doc-1/chat", `{"question":"What is ATP?"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var answer domain.ChatAnswer
	if err := json.NewDecoder(res.Body).Decode(&answer); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if answer.Answer != "grounded" || len(answer.Sources) != 2 || answer.Strategy != domain.StrategyScored {
		t.Fatalf("unexpected answer %+v", answer)
	}
	if deps.study.question != "What is ATP?" {
		t.Fatalf("expected question to be forwarded, got %q", deps.study.question)
	}
}

func TestChatRequiresQuestion(t *testing.T) {
	deps := newTestDeps()
	handler := newTestHandler(t, testConfig(), deps)

	for _, body := range []string{`{}`, `{"question":""}`, `{"question":`} {
		res := postJSON(handler, "/v1/documents/doc-1/chat", body)
		if res.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, res.Code)
		}
	}
	if deps.study.question != "" {
		t.Fatalf("expected invalid requests not to reach the service")
	}
}

func TestStudyErrorsMapToStatusCodes(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.WrapError(domain.ErrNotReady, "chat", errors.New("status=processing")), http.StatusConflict},
		{domain.WrapError(domain.ErrDocumentNotFound, "chat", errors.New("id=doc-1")), http.StatusNotFound},
		{domain.WrapError(domain.ErrTemporary, "ollama.generate", errors.New("503")), http.StatusServiceUnavailable},
		{domain.WrapError(domain.ErrInvalidConfiguration, "select", errors.New("cap")), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		deps := newTestDeps()
		deps.study.err = tc.err
		handler := newTestHandler(t, testConfig(), deps)

		res := postJSON(handler, "/v1/documents/doc-1/chat", `{"question":"q"}`)
		if res.Code != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, res.Code)
		}
		if tc.want == http.StatusInternalServerError && strings.Contains(res.Body.String(), "boom") {
			t.Fatalf("expected internal error details to stay hidden, got %s", res.Body.String())
		}
	}
}

func TestSelectContextAcceptsEmptyBody(t *testing.T) {
	deps := newTestDeps()
	handler := newTestHandler(t, testConfig(), deps)

	res := postJSON(handler, "/v1/documents/doc-1/context", "")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var selection domain.ContextSelection
	if err := json.NewDecoder(res.Body).Decode(&selection); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if selection.Strategy != domain.StrategyPreview || len(selection.Chunks) != 1 {
		t.Fatalf("unexpected selection %+v", selection)
	}
}

func TestSelectContextForwardsQuery(t *testing.T) {
	deps := newTestDeps()
	handler := newTestHandler(t, testConfig(), deps)

	res := postJSON(handler, "/v1/documents/doc-1/context", `{"query":"krebs cycle"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if deps.study.query != "krebs cycle" {
		t.Fatalf("expected query to be forwarded, got %q", deps.study.query)
	}
}

func TestExplainConcept(t *testing.T) {
	deps := newTestDeps()
	handler := newTestHandler(t, testConfig(), deps)

	res := postJSON(handler, "/v1/documents/doc-1/explain", `{"concept":"osmosis"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if deps.study.concept != "osmosis" {
		t.Fatalf("expected concept to be forwarded, got %q", deps.study.concept)
	}
}

func TestSummaryDefaultsLanguage(t *testing.T) {
	deps := newTestDeps()
	handler := newTestHandler(t, testConfig(), deps)

	res := postJSON(handler, "/v1/documents/doc-1/summary", "")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if deps.study.language != "VIETNAMESE" {
		t.Fatalf("expected configured default language, got %q", deps.study.language)
	}

	res = postJSON(handler, "/v1/documents/doc-1/summary", `{"language":"ENGLISH"}`)
	if res.Code != http.StatusOK || deps.study.language != "ENGLISH" {
		t.Fatalf("expected explicit language, got %d %q", res.Code, deps.study.language)
	}
}

func TestChatHistoryLifecycle(t *testing.T) {
	deps := newTestDeps()
	handler := newTestHandler(t, testConfig(), deps)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/documents/doc-1/chat", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var history struct {
		DocumentID string               `json:"document_id"`
		Messages   []domain.ChatMessage `json:"messages"`
	}
	if err := json.NewDecoder(res.Body).Decode(&history); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if history.DocumentID != "doc-1" || len(history.Messages) != 2 || history.Messages[0].Role != domain.ChatRoleUser {
		t.Fatalf("unexpected history %+v", history)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodDelete, "/v1/documents/doc-1/chat", nil))
	if res.Code != http.StatusNoContent || deps.study.cleared != "doc-1" {
		t.Fatalf("expected history to be cleared, got %d %q", res.Code, deps.study.cleared)
	}
}

func TestChatRecordsSelectionMetrics(t *testing.T) {
	deps := newTestDeps()
	handler := newTestHandler(t, testConfig(), deps)

	if res := postJSON(handler, "/v1/documents/doc-1/chat", `{"question":"q"}`); res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(res.Body.String(), `study_selection_requests_total{operation="chat",service="study-api",strategy="scored"} 1`) {
		t.Fatalf("expected selection metric, got:\n%s", res.Body.String())
	}
}
