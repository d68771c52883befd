package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/study-assistant/internal/core/domain"
	"github.com/kirillkom/study-assistant/internal/infrastructure/llm"
)

func TestCompleteSendsSingleUserMessage(t *testing.T) {
	var captured openai.ChatCompletionRequest
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":" grounded answer "},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	client, err := New("secret", "llama-3.3-70b-versatile", Options{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	out, err := client.Complete(context.Background(), llm.Request{Prompt: "question", Temperature: 0.4})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out != "grounded answer" {
		t.Fatalf("unexpected answer %q", out)
	}
	if auth != "Bearer secret" {
		t.Fatalf("expected bearer auth, got %q", auth)
	}
	if captured.Model != "llama-3.3-70b-versatile" || len(captured.Messages) != 1 || captured.Messages[0].Content != "question" {
		t.Fatalf("unexpected request %+v", captured)
	}
}

func TestCompleteMapsThrottlingToTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	}))
	defer server.Close()

	client, err := New("secret", "m", Options{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := client.Complete(context.Background(), llm.Request{Prompt: "x"}); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(" ", "m", Options{}); err == nil {
		t.Fatalf("expected error for missing key")
	}
}
