package llm

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

type recordingCompleter struct {
	requests []Request
	reply    string
}

func (r *recordingCompleter) Complete(_ context.Context, req Request) (string, error) {
	r.requests = append(r.requests, req)
	return r.reply, nil
}

func TestGenerateAnswerNumbersChunks(t *testing.T) {
	rec := &recordingCompleter{reply: "  answer \n"}
	gen := NewGenerator(rec)

	out, err := gen.GenerateAnswer(context.Background(), "what is ATP?", []domain.Chunk{
		{Content: "intro", ChunkIndex: 0},
		{Content: "ATP stores energy", ChunkIndex: 9},
	})
	if err != nil {
		t.Fatalf("GenerateAnswer() error = %v", err)
	}
	if out != "answer" {
		t.Fatalf("expected trimmed answer, got %q", out)
	}
	prompt := rec.requests[0].Prompt
	for _, want := range []string{"[Chunk 1]\nintro", "[Chunk 2]\nATP stores energy", "Question: what is ATP?"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected prompt to contain %q:\n%s", want, prompt)
		}
	}
	if rec.requests[0].Operation != "chat" || rec.requests[0].Temperature != 0 {
		t.Fatalf("unexpected request metadata: %+v", rec.requests[0])
	}
}

func TestExplainPromptQuotesConcept(t *testing.T) {
	rec := &recordingCompleter{reply: "x"}
	if _, err := NewGenerator(rec).ExplainConcept(context.Background(), "Krebs cycle", []domain.Chunk{{Content: "ctx"}}); err != nil {
		t.Fatalf("ExplainConcept() error = %v", err)
	}
	if !strings.Contains(rec.requests[0].Prompt, `"Krebs cycle"`) {
		t.Fatalf("expected quoted concept in prompt: %s", rec.requests[0].Prompt)
	}
}

func TestSummarizeUsesLanguageAndTemperature(t *testing.T) {
	rec := &recordingCompleter{reply: "x"}
	if _, err := NewGenerator(rec).Summarize(context.Background(), "body text", "ENGLISH"); err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	req := rec.requests[0]
	if !strings.Contains(req.Prompt, "Language: ENGLISH.") || req.Temperature != summaryTemperature {
		t.Fatalf("unexpected summary request: %+v", req)
	}
}

func TestSummarizeRejectsEmptyText(t *testing.T) {
	rec := &recordingCompleter{}
	if _, err := NewGenerator(rec).Summarize(context.Background(), "  ", "ENGLISH"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if len(rec.requests) != 0 {
		t.Fatalf("expected no provider call")
	}
}

func TestTruncateRunesKeepsValidUTF8(t *testing.T) {
	got := truncateRunes("t\u1ebf b\u00e0o h\u1ecdc", 3)
	if got != "t\u1ebf " || !utf8.ValidString(got) {
		t.Fatalf("unexpected truncation %q", got)
	}
	if truncateRunes("abc", 10) != "abc" {
		t.Fatalf("expected short input untouched")
	}
}
