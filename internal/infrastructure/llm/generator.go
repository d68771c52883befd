// Package llm turns selected document context into prompts and sends them to
// whichever completion provider is configured.
package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

// Request is one single-turn completion.
type Request struct {
	Operation string
	Prompt    string
	// Temperature of zero leaves the provider default in place.
	Temperature float32
}

// Completer is implemented by every provider client.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type Generator struct {
	completer Completer
}

func NewGenerator(completer Completer) *Generator {
	return &Generator{completer: completer}
}

func (g *Generator) GenerateAnswer(ctx context.Context, question string, chunks []domain.Chunk) (string, error) {
	return g.complete(ctx, Request{Operation: "chat", Prompt: buildChatPrompt(question, chunks)})
}

func (g *Generator) ExplainConcept(ctx context.Context, concept string, chunks []domain.Chunk) (string, error) {
	return g.complete(ctx, Request{Operation: "explain", Prompt: buildExplainPrompt(concept, chunks)})
}

func (g *Generator) Summarize(ctx context.Context, text, language string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "summarize", errors.New("document has no extracted text"))
	}
	return g.complete(ctx, Request{
		Operation:   "summary",
		Prompt:      buildSummaryPrompt(text, language),
		Temperature: summaryTemperature,
	})
}

func (g *Generator) complete(ctx context.Context, req Request) (string, error) {
	out, err := g.completer.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
