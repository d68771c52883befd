// Package gemini is the Google Gemini completion provider.
package gemini

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"github.com/kirillkom/study-assistant/internal/infrastructure/llm"
	"github.com/kirillkom/study-assistant/internal/infrastructure/resilience"
)

var errEmptyResponse = errors.New("gemini returned no candidates")

// Models is the part of *genai.Models the client uses.
type Models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content,
		config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Client struct {
	models   Models
	model    string
	executor *resilience.Executor
}

type Options struct {
	ResilienceExecutor *resilience.Executor
}

func New(ctx context.Context, apiKey, model string, options Options) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return NewWithModels(client.Models, model, options), nil
}

func NewWithModels(models Models, model string, options Options) *Client {
	return &Client{
		models:   models,
		model:    model,
		executor: options.ResilienceExecutor,
	}
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}
	config := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		temperature := req.Temperature
		config.Temperature = &temperature
	}

	operation := "gemini.generate_content"
	text, err := resilience.Call(ctx, c.executor, operation, func(ctx context.Context) (string, error) {
		resp, err := c.models.GenerateContent(ctx, c.model, contents, config)
		if err != nil {
			return "", err
		}
		return responseText(resp)
	}, classifyGeminiError)
	if err != nil {
		return "", resilience.WrapTemporary(operation, err, classifyGeminiError)
	}
	return strings.TrimSpace(text), nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errEmptyResponse
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String(), nil
}

func classifyGeminiError(err error) resilience.ErrorClassification {
	if class, ok := resilience.ClassifyCommon(err); ok {
		return class
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return resilience.ClassifyHTTPStatus(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return resilience.ClassifyHTTPStatus(apiErrPtr.Code)
	}

	return resilience.ErrorClassification{
		Retryable:     false,
		RecordFailure: true,
	}
}
