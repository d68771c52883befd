// Package openaicompat talks to any OpenAI-compatible chat completion API,
// Groq included.
package openaicompat

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/study-assistant/internal/infrastructure/llm"
	"github.com/kirillkom/study-assistant/internal/infrastructure/resilience"
)

const GroqBaseURL = "https://api.groq.com/openai/v1"

var errEmptyCompletion = errors.New("completion returned no choices")

type Client struct {
	client   *openai.Client
	model    string
	executor *resilience.Executor
}

type Options struct {
	// BaseURL overrides the OpenAI endpoint, e.g. GroqBaseURL.
	BaseURL            string
	ResilienceExecutor *resilience.Executor
}

func New(apiKey, model string, options Options) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai-compatible api key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if options.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(options.BaseURL, "/")
	}
	return &Client{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		executor: options.ResilienceExecutor,
	}, nil
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	request := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: req.Temperature,
	}

	operation := "openai.chat_completion"
	text, err := resilience.Call(ctx, c.executor, operation, func(ctx context.Context) (string, error) {
		resp, err := c.client.CreateChatCompletion(ctx, request)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errEmptyCompletion
		}
		return resp.Choices[0].Message.Content, nil
	}, classifyOpenAIError)
	if err != nil {
		return "", resilience.WrapTemporary(operation, err, classifyOpenAIError)
	}
	return strings.TrimSpace(text), nil
}

func classifyOpenAIError(err error) resilience.ErrorClassification {
	if class, ok := resilience.ClassifyCommon(err); ok {
		return class
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return resilience.ClassifyHTTPStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return resilience.ClassifyHTTPStatus(reqErr.HTTPStatusCode)
	}

	return resilience.ErrorClassification{
		Retryable:     false,
		RecordFailure: true,
	}
}
