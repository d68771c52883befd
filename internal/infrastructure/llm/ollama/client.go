package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/study-assistant/internal/infrastructure/llm"
	"github.com/kirillkom/study-assistant/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, model string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options *generateOption `json:"options,omitempty"`
}

type generateOption struct {
	Temperature float32 `json:"temperature"`
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	payload := generateRequest{Model: c.model, Prompt: req.Prompt}
	if req.Temperature > 0 {
		payload.Options = &generateOption{Temperature: req.Temperature}
	}

	operation := "ollama.generate"
	text, err := resilience.Call(ctx, c.executor, operation, func(ctx context.Context) (string, error) {
		var response struct {
			Response string `json:"response"`
		}
		if err := c.postJSON(ctx, "/api/generate", payload, &response); err != nil {
			return "", err
		}
		return response.Response, nil
	}, classifyError)
	if err != nil {
		return "", resilience.WrapTemporary(operation, err, classifyError)
	}
	return strings.TrimSpace(text), nil
}
