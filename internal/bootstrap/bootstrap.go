package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/study-assistant/internal/config"
	"github.com/kirillkom/study-assistant/internal/core/ports"
	"github.com/kirillkom/study-assistant/internal/core/usecase"
	"github.com/kirillkom/study-assistant/internal/infrastructure/chunking"
	"github.com/kirillkom/study-assistant/internal/infrastructure/extractor"
	"github.com/kirillkom/study-assistant/internal/infrastructure/llm"
	"github.com/kirillkom/study-assistant/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/study-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/study-assistant/internal/infrastructure/llm/openaicompat"
	"github.com/kirillkom/study-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/study-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/study-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/study-assistant/internal/infrastructure/storage/localfs"
)

// WorkerProcessTimeout bounds one document's processing. Shutdown waits as
// long for documents already delivered to the worker.
const WorkerProcessTimeout = 5 * time.Minute

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	Documents ports.DocumentManager
	Study     ports.StudyService

	closeFn func()
}

type Options struct {
	// SkipQueue leaves Queue and IngestUC nil for processes that never
	// publish or consume ingest events.
	SkipQueue bool
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	chats := postgres.NewChatRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	completer, err := newCompleter(ctx, cfg, resilience.NewExecutor(generationPolicy(cfg)))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init llm provider: %w", err)
	}
	generator := llm.NewGenerator(completer)

	chunker, err := chunking.NewSegmenter(cfg.Retrieval)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init segmenter: %w", err)
	}
	textExtractor := extractor.New(storage, cfg.MaxUploadBytes)

	app := &App{
		Config:    cfg,
		Repo:      repo,
		ProcessUC: usecase.NewProcessDocumentUseCase(repo, textExtractor, chunker),
		Documents: usecase.NewDocumentService(repo, storage, chats),
		Study:     usecase.NewStudyUseCase(repo, chats, generator, cfg.Retrieval),
	}

	closeFns := []func(){func() { _ = db.Close() }}
	if !opts.SkipQueue {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: resilience.NewExecutor(publishPolicy(cfg)),
			DrainTimeout:       WorkerProcessTimeout,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.Queue = queue
		app.IngestUC = usecase.NewIngestDocumentUseCase(repo, storage, queue)
		closeFns = append([]func(){queue.Close}, closeFns...)
	}

	app.closeFn = func() {
		for _, fn := range closeFns {
			fn()
		}
	}
	return app, nil
}

func publishPolicy(cfg config.Config) resilience.Config {
	policy := resilience.DefaultConfig()
	policy.BreakerEnabled = cfg.BreakerEnabled
	return policy
}

func generationPolicy(cfg config.Config) resilience.Config {
	policy := resilience.GenerationConfig()
	policy.BreakerEnabled = cfg.BreakerEnabled
	if cfg.LLMRetryMaxAttempts > 0 {
		policy.RetryMaxAttempts = cfg.LLMRetryMaxAttempts
	}
	return policy
}

// newCompleter picks the generation backend named by LLM_PROVIDER.
func newCompleter(ctx context.Context, cfg config.Config, executor *resilience.Executor) (llm.Completer, error) {
	switch cfg.LLMProvider {
	case config.LLMProviderOllama:
		return ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, ollama.Options{
			Timeout:            cfg.LLMTimeout,
			ResilienceExecutor: executor,
		}), nil
	case config.LLMProviderGroq, config.LLMProviderOpenAI:
		baseURL := cfg.OpenAIBaseURL
		if baseURL == "" && cfg.LLMProvider == config.LLMProviderGroq {
			baseURL = openaicompat.GroqBaseURL
		}
		return openaicompat.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, openaicompat.Options{
			BaseURL:            baseURL,
			ResilienceExecutor: executor,
		})
	case config.LLMProviderGemini:
		return gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, gemini.Options{
			ResilienceExecutor: executor,
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
