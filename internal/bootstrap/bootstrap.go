package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirillkom/rag-builder-assistant/internal/config"
	"github.com/kirillkom/rag-builder-assistant/internal/core/ports"
	"github.com/kirillkom/rag-builder-assistant/internal/core/usecase"
	"github.com/kirillkom/rag-builder-assistant/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/rag-builder-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/rag-builder-assistant/internal/infrastructure/llm/openai"
	"github.com/kirillkom/rag-builder-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/rag-builder-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/rag-builder-assistant/internal/infrastructure/rerank/cohere"
	"github.com/kirillkom/rag-builder-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/rag-builder-assistant/internal/infrastructure/taxonomy"
	"github.com/kirillkom/rag-builder-assistant/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Classifier ports.ScopeClassifier
	Query      ports.QueryService
	// Events is nil unless POSTGRES_DSN is set.
	Events *postgres.QueryEventRepository

	closers []func()
}

type pinger interface {
	Ping(ctx context.Context) error
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg}

	tax, err := taxonomy.LoadFile(cfg.TaxonomyPath)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}
	classifier := usecase.NewScopeClassifier(tax)
	app.Classifier = classifier

	exec := resilience.NewExecutor(resilienceConfig(cfg), logger)

	embedder, err := newEmbedder(ctx, cfg, exec)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	completer, err := newCompleter(ctx, cfg, exec)
	if err != nil {
		return nil, fmt.Errorf("init completer: %w", err)
	}

	vectorDB, err := app.newVectorStore(cfg, exec)
	if err != nil {
		return nil, fmt.Errorf("init vector store: %w", err)
	}
	if p, ok := vectorDB.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			logger.Warn("qdrant_unreachable", "collection", cfg.QdrantCollection, "error", err.Error())
		}
	}

	queryUC := usecase.NewQueryUseCase(
		classifier,
		usecase.NewCandidateRetriever(embedder, vectorDB, logger),
		newReranker(cfg, exec, logger),
		usecase.NewAnswerSynthesizer(completer),
		usecase.NewEssaySynthesizer(completer),
		usecase.QueryOptions{
			TopK:               cfg.RAGTopK,
			VagueBoost:         cfg.RAGVagueBoost,
			SummaryBoostFactor: cfg.RAGSummaryBoostFactor,
			DebugTrace:         cfg.RAGDebugTrace,
		},
		logger,
	)

	sinks, err := app.newSinks(ctx, cfg, exec, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	if len(sinks) > 0 {
		app.Query = usecase.NewAuditedQueryService(queryUC, logger, sinks...)
	} else {
		app.Query = queryUC
	}

	logger.Info("pipeline_ready",
		"llm_provider", cfg.LLMProvider,
		"embed_provider", cfg.EmbeddingProvider(),
		"qdrant_transport", cfg.QdrantTransport,
		"rerank_enabled", cfg.RerankEnabled(),
		"topics", len(tax.Topics()),
		"event_sinks", len(sinks),
	)
	return app, nil
}

// OpenEvents connects only the query event store, for tooling that reads it.
func OpenEvents(ctx context.Context, cfg config.Config) (*App, error) {
	if cfg.PostgresDSN == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}
	app := &App{Config: cfg}
	db, err := postgres.OpenDB(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	app.closers = append(app.closers, func() { _ = db.Close() })
	app.Events = postgres.NewQueryEventRepository(db)
	return app, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	out.Breaker.Enabled = cfg.UpstreamBreakerEnabled
	if cfg.UpstreamRetryMaxAttempts > 0 {
		out.Retry.MaxAttempts = cfg.UpstreamRetryMaxAttempts
	}
	return out
}

func newEmbedder(ctx context.Context, cfg config.Config, exec *resilience.Executor) (ports.Embedder, error) {
	switch cfg.EmbeddingProvider() {
	case config.ProviderOllama:
		return ollama.NewEmbedder(newOllama(cfg, exec)), nil
	case config.ProviderGemini:
		client, err := newGemini(ctx, cfg, exec)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderOpenAI:
		return openai.New(openAIOptions(cfg), exec), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider())
	}
}

func newCompleter(ctx context.Context, cfg config.Config, exec *resilience.Executor) (ports.Completer, error) {
	switch cfg.LLMProvider {
	case config.ProviderOllama:
		return ollama.NewCompleter(newOllama(cfg, exec)), nil
	case config.ProviderGemini:
		client, err := newGemini(ctx, cfg, exec)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderOpenAI:
		return openai.New(openAIOptions(cfg), exec), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

func newOllama(cfg config.Config, exec *resilience.Executor) *ollama.Client {
	return ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, exec).
		WithDimensions(cfg.EmbedDimensions).
		WithTimeout(cfg.UpstreamTimeout)
}

func newGemini(ctx context.Context, cfg config.Config, exec *resilience.Executor) (*gemini.Client, error) {
	return gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiChatModel, cfg.GeminiEmbedModel, cfg.EmbedDimensions, exec)
}

func openAIOptions(cfg config.Config) openai.Options {
	return openai.Options{
		BaseURL:        cfg.OpenAIBaseURL,
		APIKey:         cfg.OpenAIAPIKey,
		ChatModel:      cfg.OpenAIChatModel,
		EmbedModel:     cfg.OpenAIEmbedModel,
		Dimensions:     cfg.EmbedDimensions,
		HeliconeAPIKey: cfg.HeliconeAPIKey,
		Timeout:        cfg.UpstreamTimeout,
	}
}

func (a *App) newVectorStore(cfg config.Config, exec *resilience.Executor) (ports.VectorStore, error) {
	switch cfg.QdrantTransport {
	case config.TransportGRPC:
		client, err := qdrant.NewGRPC(cfg.QdrantGRPCAddr, cfg.QdrantCollection, cfg.QdrantAPIKey, exec)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		return client, nil
	case config.TransportREST:
		return qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, cfg.QdrantAPIKey, exec), nil
	default:
		return nil, fmt.Errorf("unknown qdrant transport %q", cfg.QdrantTransport)
	}
}

// newReranker decides the rerank capability once, at startup.
func newReranker(cfg config.Config, exec *resilience.Executor, logger *slog.Logger) usecase.Reranker {
	if !cfg.RerankEnabled() {
		return usecase.NewPassthroughReranker()
	}
	client := cohere.New(cfg.CohereBaseURL, cfg.CohereAPIKey, cfg.CohereRerankModel, exec).WithTimeout(cfg.UpstreamTimeout)
	return usecase.NewServiceReranker(client, logger)
}

func (a *App) newSinks(ctx context.Context, cfg config.Config, exec *resilience.Executor, logger *slog.Logger) ([]ports.QueryEventSink, error) {
	var sinks []ports.QueryEventSink

	if cfg.NATSURL != "" {
		publisher, err := nats.NewEventPublisher(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: exec,
			Logger:             logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init nats publisher: %w", err)
		}
		a.closers = append(a.closers, publisher.Close)
		sinks = append(sinks, publisher)
	}

	if cfg.PostgresDSN != "" {
		db, err := postgres.OpenDB(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, closeDB(db))
		repo := postgres.NewQueryEventRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		a.Events = repo
		sinks = append(sinks, repo)
	}

	return sinks, nil
}

func closeDB(db *sql.DB) func() {
	return func() { _ = db.Close() }
}
