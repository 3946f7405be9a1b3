package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"

	TransportREST = "rest"
	TransportGRPC = "grpc"
)

type Config struct {
	APIPort  string
	LogLevel string

	APIRateLimitRPS       float64
	APIRateLimitBurst     int
	APIMaxInFlight        int
	APIBackpressureWaitMS int
	APIH2C                bool

	LLMProvider   string
	EmbedProvider string

	OpenAIBaseURL    string
	OpenAIAPIKey     string
	OpenAIChatModel  string
	OpenAIEmbedModel string
	HeliconeAPIKey   string
	EmbedDimensions  int

	OllamaURL        string
	OllamaGenModel   string
	OllamaEmbedModel string

	GeminiAPIKey     string
	GeminiChatModel  string
	GeminiEmbedModel string

	QdrantTransport  string
	QdrantURL        string
	QdrantGRPCAddr   string
	QdrantAPIKey     string
	QdrantCollection string

	CohereAPIKey      string
	CohereBaseURL     string
	CohereRerankModel string

	RAGTopK               int
	RAGVagueBoost         bool
	RAGSummaryBoostFactor float64
	RAGDebugTrace         bool
	TaxonomyPath          string

	UpstreamBreakerEnabled   bool
	UpstreamRetryMaxAttempts int
	UpstreamTimeout          time.Duration
	ShutdownTimeout          time.Duration

	NATSURL     string
	NATSSubject string
	PostgresDSN string

	OTelEnabled bool
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		APIRateLimitRPS:       mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst:     mustEnvInt("API_RATE_LIMIT_BURST", 10),
		APIMaxInFlight:        mustEnvInt("API_MAX_IN_FLIGHT", 64),
		APIBackpressureWaitMS: mustEnvInt("API_BACKPRESSURE_WAIT_MS", 250),
		APIH2C:                mustEnvBool("API_H2C", false),

		LLMProvider:   strings.ToLower(mustEnv("LLM_PROVIDER", ProviderOpenAI)),
		EmbedProvider: strings.ToLower(mustEnv("EMBED_PROVIDER", "")),

		OpenAIBaseURL:    mustEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIAPIKey:     mustEnv("OPENAI_API_KEY", ""),
		OpenAIChatModel:  mustEnv("OPENAI_CHAT_MODEL", "gpt-4.1-mini"),
		OpenAIEmbedModel: mustEnv("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		HeliconeAPIKey:   mustEnv("HELICONE_API_KEY", ""),
		EmbedDimensions:  mustEnvInt("EMBED_DIMENSIONS", 512),

		OllamaURL:        mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel:   mustEnv("OLLAMA_GEN_MODEL", "llama3.1:8b"),
		OllamaEmbedModel: mustEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),

		GeminiAPIKey:     mustEnv("GEMINI_API_KEY", ""),
		GeminiChatModel:  mustEnv("GEMINI_CHAT_MODEL", "gemini-2.5-flash"),
		GeminiEmbedModel: mustEnv("GEMINI_EMBED_MODEL", "gemini-embedding-001"),

		QdrantTransport:  strings.ToLower(mustEnv("QDRANT_TRANSPORT", TransportREST)),
		QdrantURL:        mustEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantGRPCAddr:   mustEnv("QDRANT_GRPC_ADDR", "localhost:6334"),
		QdrantAPIKey:     mustEnv("QDRANT_API_KEY", ""),
		QdrantCollection: mustEnv("QDRANT_COLLECTION", "rag_chunks"),

		CohereAPIKey:      strings.TrimSpace(mustEnv("COHERE_API_KEY", "")),
		CohereBaseURL:     mustEnv("COHERE_BASE_URL", "https://api.cohere.com"),
		CohereRerankModel: mustEnv("COHERE_RERANK_MODEL", "rerank-english-v3.0"),

		RAGTopK:               mustEnvInt("RAG_TOP_K", 8),
		RAGVagueBoost:         mustEnvBool("RAG_VAGUE_BOOST", true),
		RAGSummaryBoostFactor: mustEnvFloat("RAG_SUMMARY_BOOST_FACTOR", 1.2),
		RAGDebugTrace:         mustEnvBool("RAG_DEBUG_TRACE", false),
		TaxonomyPath:          mustEnv("TAXONOMY_PATH", ""),

		UpstreamBreakerEnabled:   mustEnvBool("UPSTREAM_BREAKER_ENABLED", true),
		UpstreamRetryMaxAttempts: mustEnvInt("UPSTREAM_RETRY_MAX_ATTEMPTS", 1),
		UpstreamTimeout:          mustEnvDuration("UPSTREAM_TIMEOUT", 60*time.Second),
		ShutdownTimeout:          mustEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "rag.queries"),
		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		OTelEnabled: mustEnvBool("OTEL_ENABLED", false),
	}
}

// EmbeddingProvider defaults to the language-model provider.
func (c Config) EmbeddingProvider() string {
	if c.EmbedProvider != "" {
		return c.EmbedProvider
	}
	return c.LLMProvider
}

// RerankEnabled reports whether the reranking service is configured.
func (c Config) RerankEnabled() bool {
	return c.CohereAPIKey != ""
}

// Validate rejects unknown providers and transports and values that would
// make the pipeline misbehave.
func (c Config) Validate() error {
	var errs []error
	if !knownProvider(c.LLMProvider) {
		errs = append(errs, fmt.Errorf("LLM_PROVIDER: unknown provider %q", c.LLMProvider))
	}
	if !knownProvider(c.EmbeddingProvider()) {
		errs = append(errs, fmt.Errorf("EMBED_PROVIDER: unknown provider %q", c.EmbeddingProvider()))
	}
	switch c.QdrantTransport {
	case TransportREST, TransportGRPC:
	default:
		errs = append(errs, fmt.Errorf("QDRANT_TRANSPORT: unknown transport %q", c.QdrantTransport))
	}
	if c.RAGTopK <= 0 {
		errs = append(errs, fmt.Errorf("RAG_TOP_K: must be positive, got %d", c.RAGTopK))
	}
	if c.RAGSummaryBoostFactor < 1 {
		errs = append(errs, fmt.Errorf("RAG_SUMMARY_BOOST_FACTOR: must be >= 1, got %v", c.RAGSummaryBoostFactor))
	}
	if c.EmbedDimensions <= 0 {
		errs = append(errs, fmt.Errorf("EMBED_DIMENSIONS: must be positive, got %d", c.EmbedDimensions))
	}
	if c.LLMProvider == ProviderGemini || c.EmbeddingProvider() == ProviderGemini {
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY: required for gemini provider"))
		}
	}
	return errors.Join(errs...)
}

func knownProvider(p string) bool {
	switch p {
	case ProviderOpenAI, ProviderOllama, ProviderGemini:
		return true
	default:
		return false
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
