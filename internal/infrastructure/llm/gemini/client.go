package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
	"github.com/kirillkom/rag-builder-assistant/internal/infrastructure/resilience"
)

const (
	DefaultChatModel  = "gemini-2.5-flash"
	DefaultEmbedModel = "gemini-embedding-001"
)

// models is the subset of *genai.Models used here.
type models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Client adapts Google Gemini to ports.Embedder and ports.Completer.
type Client struct {
	models     models
	chatModel  string
	embedModel string
	dimensions int32
	exec       *resilience.Executor
}

// NewClient connects to the Gemini API backend.
func NewClient(ctx context.Context, apiKey, chatModel, embedModel string, dimensions int, exec *resilience.Executor) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newClient(client.Models, chatModel, embedModel, dimensions, exec), nil
}

func newClient(m models, chatModel, embedModel string, dimensions int, exec *resilience.Executor) *Client {
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	if embedModel == "" {
		embedModel = DefaultEmbedModel
	}
	return &Client{
		models:     m,
		chatModel:  chatModel,
		embedModel: embedModel,
		dimensions: int32(dimensions),
		exec:       exec,
	}
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	config := &genai.EmbedContentConfig{TaskType: "RETRIEVAL_QUERY"}
	if c.dimensions > 0 {
		dims := c.dimensions
		config.OutputDimensionality = &dims
	}

	result, err := resilience.Call(ctx, c.exec, "gemini.embed", func(ctx context.Context) (*genai.EmbedContentResponse, error) {
		return c.models.EmbedContent(ctx, c.embedModel, []*genai.Content{genai.NewContentFromText(text, "user")}, config)
	}, classify)
	if err != nil {
		return nil, resilience.WrapTemporary("gemini embed", err, classify)
	}
	if result == nil || len(result.Embeddings) == 0 || result.Embeddings[0] == nil || len(result.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("gemini embed: empty embedding result")
	}
	return result.Embeddings[0].Values, nil
}

func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	temperature := req.Temperature
	config := &genai.GenerateContentConfig{Temperature: &temperature}
	if strings.TrimSpace(req.System) != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}

	result, err := resilience.Call(ctx, c.exec, "gemini.generate", func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		return c.models.GenerateContent(ctx, c.chatModel, []*genai.Content{{
			Role:  "user",
			Parts: []*genai.Part{{Text: req.Prompt}},
		}}, config)
	}, classify)
	if err != nil {
		return "", resilience.WrapTemporary("gemini generate", err, classify)
	}
	if result == nil {
		return "", nil
	}
	return result.Text(), nil
}

// classify treats Gemini API 429 and 5xx responses like their HTTP
// counterparts.
func classify(err error) resilience.ErrorClassification {
	var apiErr genai.APIError
	if asAPIError(err, &apiErr) {
		if resilience.IsRetryableHTTPStatus(apiErr.Code) {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return resilience.ErrorClassification{}
	}
	return resilience.ClassifyHTTPError(err)
}
