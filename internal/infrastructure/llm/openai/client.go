package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
	"github.com/kirillkom/rag-builder-assistant/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultChatModel  = "gpt-4.1-mini"
	DefaultEmbedModel = "text-embedding-3-small"
	DefaultDimensions = 512

	provider = "openai"
)

type Options struct {
	BaseURL    string
	APIKey     string
	ChatModel  string
	EmbedModel string
	Dimensions int
	// HeliconeAPIKey routes requests through the Helicone proxy headers.
	HeliconeAPIKey string
	Timeout        time.Duration
}

// Client talks to an OpenAI-compatible REST API. It implements both
// ports.Embedder and ports.Completer.
type Client struct {
	opts       Options
	httpClient *http.Client
	exec       *resilience.Executor
}

func New(opts Options, exec *resilience.Executor) *Client {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.ChatModel == "" {
		opts.ChatModel = DefaultChatModel
	}
	if opts.EmbedModel == "" {
		opts.EmbedModel = DefaultEmbedModel
	}
	if opts.Dimensions <= 0 {
		opts.Dimensions = DefaultDimensions
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	return &Client{
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
		exec:       exec,
	}
}

// WithHTTPClient swaps the transport, mainly for instrumentation.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	if httpClient != nil {
		c.httpClient = httpClient
	}
	return c
}

type embeddingRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	request := embeddingRequest{
		Model:      c.opts.EmbedModel,
		Input:      text,
		Dimensions: c.opts.Dimensions,
	}
	var response embeddingResponse
	if err := c.post(ctx, "/embeddings", request, &response, "embed"); err != nil {
		return nil, err
	}
	if len(response.Data) == 0 || len(response.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai embed: empty embedding result")
	}
	return response.Data[0].Embedding, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete returns the first choice text, or "" when the provider returns
// no choices.
func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	request := chatRequest{
		Model:       c.opts.ChatModel,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	var response chatResponse
	if err := c.post(ctx, "/chat/completions", request, &response, "chat"); err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", nil
	}
	return response.Choices[0].Message.Content, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any, operation string) error {
	return resilience.PostJSON(ctx, c.exec, c.httpClient, resilience.JSONRequest{
		Provider:  provider,
		Operation: operation,
		URL:       c.opts.BaseURL + path,
		Header:    c.headers(),
	}, payload, out)
}

func (c *Client) headers() http.Header {
	h := http.Header{}
	if c.opts.APIKey != "" {
		h.Set("Authorization", "Bearer "+c.opts.APIKey)
	}
	if c.opts.HeliconeAPIKey != "" {
		h.Set("Helicone-Auth", "Bearer "+c.opts.HeliconeAPIKey)
		h.Set("Helicone-Cache-Enabled", "true")
	}
	return h
}
