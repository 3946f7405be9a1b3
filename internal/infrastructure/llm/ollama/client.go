package ollama

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
	"github.com/kirillkom/rag-builder-assistant/internal/infrastructure/resilience"
)

const provider = "ollama"

var errEmptyEmbedding = errors.New("ollama embed: empty embedding result")

// Client holds the connection settings shared by Embedder and Completer.
type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	dimensions int
	httpClient *http.Client
	exec       *resilience.Executor
}

func New(baseURL, genModel, embedModel string, exec *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		exec:       exec,
	}
}

// WithDimensions asks /api/embed to truncate vectors to n. Zero keeps the
// model's native size.
func (c *Client) WithDimensions(n int) *Client {
	if n > 0 {
		c.dimensions = n
	}
	return c
}

// WithTimeout bounds each request. Non-positive values are ignored.
func (c *Client) WithTimeout(d time.Duration) *Client {
	if d > 0 {
		c.httpClient.Timeout = d
	}
	return c
}

func (c *Client) post(ctx context.Context, path, operation string, payload, out any) error {
	return resilience.PostJSON(ctx, c.exec, c.httpClient, resilience.JSONRequest{
		Provider:  provider,
		Operation: operation,
		URL:       c.baseURL + path,
	}, payload, out)
}

type embedRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var resp embedResponse
	req := embedRequest{Model: e.client.embedModel, Input: []string{text}, Dimensions: e.client.dimensions}
	if err := e.client.post(ctx, "/api/embed", "embed", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, errEmptyEmbedding
	}
	return resp.Embeddings[0], nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float32 `json:"temperature"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// Completer runs single-turn, non-streaming chats against /api/chat.
type Completer struct {
	client *Client
}

func NewCompleter(client *Client) *Completer {
	return &Completer{client: client}
}

func (c *Completer) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	var resp chatResponse
	body := chatRequest{
		Model:    c.client.genModel,
		Messages: messages,
		Options:  chatOptions{Temperature: req.Temperature},
	}
	if err := c.client.post(ctx, "/api/chat", "chat", body, &resp); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Message.Content), nil
}
