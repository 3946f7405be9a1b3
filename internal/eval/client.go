package eval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

type Citation struct {
	Ref           string  `json:"ref"`
	Publisher     *string `json:"publisher"`
	Title         *string `json:"title"`
	URL           *string `json:"url"`
	SectionPath   *string `json:"section_path"`
	PublishedDate *string `json:"published_date"`
	RetrievedAt   *string `json:"retrieved_at"`
}

type Response struct {
	State     string     `json:"state"`
	Answer    string     `json:"answer"`
	Message   string     `json:"message"`
	Example   string     `json:"example"`
	Citations []Citation `json:"citations"`
}

// Querier sends one query to the system under test.
type Querier interface {
	Query(ctx context.Context, query string) (*Response, error)
}

// APIClient posts to the query endpoint of a running server.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *APIClient) Query(ctx context.Context, query string) (*Response, error) {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post query: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		head := string(raw)
		if len(head) > 120 {
			head = head[:120]
		}
		return nil, fmt.Errorf("non-JSON response status=%d content-type=%q head=%q", resp.StatusCode, mediaType, head)
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response status=%d: %w", resp.StatusCode, err)
	}
	return &out, nil
}
