package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
	"github.com/kirillkom/rag-builder-assistant/internal/infrastructure/resilience"
)

const (
	provider = "qdrant"

	topicKey     = "topic"
	docMarkerKey = "is_doc_marker"
)

// Client searches a Qdrant collection over the REST API.
type Client struct {
	baseURL    string
	collection string
	apiKey     string
	httpClient *http.Client
	exec       *resilience.Executor
}

func New(baseURL, collection, apiKey string, exec *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		exec:       exec,
	}
}

// StatusError is a non-2xx Qdrant response. Detail holds status.error from
// the response body when present.
type StatusError struct {
	HTTP   *resilience.HTTPStatusError
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("qdrant %s status: %s: %s", e.HTTP.Operation, e.HTTP.Status, e.Detail)
	}
	return e.HTTP.Error()
}

func (e *StatusError) Unwrap() error { return e.HTTP }

func (e *StatusError) StatusDetail() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.HTTP.Body
}

func newStatusError(operation string, resp *http.Response) *StatusError {
	statusErr := &StatusError{HTTP: resilience.NewHTTPStatusError(provider, operation, resp)}
	var body struct {
		Status struct {
			Error string `json:"error"`
		} `json:"status"`
	}
	if err := json.Unmarshal([]byte(statusErr.HTTP.Body), &body); err == nil {
		statusErr.Detail = strings.TrimSpace(body.Status.Error)
	}
	return statusErr
}

// buildFilter always excludes doc markers and restricts to topics when given.
func buildFilter(filter domain.SearchFilter) map[string]any {
	out := map[string]any{
		"must_not": []map[string]any{
			{"key": docMarkerKey, "match": map[string]any{"value": true}},
		},
	}
	if len(filter.Topics) > 0 {
		out["must"] = []map[string]any{
			{"key": topicKey, "match": map[string]any{"any": filter.Topics}},
		}
	}
	return out
}

type searchResponse struct {
	Result []struct {
		ID      json.RawMessage `json:"id"`
		Score   float64         `json:"score"`
		Payload map[string]any  `json:"payload"`
	} `json:"result"`
}

func (c *Client) Search(
	ctx context.Context,
	queryVector []float32,
	limit int,
	filter domain.SearchFilter,
) ([]domain.Candidate, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
		"filter":       buildFilter(filter),
	}

	var searchResp searchResponse
	path := fmt.Sprintf("/collections/%s/points/search", c.collection)
	if err := c.do(ctx, http.MethodPost, path, reqBody, &searchResp, "search"); err != nil {
		return nil, err
	}

	out := make([]domain.Candidate, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.Candidate{
			ID:      pointID(r.ID),
			Score:   r.Score,
			Payload: r.Payload,
		})
	}
	return out, nil
}

// Ping checks that the collection exists.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/collections/"+c.collection, nil, nil, "collection_info")
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any, operation string) error {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", operation, err)
		}
		body = encoded
	}

	err := c.exec.Execute(ctx, provider+"."+operation, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create %s request: %w", operation, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("api-key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("qdrant %s request: %w", operation, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return newStatusError(operation, resp)
		}
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", operation, err)
		}
		return nil
	}, resilience.ClassifyHTTPError)
	return resilience.WrapTemporary("qdrant "+operation, err, resilience.ClassifyHTTPError)
}

// pointID renders uuid and integer ids the same way.
func pointID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		return n.String()
	}
	return strings.Trim(string(raw), `"`)
}

// IsStatus reports whether err is a Qdrant response with the given code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.HTTP.StatusCode == code
}
