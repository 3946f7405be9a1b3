// Package mcpadapter exposes the query pipeline as MCP tools.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
	"github.com/kirillkom/rag-builder-assistant/internal/core/ports"
	"github.com/kirillkom/rag-builder-assistant/internal/core/usecase"
)

const (
	ServerName = "rag-builder-assistant"

	toolAsk      = "ask_rag"
	toolClassify = "classify_scope"
)

type Handlers struct {
	queries    ports.QueryService
	classifier ports.ScopeClassifier
	logger     *slog.Logger
}

func NewHandlers(queries ports.QueryService, classifier ports.ScopeClassifier, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{queries: queries, classifier: classifier, logger: logger}
}

func NewServer(h *Handlers, version string) *server.MCPServer {
	s := server.NewMCPServer(ServerName, version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool(toolAsk,
		mcp.WithDescription("Answer a question about building RAG systems from the curated dataset, with citations."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Question about building a RAG system.")),
		mcp.WithString("agent", mcp.Enum(string(domain.AgentRAG), string(domain.AgentRAGEssay)), mcp.Description("Answer style. Defaults to rag.")),
	), h.Ask)

	if h.classifier != nil {
		s.AddTool(mcp.NewTool(toolClassify,
			mcp.WithDescription("Report whether a question is in scope and which topics it matches."),
			mcp.WithString("query", mcp.Required(), mcp.Description("Question to classify.")),
		), h.Classify)
	}
	return s
}

type askResult struct {
	State     domain.QueryState `json:"state"`
	Message   string            `json:"message,omitempty"`
	Example   string            `json:"example,omitempty"`
	Answer    string            `json:"answer,omitempty"`
	Citations []domain.Citation `json:"citations,omitempty"`
}

func (h *Handlers) Ask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError(usecase.MissingQueryMessage), nil
	}
	agent := req.GetString("agent", "")

	requestID := uuid.NewString()
	ctx = domain.WithRequestID(ctx, requestID)

	result, err := h.queries.Ask(ctx, domain.QueryRequest{Query: query, Agent: domain.Agent(agent)})
	if err != nil {
		if !domain.IsKind(err, domain.ErrInvalidInput) {
			h.logger.Error("mcp_ask_failed", "request_id", requestID, "stage", domain.StageOf(err), "error", err.Error())
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(askResult{
		State:     result.State,
		Message:   result.Message,
		Example:   result.Example,
		Answer:    result.Answer,
		Citations: result.Citations,
	})
}

func (h *Handlers) Classify(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError(usecase.MissingQueryMessage), nil
	}
	return jsonResult(h.classifier.Classify(query))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
