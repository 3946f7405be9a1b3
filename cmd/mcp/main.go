package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/rag-builder-assistant/internal/adapters/mcp"
	"github.com/kirillkom/rag-builder-assistant/internal/bootstrap"
	"github.com/kirillkom/rag-builder-assistant/internal/config"
	"github.com/kirillkom/rag-builder-assistant/internal/observability/logging"
)

var version = "dev"

func main() {
	cfg := config.Load()
	// stdout carries the MCP stream.
	logger := logging.NewLogger(os.Stderr, "rag-mcp", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err.Error())
		os.Exit(1)
	}
	defer app.Close()

	s := mcpadapter.NewServer(mcpadapter.NewHandlers(app.Query, app.Classifier, logger), version)
	if err := server.ServeStdio(s); err != nil {
		logger.Error("mcp_server_error", "error", err.Error())
		app.Close()
		os.Exit(1)
	}
}
