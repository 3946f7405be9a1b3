// Package cli implements the ragctl command tree.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kirillkom/rag-builder-assistant/internal/config"
	"github.com/kirillkom/rag-builder-assistant/internal/observability/logging"
)

type env struct {
	cfg    config.Config
	logger *slog.Logger
	out    io.Writer
}

func NewRootCommand(out io.Writer) *cobra.Command {
	e := &env{out: out}

	root := &cobra.Command{
		Use:   "ragctl",
		Short: "Query, inspect and evaluate the RAG-building assistant",
		Long: `ragctl runs the retrieval-to-answer pipeline in-process, explains scope
decisions, and evaluates a running API against curated cases.

Example usage:
  ragctl classify "How do I choose chunk size?"
  ragctl ask "How much overlap should I use between chunks?" --debug
  ragctl eval --base-url http://localhost:8080 --xlsx eval.xlsx`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			e.cfg = config.Load()
			e.logger = logging.NewLogger(os.Stderr, "ragctl", e.cfg.LogLevel)
			return nil
		},
	}
	root.SetOut(out)

	root.AddCommand(
		newAskCommand(e),
		newClassifyCommand(e),
		newEvalCommand(e),
		newStatsCommand(e),
	)
	return root
}

func Execute() {
	if err := NewRootCommand(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
