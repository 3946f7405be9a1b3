package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kirillkom/rag-builder-assistant/internal/bootstrap"
	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
)

func newAskCommand(e *env) *cobra.Command {
	var (
		agent  string
		debug  bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Run the query pipeline in-process",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := e.cfg
			if debug {
				cfg.RAGDebugTrace = true
			}
			app, err := bootstrap.New(cmd.Context(), cfg, e.logger)
			if err != nil {
				return fmt.Errorf("bootstrap: %w", err)
			}
			defer app.Close()

			ctx := domain.WithRequestID(cmd.Context(), uuid.NewString())
			result, err := app.Query.Ask(ctx, domain.QueryRequest{
				Query: strings.Join(args, " "),
				Agent: domain.Agent(agent),
				Debug: debug,
			})
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(e.out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			printResult(e, result)
			return nil
		},
	}
	cmd.Flags().StringVar(&agent, "agent", string(domain.AgentRAG), "answer style (rag|rag_essay)")
	cmd.Flags().BoolVar(&debug, "debug", false, "include the ranking trace")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func printResult(e *env, result *domain.QueryResult) {
	fmt.Fprintf(e.out, "state: %s\n", result.State)
	if result.State != domain.QueryAnswer {
		fmt.Fprintln(e.out, result.Message)
		if result.Example != "" {
			fmt.Fprintf(e.out, "example: %s\n", result.Example)
		}
		return
	}

	fmt.Fprintf(e.out, "\n%s\n", result.Answer)
	if len(result.Citations) > 0 {
		fmt.Fprintln(e.out, "\nSources:")
		for _, c := range result.Citations {
			fmt.Fprintf(e.out, "  %s %s (%s) %s\n", c.Ref, orDash(c.Title), orDash(c.Publisher), orDash(c.URL))
		}
	}
	if len(result.Trace) > 0 {
		fmt.Fprintln(e.out, "\nTrace:")
		for _, t := range result.Trace {
			fmt.Fprintf(e.out, "  %2d %-12s rerank=%s retrieval=%s %s\n",
				t.RerankRank, t.ID, score(t.RerankScore), score(t.RetrievalScore), orDash(t.Title))
		}
	}
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func score(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *v)
}
