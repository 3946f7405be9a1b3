package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/rag-builder-assistant/internal/core/usecase"
	"github.com/kirillkom/rag-builder-assistant/internal/infrastructure/taxonomy"
)

func newClassifyCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <query>",
		Short: "Print the scope decision for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			tax, err := taxonomy.LoadFile(e.cfg.TaxonomyPath)
			if err != nil {
				return fmt.Errorf("load taxonomy: %w", err)
			}
			decision := usecase.NewScopeClassifier(tax).Classify(strings.Join(args, " "))

			fmt.Fprintf(e.out, "state: %s\n", decision.State)
			if len(decision.MatchedTopics) > 0 {
				fmt.Fprintf(e.out, "topics: %s\n", strings.Join(decision.MatchedTopics, ", "))
			}
			if decision.Example != "" {
				fmt.Fprintf(e.out, "example: %s\n", decision.Example)
			}
			return nil
		},
	}
}
