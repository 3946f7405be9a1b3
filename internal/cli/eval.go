package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/rag-builder-assistant/internal/eval"
)

var errEvalFailed = errors.New("eval: some cases failed")

func newEvalCommand(e *env) *cobra.Command {
	var (
		baseURL     string
		casesPath   string
		concurrency int
		xlsxPath    string
		timeout     time.Duration
		noProgress  bool
	)
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Run regression cases against a running API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cases, err := eval.LoadCases(casesPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "[eval] cases=%d base=%s\n", len(cases), baseURL)

			var progress *os.File
			if !noProgress {
				progress = os.Stderr
			}
			runner := eval.NewRunner(eval.NewAPIClient(baseURL, timeout), concurrency, writerOrNil(progress))
			report, err := runner.Run(cmd.Context(), cases)
			if err != nil {
				return err
			}

			if err := eval.WriteText(e.out, report); err != nil {
				return err
			}
			if xlsxPath != "" {
				if err := eval.WriteXLSX(xlsxPath, report); err != nil {
					return err
				}
				fmt.Fprintf(e.out, "[eval] report written to %s\n", xlsxPath)
			}
			if !report.AllPassed() {
				return errEvalFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", envOr("EVAL_BASE_URL", "http://localhost:8080"), "API base URL")
	cmd.Flags().StringVar(&casesPath, "cases", "", "YAML case file (default: builtin cases)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 4, "parallel requests")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write an XLSX report to this path")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "per-request timeout")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// writerOrNil avoids handing a typed nil *os.File to an io.Writer.
func writerOrNil(f *os.File) io.Writer {
	if f == nil {
		return nil
	}
	return f
}
