package eval

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

type Runner struct {
	querier     Querier
	concurrency int
	progress    io.Writer
}

type Report struct {
	Results  []Result
	Passed   int
	Total    int
	Duration time.Duration
}

func (r Report) AllPassed() bool {
	return r.Passed == r.Total
}

// NewRunner builds a runner. A nil progress writer disables the bar.
func NewRunner(querier Querier, concurrency int, progress io.Writer) *Runner {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Runner{querier: querier, concurrency: concurrency, progress: progress}
}

// Run evaluates every case. Results keep case order. Request failures are
// recorded per case and never abort the run; only ctx cancellation does.
func (r *Runner) Run(ctx context.Context, cases []Case) (Report, error) {
	start := time.Now()
	results := make([]Result, len(cases))

	bar := r.newBar(len(cases))
	var barMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, c := range cases {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			caseStart := time.Now()
			resp, err := r.querier.Query(gctx, c.Query)
			res := Check(c, resp, err)
			res.Duration = time.Since(caseStart)
			results[i] = res

			if bar != nil {
				barMu.Lock()
				_ = bar.Add(1)
				barMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	if bar != nil {
		_ = bar.Finish()
	}

	report := Report{Results: results, Total: len(results), Duration: time.Since(start)}
	for _, res := range results {
		if res.Passed {
			report.Passed++
		}
	}
	return report, nil
}

func (r *Runner) newBar(total int) *progressbar.ProgressBar {
	if r.progress == nil {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.progress),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Evaluating[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
