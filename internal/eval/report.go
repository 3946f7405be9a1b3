package eval

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const sheetName = "eval"

// WriteText prints one block per case followed by the pass count.
func WriteText(w io.Writer, report Report) error {
	for _, res := range report.Results {
		status := "PASS"
		if !res.Passed {
			status = "FAIL"
		}
		if _, err := fmt.Fprintf(w, "\n[%s] %s\nquery: %s\n", status, res.Case.ID, res.Case.Query); err != nil {
			return err
		}
		if res.State != "" {
			fmt.Fprintf(w, "state: %s\n", res.State)
		}
		for _, f := range res.Failures {
			fmt.Fprintf(w, "- %s\n", f)
		}
		for _, n := range res.Notes {
			fmt.Fprintf(w, "- note: %s\n", n)
		}
	}
	_, err := fmt.Fprintf(w, "\n[eval] passed=%d/%d duration=%s\n", report.Passed, report.Total, report.Duration.Round(time.Millisecond))
	return err
}

// WriteXLSX stores the report as a single-sheet workbook.
func WriteXLSX(path string, report Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := []any{"id", "query", "expected_state", "state", "passed", "failures", "notes", "duration_ms"}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, res := range report.Results {
		row := []any{
			res.Case.ID,
			res.Case.Query,
			res.Case.ExpectedState,
			res.State,
			res.Passed,
			strings.Join(res.Failures, "\n"),
			strings.Join(res.Notes, "\n"),
			res.Duration.Milliseconds(),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	summaryRow := len(report.Results) + 3
	summary := []any{"passed", fmt.Sprintf("%d/%d", report.Passed, report.Total)}
	cell, err := excelize.CoordinatesToCellName(1, summaryRow)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheetName, cell, &summary); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report %s: %w", path, err)
	}
	return nil
}
