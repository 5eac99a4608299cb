package runner

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/metarhia/metatests-browser-runner/types"
)

// overallStatus folds per-browser session results into one run status.
func overallStatus(results []types.BrowserResult) types.TestStatus {
	status := types.TestStatusPass
	for _, r := range results {
		switch r.Status {
		case types.TestStatusError:
			return types.TestStatusError
		case types.TestStatusFail:
			status = types.TestStatusFail
		}
	}
	return status
}

// printResultsTable prints the per-browser session results to the console.
func printResultsTable(results []types.BrowserResult, duration time.Duration) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("Browser Test Results (%s)", formatDuration(duration)))

	t.AppendHeader(table.Row{
		"Browser", "Tests", "Duration", "Status", "Error",
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Browser", WidthMax: 40, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	totalTests := 0
	for _, r := range results {
		errMsg := ""
		if r.Error != nil {
			errMsg = r.Error.Error()
		}
		t.AppendRow(table.Row{
			r.Browser,
			r.Total,
			formatDuration(r.Duration),
			getResultString(r.Status),
			errMsg,
		})
		totalTests += r.Total
	}

	switch overallStatus(results) {
	case types.TestStatusPass:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		totalTests,
		formatDuration(duration),
		getResultString(overallStatus(results)),
		"",
	})

	t.Render()
}

// getResultString returns a short string representing the session result
func getResultString(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return "✓ pass"
	case types.TestStatusError:
		return "! error"
	default:
		return "✗ fail"
	}
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// summaryString is the one-line run summary printed after the table.
func summaryString(results []types.BrowserResult, duration time.Duration) string {
	passed, failed := 0, 0
	for _, r := range results {
		if r.Status == types.TestStatusPass {
			passed++
		} else {
			failed++
		}
	}
	return fmt.Sprintf("Completed %d browser session(s) in %s: %d passed, %d failed",
		len(results), formatDuration(duration), passed, failed)
}
