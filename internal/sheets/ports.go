// Package sheets defines where finished reports are exported to and how a
// report is laid out as a grid of cells.
package sheets

import (
	"context"
	"time"

	"myfinances/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportWriter exports a report and returns a reference to where it landed.
	ReportWriter interface {
		WriteReport(ctx context.Context, r core.Report) (ref string, err error)
	}
)

// Section headers of the report grid.
const (
	HeaderSummary = "Summary"
	HeaderByLabel = "Average per month by label"
	HeaderMonthly = "Monthly expenses"
)

// ReportRows lays a report out as rows of cell values: a summary block,
// the averaged expenses by label and the monthly series, separated by an
// empty row.
func ReportRows(r core.Report) [][]any {
	rows := [][]any{
		{HeaderSummary, r.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Start", r.Start.String()},
		{"End", r.End.String()},
		{"Months", r.Months},
		{"Income", core.RoundCents(r.Income)},
		{"Expenses", core.RoundCents(r.Expenses)},
		{"Available", core.RoundCents(r.Available)},
		{},
		{HeaderByLabel, "Amount"},
	}
	for _, g := range r.ByLabel {
		rows = append(rows, []any{g.Name, core.RoundCents(g.Amount)})
	}
	rows = append(rows, []any{}, []any{HeaderMonthly, "Amount"})
	for _, p := range r.Monthly {
		rows = append(rows, []any{p.Date.String(), core.RoundCents(p.Amount)})
	}
	return rows
}
