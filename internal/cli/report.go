package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"myfinances/internal/core"
)

// PrintReport writes the summary the CLI shows after a build: the range,
// totals, the monthly average per label with its sum, and the monthly
// series.
func PrintReport(w io.Writer, r core.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Range\t%s .. %s\t\n", r.Start, r.End)
	fmt.Fprintf(tw, "Months\t%d\t\n", r.Months)
	fmt.Fprintf(tw, "Income\t%s\t\n", core.FormatAmount(r.Income))
	fmt.Fprintf(tw, "Expenses\t%s\t\n", core.FormatAmount(r.Expenses))
	fmt.Fprintln(tw, "\t\t")

	fmt.Fprintln(tw, "Average per month\t\t")
	for _, g := range r.ByLabel {
		fmt.Fprintf(tw, "%s\t%s\t\n", g.Name, core.FormatAmount(g.Amount))
	}
	fmt.Fprintf(tw, "Available\t%s\t\n", core.FormatAmount(r.Available))
	fmt.Fprintln(tw, "\t\t")

	fmt.Fprintln(tw, "Monthly\t\t")
	for _, p := range r.Monthly {
		fmt.Fprintf(tw, "%s\t%s\t\n", p.Date, core.FormatAmount(p.Amount))
	}
	return tw.Flush()
}
