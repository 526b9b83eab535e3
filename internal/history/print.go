// File: internal/history/print.go
// Brief: Human-friendly printing for `devstack runs`.

package history

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

func PrintRunsTable(w io.Writer, runs []Run) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "RUN\tSTACK\tCOMMAND\tSTATUS\tENABLED\tSUCCESS\tFAILED\tCOMPLETE\tSTARTED\tDURATION")
	for _, r := range runs {
		duration := "-"
		if !r.StartedAt.IsZero() && !r.FinishedAt.IsZero() {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		started := "-"
		if !r.StartedAt.IsZero() {
			started = r.StartedAt.Local().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
			r.ID,
			r.Stack,
			r.Command,
			strings.ToUpper(r.Status),
			r.Totals.Enabled,
			r.Totals.Success,
			r.Totals.Failure,
			r.Totals.Complete,
			started,
			duration,
		)
	}
	return nil
}
