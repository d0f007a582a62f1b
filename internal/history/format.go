package history

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
)

// WriteTable prints runs as an aligned table.
func WriteTable(w io.Writer, runs []*Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tCOMMAND\tMODE\tSTATUS\tFRAMES\tSENT\tTARGET")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID.String()[:8],
			humanize.Time(r.StartedAt),
			r.Command,
			r.Mode,
			statusLabel(r),
			r.Frames,
			humanize.Bytes(uint64(r.VideoBytes+r.AudioBytes)),
			r.Target,
		)
	}
	return tw.Flush()
}

func statusLabel(r *Run) string {
	if r.FinishedAt == nil {
		return r.Status
	}
	took := r.FinishedAt.Sub(r.StartedAt).Round(time.Second)
	return fmt.Sprintf("%s (%s)", r.Status, took)
}
