// Package report renders initiation results as a text summary, a PNG plot
// and an interactive HTML chart.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/banshee-data/trackinit/internal/tracker"
)

// Banner opens every text summary.
const Banner = "Track Initialization Completed!"

// WriteTable writes the summary: one line per active track, then the slot
// table and the firm ids.
func WriteTable(w io.Writer, res tracker.Result) error {
	fmt.Fprintf(w, "%s\n\n", Banner)
	fmt.Fprintf(w, "Mode: %s  doppler<%g  range<%g  time<=%g\n\n",
		res.Params.Mode, res.Params.DopplerThreshold, res.Params.RangeThreshold, res.Params.TimeThreshold)

	fmt.Fprintln(w, "Tracks:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSLOT\tSTATE\tHITS\tMISSES\tMEASUREMENTS\tLAST T\tLAST RANGE")
	for _, t := range res.Tracks {
		last := t.Last()
		fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%d\t%d\t%.3f\t%.2f\n",
			t.ID, t.Slot, t.State, t.Hits, t.Misses, len(t.History), last.Timestamp, last.Range)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nSlots:")
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tID\tSTATUS")
	for i, s := range res.Slots {
		fmt.Fprintf(tw, "%d\t%d\t%s\n", i, s.ID, s.Status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	firm := make([]string, len(res.FirmIDs))
	for i, id := range res.FirmIDs {
		firm[i] = fmt.Sprint(id)
	}
	_, err := fmt.Fprintf(w, "\nFirm IDs: [%s]\nProcessed: %d  Created: %d  Confirmed: %d  Evicted: %d\n",
		strings.Join(firm, ", "), res.Stats.Processed, res.Stats.Created, res.Stats.Confirmed, res.Stats.Evicted)
	return err
}

// WriteHistory lists every associated detection of each active track with
// the state the track held after it, in association order.
func WriteHistory(w io.Writer, res tracker.Result) error {
	fmt.Fprintln(w, "History:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTEP\tSTATE\tAZIMUTH\tELEVATION\tRANGE\tDOPPLER\tT")
	for _, t := range res.Tracks {
		for i, e := range t.History {
			m := e.Measurement
			fmt.Fprintf(tw, "%d\t%d\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.3f\n",
				t.ID, i+1, e.State, m.Azimuth, m.Elevation, m.Range, m.Doppler, m.Timestamp)
		}
	}
	return tw.Flush()
}
