package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/banshee-data/trackinit/internal/tracker"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Default PNG size.
const (
	PlotWidth  = 10 * vg.Inch
	PlotHeight = 8 * vg.Inch
)

// NewTrackPlot builds a top-down plot of every active track's history in the
// radar's Cartesian frame.
func NewTrackPlot(res tracker.Result) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Track initiation (%s, %d active)", res.Params.Mode, len(res.Tracks))
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"
	p.Add(plotter.NewGrid())

	var series []interface{}
	for _, t := range res.Tracks {
		pts := make(plotter.XYs, len(t.History))
		for i, e := range t.History {
			pos := e.Measurement.Position()
			pts[i] = plotter.XY{X: pos.X, Y: pos.Y}
		}
		series = append(series, fmt.Sprintf("track %d (%s)", t.ID, t.State), pts)
	}
	if len(series) > 0 {
		if err := plotutil.AddLinePoints(p, series...); err != nil {
			return nil, fmt.Errorf("failed to add track lines: %w", err)
		}
	}
	return p, nil
}

// WritePNG renders the track plot as PNG to w.
func WritePNG(w io.Writer, res tracker.Result) error {
	p, err := NewTrackPlot(res)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(PlotWidth, PlotHeight, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePNG writes the track plot to path, which must end in .png.
func SavePNG(path string, res tracker.Result) error {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".png" {
		return fmt.Errorf("plot file must have .png extension, got %q", ext)
	}
	p, err := NewTrackPlot(res)
	if err != nil {
		return err
	}
	return p.Save(PlotWidth, PlotHeight, path)
}
