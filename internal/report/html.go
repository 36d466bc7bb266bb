package report

import (
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/trackinit/internal/tracker"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderHTML writes a page with two charts: the Cartesian track paths and
// range against time, one series per active track.
func RenderHTML(w io.Writer, res tracker.Result) error {
	subtitle := fmt.Sprintf("mode=%s tracks=%d firm=%d processed=%d",
		res.Params.Mode, len(res.Tracks), len(res.FirmIDs), res.Stats.Processed)

	paths := charts.NewScatter()
	paths.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Track Initiation", Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: "Track paths", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Y (m)", NameLocation: "middle", NameGap: 40}),
	)

	ranges := charts.NewLine()
	ranges.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Range over time"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "t (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Range (m)", NameLocation: "middle", NameGap: 40}),
	)

	for _, t := range res.Tracks {
		name := fmt.Sprintf("track %d (%s)", t.ID, t.State)
		pts := make([]opts.ScatterData, len(t.History))
		rs := make([]opts.LineData, len(t.History))
		for i, e := range t.History {
			pos := e.Measurement.Position()
			pts[i] = opts.ScatterData{Value: []interface{}{pos.X, pos.Y, e.State.String()}}
			rs[i] = opts.LineData{Value: []interface{}{e.Measurement.Timestamp, e.Measurement.Range}}
		}
		paths.AddSeries(name, pts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
		ranges.AddSeries(name, rs)
	}

	page := components.NewPage()
	page.PageTitle = "Track Initiation"
	page.AddCharts(paths, ranges)
	return page.Render(w)
}

// SaveHTML writes the chart page to path.
func SaveHTML(path string, res tracker.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := RenderHTML(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
