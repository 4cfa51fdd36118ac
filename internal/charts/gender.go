package charts

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"casepulse/pkg/contracts/domain"
)

// GenderPlots builds one bar chart per panel. All plots share the same y
// range so the panels can be compared side by side.
func GenderPlots(chart domain.GenderChart) ([]*plot.Plot, error) {
	if len(chart.Panels) == 0 {
		return nil, ErrNoPanels
	}

	yMax := math.Max(1, float64(chart.MaxCount())) * 1.1

	plots := make([]*plot.Plot, 0, len(chart.Panels))
	for i, panel := range chart.Panels {
		p := plot.New()
		p.Title.Text = panel.Hospital
		p.X.Label.Text = chart.XLabel
		p.Y.Label.Text = chart.YLabel

		if len(panel.Counts) > 0 {
			values := make(plotter.Values, len(panel.Counts))
			labels := make([]string, len(panel.Counts))
			for j, c := range panel.Counts {
				values[j] = float64(c.Count)
				labels[j] = c.Gender
			}

			bars, err := plotter.NewBarChart(values, vg.Points(24))
			if err != nil {
				return nil, fmt.Errorf("gender panel %q: %w", panel.Hospital, err)
			}
			bars.Color = plotutil.Color(i)
			bars.LineStyle.Width = vg.Length(0)
			p.Add(bars)
			p.NominalX(labels...)
		} else {
			p.X.Min = 0
			p.X.Max = 1
		}

		p.Y.Min = 0
		p.Y.Max = yMax
		plots = append(plots, p)
	}
	return plots, nil
}

// RenderGender lays the panels out in one row and writes them in format to w.
func RenderGender(w io.Writer, chart domain.GenderChart, format string, opts Options) error {
	plots, err := GenderPlots(chart)
	if err != nil {
		return err
	}

	tiles := draw.Tiles{
		Rows:      1,
		Cols:      len(plots),
		PadX:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}

	return render(w, format, opts, func(dc draw.Canvas) error {
		canvases := plot.Align([][]*plot.Plot{plots}, tiles, dc)
		for j, p := range plots {
			p.Draw(canvases[0][j])
		}
		return nil
	})
}
