package charts

import (
	"fmt"
	"io"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"casepulse/pkg/contracts/domain"
)

// TrendPlot builds the monthly trend line chart: one line with circle markers
// per series, months on the x axis. Points without a month are not drawn.
func TrendPlot(chart domain.TrendChart) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = chart.Title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = chart.XLabel
	p.Y.Label.Text = chart.YLabel
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	plotted := 0
	for i, series := range chart.Series {
		col := plotutil.Color(i)

		xys := make(plotter.XYs, 0, len(series.Points))
		for _, pt := range series.Points {
			if pt.Month == nil {
				continue
			}
			xys = append(xys, plotter.XY{X: float64(*pt.Month), Y: pt.Sum})
		}

		if len(xys) == 0 {
			// Keep the legend entry so every selected hospital is listed
			p.Legend.Add(series.Hospital, &plotter.Line{
				LineStyle: draw.LineStyle{Color: col, Width: vg.Points(1.5)},
			})
			continue
		}

		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return nil, fmt.Errorf("trend series %q: %w", series.Hospital, err)
		}
		line.Color = col
		line.Width = vg.Points(1.5)
		points.Shape = draw.CircleGlyph{}
		points.Color = col
		points.Radius = vg.Points(3)

		p.Add(line, points)
		p.Legend.Add(series.Hospital, line, points)
		plotted++
	}

	p.X.Min = 0.5
	p.X.Max = 12.5
	p.X.Tick.Marker = plot.ConstantTicks(monthTicks())
	if plotted == 0 {
		p.Y.Min = 0
		p.Y.Max = 1
	}

	return p, nil
}

// RenderTrend writes the trend chart in format to w.
func RenderTrend(w io.Writer, chart domain.TrendChart, format string, opts Options) error {
	p, err := TrendPlot(chart)
	if err != nil {
		return err
	}
	return render(w, format, opts, func(dc draw.Canvas) error {
		p.Draw(dc)
		return nil
	})
}

func monthTicks() []plot.Tick {
	ticks := make([]plot.Tick, 0, 12)
	for m := time.January; m <= time.December; m++ {
		ticks = append(ticks, plot.Tick{Value: float64(m), Label: m.String()[:3]})
	}
	return ticks
}
