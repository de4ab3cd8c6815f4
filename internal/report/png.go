package report

import (
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no samples to plot")

// WritePNG draws one stacked panel per metric, one line per vehicle, and
// writes the image to w.
func WritePNG(w io.Writer, title string, traces []Trace) error {
	if !hasSamples(traces) {
		return ErrNoData
	}

	plots := make([][]*plot.Plot, len(metrics))
	for row, m := range metrics {
		p := plot.New()
		if row == 0 {
			p.Title.Text = title
		}
		p.X.Label.Text = "Time (s)"
		p.Y.Label.Text = m.name
		if m.unit != "" {
			p.Y.Label.Text = fmt.Sprintf("%s (%s)", m.name, m.unit)
		}
		for i, tr := range traces {
			if tr.Len() == 0 {
				continue
			}
			values := m.value(tr)
			pts := make(plotter.XYs, tr.Len())
			for j := range pts {
				pts[j] = plotter.XY{X: tr.Time[j], Y: values[j]}
			}
			line, err := plotter.NewLine(pts)
			if err != nil {
				return fmt.Errorf("failed to create %s line for %q: %w", m.name, tr.VehicleID, err)
			}
			line.Color = plotutil.Color(i)
			line.Width = vg.Points(1)
			p.Add(line)
			p.Legend.Add(tr.VehicleID, line)
		}
		p.Legend.Top = true
		p.Legend.Left = false
		p.Legend.XOffs = -10
		p.Legend.YOffs = -10
		plots[row] = []*plot.Plot{p}
	}

	img := vgimg.New(14*vg.Inch, 4*vg.Inch*vg.Length(len(metrics)))
	dc := draw.New(img)
	tiles := draw.Tiles{Rows: len(metrics), Cols: 1, PadY: vg.Points(8)}
	canvases := plot.Align(plots, tiles, dc)
	for row := range plots {
		plots[row][0].Draw(canvases[row][0])
	}

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}

func hasSamples(traces []Trace) bool {
	for _, tr := range traces {
		if tr.Len() > 0 {
			return true
		}
	}
	return false
}
