package render

import (
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var ErrEmptyChart = errors.New("chart has no bars")

// ImageFormats lists the formats WriteImage accepts.
var ImageFormats = map[string]string{
	"png": "image/png",
	"svg": "image/svg+xml",
}

// WriteImage draws the chart with gonum/plot. Width and height are taken as points.
func (c Chart) WriteImage(w io.Writer, format string) error {
	if _, ok := ImageFormats[format]; !ok {
		return fmt.Errorf("unsupported image format %q", format)
	}
	if len(c.Bars) == 0 {
		return ErrEmptyChart
	}

	p := plot.New()
	p.Title.Text = c.Title
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.Text = c.XLabel
	p.Y.Label.Text = c.YLabel
	p.X.Min = 0

	// Nominal Y runs bottom-up, so the largest bar gets the highest index
	n := len(c.Bars)
	names := make([]string, n)
	barWidth := vg.Points(0.7 * float64(c.Height) / float64(n+2))

	for i, b := range c.Bars {
		idx := n - 1 - i
		names[idx] = b.Country

		bars, err := plotter.NewBarChart(plotter.Values{b.Value}, barWidth)
		if err != nil {
			return fmt.Errorf("bar %q: %w", b.Country, err)
		}
		bars.Horizontal = true
		bars.XMin = float64(idx)
		bars.Color = b.Color
		bars.LineStyle.Width = vg.Length(0)
		p.Add(bars)
	}
	p.NominalY(names...)
	p.Add(plotter.NewGrid())

	wt, err := p.WriterTo(vg.Points(float64(c.Width)), vg.Points(float64(c.Height)), format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
