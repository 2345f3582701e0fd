package render

import (
	"fmt"
	"sort"

	"countrydash/internal/engine"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	DefaultChartWidth  = 700
	DefaultChartHeight = 400
)

// Teal to dark blue, light for low values.
var tealBlues = []string{"#bce4d8", "#81c3cb", "#45a2b9", "#347da0", "#2c5985"}

var tealBlueStops = mustParseStops(tealBlues...)

// Layout margins of the SVG chart, in pixels.
const (
	marginLeft   = 140.0
	marginRight  = 60.0
	marginTop    = 44.0
	marginBottom = 44.0
	axisTicks    = 4
)

// Bar is one country of the chart.
type Bar struct {
	Country string
	Value   float64
	Label   string
	Tooltip string
	Color   colorful.Color
}

// Fill returns the bar color as #rrggbb.
func (b Bar) Fill() string {
	return b.Color.Hex()
}

// Chart is a horizontal bar chart, largest value on top.
type Chart struct {
	Title  string
	XLabel string
	YLabel string
	Width  int
	Height int
	Bars   []Bar
	Max    float64
}

// ColorScale maps a value range onto a sequence of color stops, blending in Lab space.
type ColorScale struct {
	stops    []colorful.Color
	min, max float64
}

func NewColorScale(min, max float64, hexStops ...string) (*ColorScale, error) {
	stops, err := parseStops(hexStops...)
	if err != nil {
		return nil, err
	}
	return &ColorScale{stops: stops, min: min, max: max}, nil
}

func parseStops(hexStops ...string) ([]colorful.Color, error) {
	if len(hexStops) < 2 {
		return nil, fmt.Errorf("color scale needs at least 2 stops, got %d", len(hexStops))
	}
	stops := make([]colorful.Color, len(hexStops))
	for i, h := range hexStops {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("color stop %q: %w", h, err)
		}
		stops[i] = c
	}
	return stops, nil
}

// mustParseStops is for package-level palettes, like template.Must.
func mustParseStops(hexStops ...string) []colorful.Color {
	stops, err := parseStops(hexStops...)
	if err != nil {
		panic(err)
	}
	return stops
}

// At returns the color for v. Values outside the range clamp; a flat range
// maps to the darkest stop.
func (s *ColorScale) At(v float64) colorful.Color {
	t := 1.0
	if s.max > s.min {
		t = (v - s.min) / (s.max - s.min)
	}
	if t <= 0 {
		return s.stops[0]
	}
	if t >= 1 {
		return s.stops[len(s.stops)-1]
	}
	pos := t * float64(len(s.stops)-1)
	i := int(pos)
	return s.stops[i].BlendLab(s.stops[i+1], pos-float64(i)).Clamped()
}

// RenderChart builds the chart for a ranking. width or height <= 0 fall back to the defaults.
func RenderChart(ranking []engine.Entry, category string, width, height int) Chart {
	if width <= 0 {
		width = DefaultChartWidth
	}
	if height <= 0 {
		height = DefaultChartHeight
	}

	entries := make([]engine.Entry, len(ranking))
	copy(entries, ranking)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Value > entries[j].Value })

	c := Chart{
		Title:  fmt.Sprintf("%s: top %d countries", category, len(entries)),
		XLabel: fmt.Sprintf("%s ratio", category),
		YLabel: engine.IdentifierColumn,
		Width:  width,
		Height: height,
		Bars:   make([]Bar, len(entries)),
	}
	if len(entries) == 0 {
		return c
	}

	lo, hi := entries[len(entries)-1].Value, entries[0].Value
	c.Max = hi
	scale := &ColorScale{stops: tealBlueStops, min: lo, max: hi}

	for i, e := range entries {
		label := FormatValue(e.Value)
		c.Bars[i] = Bar{
			Country: e.Country,
			Value:   e.Value,
			Label:   label,
			Tooltip: fmt.Sprintf("%s: %s", e.Country, label),
			Color:   scale.At(e.Value),
		}
	}
	return c
}

// BarShape is a bar placed on the SVG canvas.
type BarShape struct {
	Bar
	X, Y, W, H float64
	MidY       float64
}

// Tick is an x axis mark.
type Tick struct {
	X     float64
	Label string
}

func (c Chart) plotArea() (w, h float64) {
	return float64(c.Width) - marginLeft - marginRight, float64(c.Height) - marginTop - marginBottom
}

// Shapes lays the bars out top to bottom. Negative values draw as empty bars.
func (c Chart) Shapes() []BarShape {
	if len(c.Bars) == 0 {
		return nil
	}
	pw, ph := c.plotArea()
	band := ph / float64(len(c.Bars))

	shapes := make([]BarShape, len(c.Bars))
	for i, b := range c.Bars {
		w := 0.0
		if c.Max > 0 && b.Value > 0 {
			w = pw * b.Value / c.Max
		}
		y := marginTop + float64(i)*band
		shapes[i] = BarShape{
			Bar:  b,
			X:    marginLeft,
			Y:    y + band*0.1,
			W:    w,
			H:    band * 0.8,
			MidY: y + band/2,
		}
	}
	return shapes
}

// Ticks returns evenly spaced x axis marks from 0 to Max.
func (c Chart) Ticks() []Tick {
	if c.Max <= 0 {
		return nil
	}
	pw, _ := c.plotArea()
	ticks := make([]Tick, axisTicks+1)
	for k := range ticks {
		frac := float64(k) / axisTicks
		ticks[k] = Tick{X: marginLeft + pw*frac, Label: FormatValue(c.Max * frac)}
	}
	return ticks
}

// Geometry helpers for the page template.
func (c Chart) PlotLeft() float64   { return marginLeft }
func (c Chart) PlotTop() float64    { return marginTop }
func (c Chart) PlotBottom() float64 { return float64(c.Height) - marginBottom }
func (c Chart) PlotRight() float64  { return float64(c.Width) - marginRight }
func (c Chart) AxisLabelY() float64 { return float64(c.Height) - 8 }
func (c Chart) CenterX() float64    { return marginLeft + (float64(c.Width)-marginLeft-marginRight)/2 }
