// Package svg renders the spending charts as standalone SVG documents.
package svg

// Palette is the category colour cycle.
var Palette = []string{
	"#4f46e5", "#10b981", "#f59e0b", "#ef4444", "#3b82f6",
	"#8b5cf6", "#a855f7", "#ec4899", "#f97316", "#14b8a6",
}

// Slice is one wedge of a pie chart.
type Slice struct {
	Label string
	Value float64
}

// PieOpts customises the pie renderer.
type PieOpts struct {
	Title       string
	Description string
	TextColor   string
	ShowLegend  bool
}

// BarOpts customises the bar chart renderer.
type BarOpts struct {
	Title       string
	Description string
	SeriesLabel string
	Color       string
	AxisColor   string
	GridColor   string
	Padding     float64
	TickCount   int
}

// LineOpts customises the line chart renderer.
type LineOpts struct {
	Title       string
	Description string
	StrokeColor string
	FillColor   string
	AxisColor   string
	GridColor   string
	Padding     float64
	ShowDots    bool
	TickCount   int
}

// Chart defaults.
const (
	DefaultWidth   = 720
	DefaultHeight  = 320
	DefaultPadding = 36.0
	DefaultTicks   = 5
)

// ColorAt returns the palette colour for the i-th series.
func ColorAt(i int) string {
	return Palette[i%len(Palette)]
}
