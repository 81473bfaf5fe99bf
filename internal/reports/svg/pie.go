package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Pie renders a pie chart, colouring slices from Palette in input order.
// Non-positive slices are skipped.
func Pie(width, height int, slices []Slice, opts PieOpts) (template.HTML, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	title := fallback(opts.Title, "Pie chart")
	textColor := fallback(opts.TextColor, "#334155")

	total := 0.0
	for _, s := range slices {
		if s.Value > 0 {
			total += s.Value
		}
	}
	if total <= 0 {
		return empty(width, height, title, "No expenses yet"), nil
	}

	legendWidth := 0.0
	if opts.ShowLegend {
		legendWidth = float64(width) * 0.4
	}
	areaWidth := float64(width) - legendWidth
	radius := math.Min(areaWidth, float64(height))/2 - 12
	if radius <= 0 {
		return "", fmt.Errorf("svg: viewport too small")
	}
	cx := areaWidth / 2
	cy := float64(height) / 2

	var b strings.Builder
	header(&b, width, height, title, fallback(opts.Description, "Share of total"), "pie")

	angle := -math.Pi / 2
	legendRow := 0
	for i, s := range slices {
		if s.Value <= 0 {
			continue
		}
		color := ColorAt(i)
		share := s.Value / total
		tooltip := template.HTMLEscapeString(fmt.Sprintf("%s: %.2f (%.1f%%)", s.Label, s.Value, share*100))
		if share >= 1-1e-9 {
			fmt.Fprintf(&b, `<circle cx="%.2f" cy="%.2f" r="%.2f" fill="%s"><title>%s</title></circle>`, cx, cy, radius, color, tooltip)
		} else {
			sweep := share * 2 * math.Pi
			x1, y1 := cx+radius*math.Cos(angle), cy+radius*math.Sin(angle)
			x2, y2 := cx+radius*math.Cos(angle+sweep), cy+radius*math.Sin(angle+sweep)
			largeArc := 0
			if sweep > math.Pi {
				largeArc = 1
			}
			fmt.Fprintf(&b, `<path d="M%.2f %.2f L%.2f %.2f A%.2f %.2f 0 %d 1 %.2f %.2f Z" fill="%s" stroke="#ffffff" stroke-width="1"><title>%s</title></path>`,
				cx, cy, x1, y1, radius, radius, largeArc, x2, y2, color, tooltip)
			angle += sweep
		}
		if opts.ShowLegend {
			lx := areaWidth + 8
			ly := 24 + float64(legendRow)*18
			fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="10" height="10" fill="%s"></rect>`, lx, ly-9, color)
			fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="11">%s</text>`,
				lx+16, ly, textColor, template.HTMLEscapeString(fmt.Sprintf("%s (%.1f%%)", s.Label, share*100)))
			legendRow++
		}
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}
