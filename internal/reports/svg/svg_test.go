package svg

import (
	"strings"
	"testing"
)

func TestBarsProducesSVG(t *testing.T) {
	html, err := Bars(420, 220, []float64{500, 600}, []string{"2025-01", "2025-02"}, BarOpts{
		Title:       "Monthly Spend",
		SeriesLabel: "Monthly Spend (₹)",
	})
	if err != nil {
		t.Fatalf("bars renderer error: %v", err)
	}
	output := string(html)
	if !strings.HasPrefix(output, "<svg") {
		t.Fatalf("expected svg output, got %s", output)
	}
	if strings.Count(output, "<rect") != 3 {
		t.Fatalf("expected two bars plus legend swatch, got %s", output)
	}
	if !strings.Contains(output, "2025-02") {
		t.Fatalf("expected month label")
	}
}

func TestBarsRejectsMismatchedLabels(t *testing.T) {
	if _, err := Bars(0, 0, []float64{1, 2}, []string{"a"}, BarOpts{}); err == nil {
		t.Fatalf("expected error for mismatched labels")
	}
}

func TestChartsRenderEmptyPlaceholder(t *testing.T) {
	bars, err := Bars(0, 0, nil, nil, BarOpts{Title: "Monthly"})
	if err != nil {
		t.Fatalf("bars: %v", err)
	}
	pie, err := Pie(0, 0, nil, PieOpts{Title: "Categories"})
	if err != nil {
		t.Fatalf("pie: %v", err)
	}
	line, err := Line(0, 0, nil, nil, LineOpts{Title: "Trend"})
	if err != nil {
		t.Fatalf("line: %v", err)
	}
	for _, out := range []string{string(bars), string(pie), string(line)} {
		if !strings.Contains(out, "No expenses yet") {
			t.Fatalf("expected placeholder, got %s", out)
		}
	}
}

func TestPieUsesPaletteInOrder(t *testing.T) {
	html, err := Pie(400, 240, []Slice{{"Food", 300}, {"Travel", 100}, {"Zero", 0}}, PieOpts{Title: "Category Breakdown", ShowLegend: true})
	if err != nil {
		t.Fatalf("pie renderer error: %v", err)
	}
	output := string(html)
	if strings.Count(output, "<path") != 2 {
		t.Fatalf("expected two wedges, got %s", output)
	}
	first := strings.Index(output, Palette[0])
	second := strings.Index(output, Palette[1])
	if first < 0 || second < 0 || first > second {
		t.Fatalf("expected palette colours in slice order")
	}
	if !strings.Contains(output, "Food (75.0%)") {
		t.Fatalf("expected legend with share")
	}
	if strings.Contains(output, "Zero") {
		t.Fatalf("zero slice should be skipped")
	}
}

func TestPieSingleSliceIsFullCircle(t *testing.T) {
	html, err := Pie(200, 200, []Slice{{"Food", 10}}, PieOpts{})
	if err != nil {
		t.Fatalf("pie renderer error: %v", err)
	}
	if !strings.Contains(string(html), "<circle") {
		t.Fatalf("expected a circle for a single slice")
	}
}

func TestLineProducesSVG(t *testing.T) {
	html, err := Line(400, 200, []float64{100, 300, 450}, []string{"2025-01", "2025-02", "2025-03"}, LineOpts{
		Title:    "Cumulative Spend",
		ShowDots: true,
	})
	if err != nil {
		t.Fatalf("line renderer error: %v", err)
	}
	output := string(html)
	if !strings.Contains(output, "<path") || strings.Count(output, "<circle") != 3 {
		t.Fatalf("expected path and dots, got %s", output)
	}
	if !strings.Contains(output, "aria-labelledby") {
		t.Fatalf("expected accessibility attributes")
	}
}

func TestFormatTick(t *testing.T) {
	cases := map[float64]string{0: "0", 12.5: "12.50", 2500: "2.5k", 250000: "2.5L", 30000000: "3.0Cr"}
	for in, want := range cases {
		if got := formatTick(in); got != want {
			t.Fatalf("formatTick(%v) = %q, want %q", in, got, want)
		}
	}
}
