// Package export renders spending summaries as CSV and PDF documents.
package export

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"

	"github.com/smartexpense/smartexpense/internal/reports"
	"github.com/smartexpense/smartexpense/internal/reports/svg"
)

// Renderer converts an HTML document into PDF bytes.
type Renderer interface {
	RenderHTML(ctx context.Context, html []byte, fields map[string]string) ([]byte, error)
}

// TemplateExecutor renders a named HTML template.
type TemplateExecutor interface {
	Execute(w io.Writer, name string, data any) error
}

// ReportPayload is the data handed to the summary template.
type ReportPayload struct {
	Title         string
	Owner         string
	Summary       reports.Summary
	CategoryChart template.HTML
	MonthlyChart  template.HTML
}

// PDFExporter builds the summary report and converts it through a Renderer.
type PDFExporter struct {
	templates TemplateExecutor
	renderer  Renderer
}

// NewPDFExporter constructs an exporter.
func NewPDFExporter(templates TemplateExecutor, renderer Renderer) *PDFExporter {
	return &PDFExporter{templates: templates, renderer: renderer}
}

// BuildHTML renders the summary document including inline charts.
func (p *PDFExporter) BuildHTML(owner string, summary reports.Summary) ([]byte, error) {
	if p == nil || p.templates == nil {
		return nil, fmt.Errorf("pdf exporter not initialised")
	}
	categoryChart, monthlyChart, err := Charts(summary, 520, 260)
	if err != nil {
		return nil, err
	}
	payload := ReportPayload{
		Title:         "SmartExpense Report",
		Owner:         owner,
		Summary:       summary,
		CategoryChart: categoryChart,
		MonthlyChart:  monthlyChart,
	}
	var buf bytes.Buffer
	if err := p.templates.Execute(&buf, "reports/summary.html", payload); err != nil {
		return nil, fmt.Errorf("render report html: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPDF produces the PDF version of the summary report.
func (p *PDFExporter) RenderPDF(ctx context.Context, owner string, summary reports.Summary) ([]byte, error) {
	html, err := p.BuildHTML(owner, summary)
	if err != nil {
		return nil, err
	}
	if p.renderer == nil {
		return nil, fmt.Errorf("pdf renderer not configured")
	}
	return p.renderer.RenderHTML(ctx, html, map[string]string{
		"printBackground": "true",
		"paperWidth":      "8.27",
		"paperHeight":     "11.7",
	})
}

// Charts renders the category pie and the monthly bar chart for summary.
func Charts(summary reports.Summary, width, height int) (template.HTML, template.HTML, error) {
	slices := make([]svg.Slice, 0, len(summary.Categories))
	for _, c := range summary.Categories {
		slices = append(slices, svg.Slice{Label: c.Category, Value: c.Amount})
	}
	pie, err := svg.Pie(width, height, slices, svg.PieOpts{
		Title:       "Category Breakdown",
		Description: "Share of spend per category",
		ShowLegend:  true,
	})
	if err != nil {
		return "", "", err
	}

	labels := make([]string, 0, len(summary.Months))
	values := make([]float64, 0, len(summary.Months))
	for _, m := range summary.Months {
		labels = append(labels, m.Month)
		values = append(values, m.Amount)
	}
	bars, err := svg.Bars(width, height, values, labels, svg.BarOpts{
		Title:       "Monthly Spend Analysis",
		Description: "Spend per calendar month",
		SeriesLabel: "Monthly Spend (₹)",
	})
	if err != nil {
		return "", "", err
	}
	return pie, bars, nil
}
