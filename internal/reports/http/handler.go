// Package reportshttp serves spending summaries, exports and charts.
package reportshttp

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/smartexpense/smartexpense/internal/platform/httpx"
	"github.com/smartexpense/smartexpense/internal/reports"
	"github.com/smartexpense/smartexpense/internal/reports/export"
	"github.com/smartexpense/smartexpense/internal/reports/svg"
	"github.com/smartexpense/smartexpense/internal/shared"
	"github.com/smartexpense/smartexpense/report"
)

const (
	minWidth, maxWidth   = 200, 1600
	minHeight, maxHeight = 150, 1200
	pdfTimeout           = 45 * time.Second
)

// SummaryService provides the aggregated spending of a user.
type SummaryService interface {
	Summary(ctx context.Context, userID uuid.UUID) (reports.Summary, error)
}

// PDFService renders a summary to PDF bytes.
type PDFService interface {
	RenderPDF(ctx context.Context, owner string, summary reports.Summary) ([]byte, error)
}

// Handler coordinates report requests.
type Handler struct {
	logger  *slog.Logger
	service SummaryService
	pdf     PDFService
	csvPool sync.Pool
	now     func() time.Time
}

// NewHandler constructs the report HTTP handler.
func NewHandler(logger *slog.Logger, service SummaryService, pdf PDFService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{logger: logger, service: service, pdf: pdf, now: time.Now}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// MountRoutes registers report routes. Callers install authentication on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/summary", h.handleSummary)
	r.Get("/summary.csv", h.handleCSV)
	r.Get("/summary.pdf", h.handlePDF)
	r.Get("/charts/category.svg", h.handleCategoryChart)
	r.Get("/charts/monthly.svg", h.handleMonthlyChart)
	r.Get("/charts/trend.svg", h.handleTrendChart)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	_, summary, ok := h.load(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	_, summary, ok := h.load(w, r)
	if !ok {
		return
	}
	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer h.csvPool.Put(buf)

	if err := export.WriteSummaryCSV(buf, summary); err != nil {
		h.serverError(w, "write csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+h.filename("csv")+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	identity, summary, ok := h.load(w, r)
	if !ok {
		return
	}
	if h.pdf == nil {
		httpx.Error(w, http.StatusBadGateway, "PDF export unavailable")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), pdfTimeout)
	defer cancel()

	data, err := h.pdf.RenderPDF(ctx, identity.Email, summary)
	if err != nil {
		if errors.Is(err, report.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
			h.logger.Warn("pdf export unavailable", slog.Any("error", err))
			httpx.Error(w, http.StatusBadGateway, "PDF export unavailable")
			return
		}
		h.serverError(w, "render pdf", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+h.filename("pdf")+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) handleCategoryChart(w http.ResponseWriter, r *http.Request) {
	_, summary, ok := h.load(w, r)
	if !ok {
		return
	}
	width, height := chartSize(r)
	slices := make([]svg.Slice, 0, len(summary.Categories))
	for _, c := range summary.Categories {
		slices = append(slices, svg.Slice{Label: c.Category, Value: c.Amount})
	}
	chart, err := svg.Pie(width, height, slices, svg.PieOpts{
		Title:       "Category Breakdown",
		Description: "Share of spend per category",
		ShowLegend:  true,
	})
	h.writeSVG(w, chart, err)
}

func (h *Handler) handleMonthlyChart(w http.ResponseWriter, r *http.Request) {
	_, summary, ok := h.load(w, r)
	if !ok {
		return
	}
	width, height := chartSize(r)
	labels, values := monthSeries(summary)
	chart, err := svg.Bars(width, height, values, labels, svg.BarOpts{
		Title:       "Monthly Spend Analysis",
		Description: "Spend per calendar month",
		SeriesLabel: "Monthly Spend (₹)",
	})
	h.writeSVG(w, chart, err)
}

func (h *Handler) handleTrendChart(w http.ResponseWriter, r *http.Request) {
	_, summary, ok := h.load(w, r)
	if !ok {
		return
	}
	width, height := chartSize(r)
	labels, _ := monthSeries(summary)
	chart, err := svg.Line(width, height, summary.Cumulative(), labels, svg.LineOpts{
		Title:       "Cumulative Spend",
		Description: "Running total by month",
		ShowDots:    true,
	})
	h.writeSVG(w, chart, err)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (shared.Identity, reports.Summary, bool) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return shared.Identity{}, reports.Summary{}, false
	}
	summary, err := h.service.Summary(r.Context(), identity.UserID)
	if err != nil {
		h.serverError(w, "load summary", err)
		return shared.Identity{}, reports.Summary{}, false
	}
	return identity, summary, true
}

func (h *Handler) writeSVG(w http.ResponseWriter, chart template.HTML, err error) {
	if err != nil {
		h.serverError(w, "render chart", err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "private, no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(chart))
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op+" failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}

func (h *Handler) filename(ext string) string {
	return "expense-report-" + h.now().UTC().Format("2006-01-02") + "." + ext
}

func monthSeries(summary reports.Summary) ([]string, []float64) {
	labels := make([]string, 0, len(summary.Months))
	values := make([]float64, 0, len(summary.Months))
	for _, m := range summary.Months {
		labels = append(labels, m.Month)
		values = append(values, m.Amount)
	}
	return labels, values
}

func chartSize(r *http.Request) (int, int) {
	return dimension(r.URL.Query().Get("w"), svg.DefaultWidth, minWidth, maxWidth),
		dimension(r.URL.Query().Get("h"), svg.DefaultHeight, minHeight, maxHeight)
}

func dimension(raw string, def, lo, hi int) int {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
