package reportshttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartexpense/smartexpense/internal/reports"
	"github.com/smartexpense/smartexpense/internal/shared"
	"github.com/smartexpense/smartexpense/report"
)

type stubSummaries struct {
	summary reports.Summary
	err     error
	seen    uuid.UUID
}

func (s *stubSummaries) Summary(ctx context.Context, userID uuid.UUID) (reports.Summary, error) {
	s.seen = userID
	return s.summary, s.err
}

type stubPDF struct {
	data  []byte
	err   error
	owner string
}

func (s *stubPDF) RenderPDF(ctx context.Context, owner string, summary reports.Summary) ([]byte, error) {
	s.owner = owner
	return s.data, s.err
}

func sample() reports.Summary {
	return reports.Summary{
		Total:      799,
		Count:      3,
		Categories: []reports.CategoryTotal{{Category: "Food", Amount: 599}, {Category: "Travel", Amount: 200}},
		Months:     []reports.MonthTotal{{Month: "2025-01", Amount: 499}, {Month: "2025-02", Amount: 300}},
	}
}

func newRouter(svc SummaryService, pdf PDFService, identity *shared.Identity) http.Handler {
	h := NewHandler(nil, svc, pdf)
	h.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	if identity != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(shared.ContextWithIdentity(req.Context(), *identity)))
			})
		})
	}
	r.Route("/api/reports", h.MountRoutes)
	return r
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestSummaryJSON(t *testing.T) {
	id := shared.Identity{UserID: uuid.New(), Email: "asha@example.com"}
	svc := &stubSummaries{summary: sample()}
	rec := get(newRouter(svc, nil, &id), "/api/reports/summary")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id.UserID, svc.seen)
	var got reports.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 799.0, got.Total)
	assert.Len(t, got.Categories, 2)
}

func TestSummaryRequiresIdentity(t *testing.T) {
	rec := get(newRouter(&stubSummaries{}, nil, nil), "/api/reports/summary")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSummaryServiceFailure(t *testing.T) {
	id := shared.Identity{UserID: uuid.New()}
	rec := get(newRouter(&stubSummaries{err: errors.New("db down")}, nil, &id), "/api/reports/summary")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSummaryCSV(t *testing.T) {
	id := shared.Identity{UserID: uuid.New()}
	rec := get(newRouter(&stubSummaries{summary: sample()}, nil, &id), "/api/reports/summary.csv")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "expense-report-2025-03-01.csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Category,Amount\nFood,599.00\n"))
}

func TestSummaryPDF(t *testing.T) {
	id := shared.Identity{UserID: uuid.New(), Email: "asha@example.com"}
	pdf := &stubPDF{data: []byte("%PDF-1.7")}
	rec := get(newRouter(&stubSummaries{summary: sample()}, pdf, &id), "/api/reports/summary.pdf")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.7", rec.Body.String())
	assert.Equal(t, "asha@example.com", pdf.owner)
}

func TestSummaryPDFUnavailable(t *testing.T) {
	id := shared.Identity{UserID: uuid.New()}
	pdf := &stubPDF{err: fmt.Errorf("%w: connection refused", report.ErrUnavailable)}
	rec := get(newRouter(&stubSummaries{summary: sample()}, pdf, &id), "/api/reports/summary.pdf")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"PDF export unavailable"}`, rec.Body.String())
}

func TestCharts(t *testing.T) {
	id := shared.Identity{UserID: uuid.New()}
	router := newRouter(&stubSummaries{summary: sample()}, nil, &id)

	for _, tc := range []struct {
		path  string
		title string
	}{
		{"/api/reports/charts/category.svg", "Category Breakdown"},
		{"/api/reports/charts/monthly.svg", "Monthly Spend Analysis"},
		{"/api/reports/charts/trend.svg", "Cumulative Spend"},
	} {
		t.Run(tc.path, func(t *testing.T) {
			rec := get(router, tc.path)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), "<svg")
			assert.Contains(t, rec.Body.String(), tc.title)
		})
	}
}

func TestChartsEmptySummary(t *testing.T) {
	id := shared.Identity{UserID: uuid.New()}
	rec := get(newRouter(&stubSummaries{summary: reports.Aggregate(nil)}, nil, &id), "/api/reports/charts/monthly.svg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No expenses yet")
}

func TestDimensionClamps(t *testing.T) {
	assert.Equal(t, 720, dimension("", 720, 200, 1600))
	assert.Equal(t, 720, dimension("wide", 720, 200, 1600))
	assert.Equal(t, 200, dimension("10", 720, 200, 1600))
	assert.Equal(t, 1600, dimension("99999", 720, 200, 1600))
	assert.Equal(t, 480, dimension("480", 720, 200, 1600))
}
