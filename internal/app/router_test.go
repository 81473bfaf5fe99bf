package app

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartexpense/smartexpense/internal/auth"
	"github.com/smartexpense/smartexpense/internal/expenses"
	"github.com/smartexpense/smartexpense/internal/observability"
	reportshttp "github.com/smartexpense/smartexpense/internal/reports/http"
	"github.com/smartexpense/smartexpense/jobs"
)

func testRouter(cfg *Config) http.Handler {
	return NewRouter(RouterParams{
		Logger:         NewLogger(&Config{LogFormat: "json"}),
		Config:         cfg,
		Verifier:       auth.NewTokens("router-secret", time.Hour),
		ExpenseHandler: expenses.NewHandler(expenses.NewService(nil, nil, nil, nil), nil),
		ReportHandler:  reportshttp.NewHandler(nil, nil, nil),
		JobHandler:     jobs.NewHandler(nil, nil, nil),
		Metrics:        observability.NewMetrics(),
	})
}

func request(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestRootBanner(t *testing.T) {
	rec := request(testRouter(nil), http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Expense Tracker API", rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestHealthzAndMetrics(t *testing.T) {
	router := testRouter(nil)
	rec := request(router, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = request(router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "smartexpense_http_requests_total")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := testRouter(nil)
	for _, path := range []string{"/api/expenses", "/api/reports/summary", "/api/parser/health"} {
		rec := request(router, http.MethodGet, path)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.JSONEq(t, `{"error":"Not authorized, no token"}`, rec.Body.String(), path)
	}
}

func TestProtectedRouteRejectsBadToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/parser/health", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	testRouter(nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Not authorized, token failed"}`, rec.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	rec := request(testRouter(nil), http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIRateLimitPerIP(t *testing.T) {
	router := testRouter(&Config{RateLimitRequests: 100, RateLimitWindow: 15 * time.Minute})

	for i := 0; i < 100; i++ {
		rec := request(router, http.MethodGet, "/api/jobs/health")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}
	rec := request(router, http.MethodGet, "/api/jobs/health")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, RateLimitMessage, body["error"])

	other := httptest.NewRequest(http.MethodGet, "/api/jobs/health", nil)
	other.RemoteAddr = "198.51.100.7:4321"
	otherRec := httptest.NewRecorder()
	router.ServeHTTP(otherRec, other)
	assert.Equal(t, http.StatusOK, otherRec.Code)

	// Routes outside /api are not limited.
	assert.Equal(t, http.StatusOK, request(router, http.MethodGet, "/healthz").Code)
}

func TestAPIRateLimitIgnoresForwardingHeaders(t *testing.T) {
	router := testRouter(&Config{RateLimitRequests: 100, RateLimitWindow: 15 * time.Minute})

	send := func(i int) int {
		req := httptest.NewRequest(http.MethodGet, "/api/jobs/health", nil)
		req.RemoteAddr = "203.0.113.9:5555"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.%d.%d", i/256, i%256))
		req.Header.Set("X-Real-IP", fmt.Sprintf("10.1.%d.%d", i/256, i%256))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}
	for i := 0; i < 100; i++ {
		require.Equal(t, http.StatusOK, send(i), "request %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, send(100))
}

func TestKeyByPeer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	key, err := KeyByPeer(req)
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.1", key)

	var seen string
	handler := PeerAddr(middleware.RealIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = KeyByPeer(r)
	})))
	req.Header.Set("X-Forwarded-For", "10.9.9.9")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "192.0.2.1", seen)
}

func TestBodyLimit(t *testing.T) {
	handler := BodyLimit(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/expenses", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()
	testRouter(&Config{CORSAllowedOrigins: []string{"http://localhost:5173"}, RateLimitRequests: 100, RateLimitWindow: time.Minute}).ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)
}
