package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/smartexpense/smartexpense/internal/auth"
	"github.com/smartexpense/smartexpense/internal/expenses"
	"github.com/smartexpense/smartexpense/internal/feedback"
	"github.com/smartexpense/smartexpense/internal/observability"
	"github.com/smartexpense/smartexpense/internal/platform/httpx"
	reportshttp "github.com/smartexpense/smartexpense/internal/reports/http"
	"github.com/smartexpense/smartexpense/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	Verifier        auth.Verifier
	AuthHandler     *auth.Handler
	ExpenseHandler  *expenses.Handler
	ReportHandler   *reportshttp.Handler
	FeedbackHandler *feedback.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Expense Tracker API"))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	requests, window := 100, 15*time.Minute
	if params.Config != nil {
		requests, window = params.Config.RateLimitRequests, params.Config.RateLimitWindow
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(APIRateLimit(requests, window))

		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(params.Verifier))

			if params.ExpenseHandler != nil {
				r.Route("/expenses", params.ExpenseHandler.MountRoutes)
			}
			if params.ReportHandler != nil {
				r.Route("/reports", params.ReportHandler.MountRoutes)
			}
			if params.FeedbackHandler != nil {
				r.Route("/feedback", params.FeedbackHandler.MountRoutes)
			}
			if params.JobHandler != nil {
				r.Get("/parser/health", params.JobHandler.HandleParserHealth)
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, http.StatusNotFound, "Route not found")
	})

	return r
}
