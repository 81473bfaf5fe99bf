package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	jobmetrics "github.com/smartexpense/smartexpense/internal/jobs"
	"github.com/smartexpense/smartexpense/internal/platform/httpx"
	"github.com/smartexpense/smartexpense/internal/receipts"
)

const (
	// ParserHealthKey holds the latest parser probe result.
	ParserHealthKey = "parser:health"
	// ParserHealthTTL bounds how long a probe result stays visible.
	ParserHealthTTL = 15 * time.Minute
)

// ErrNoProbe indicates no parser probe result is stored.
var ErrNoProbe = errors.New("parser health: no probe recorded")

// HealthProber checks the receipt parser.
type HealthProber interface {
	Health(ctx context.Context) receipts.Health
}

// ParserHealthStore keeps the last probe result in Redis.
type ParserHealthStore struct {
	client *redis.Client
}

// NewParserHealthStore constructs a store. A nil client stores nothing.
func NewParserHealthStore(client *redis.Client) *ParserHealthStore {
	return &ParserHealthStore{client: client}
}

// Save records h with ParserHealthTTL.
func (s *ParserHealthStore) Save(ctx context.Context, h receipts.Health) error {
	if s == nil || s.client == nil {
		return nil
	}
	data, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, ParserHealthKey, data, ParserHealthTTL).Err()
}

// Load returns the last recorded probe or ErrNoProbe.
func (s *ParserHealthStore) Load(ctx context.Context) (receipts.Health, error) {
	if s == nil || s.client == nil {
		return receipts.Health{}, ErrNoProbe
	}
	data, err := s.client.Get(ctx, ParserHealthKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return receipts.Health{}, ErrNoProbe
		}
		return receipts.Health{}, err
	}
	var h receipts.Health
	if err := json.Unmarshal(data, &h); err != nil {
		return receipts.Health{}, fmt.Errorf("decode parser health: %w", err)
	}
	return h, nil
}

// ParserHealthJob probes the parser and stores the outcome.
type ParserHealthJob struct {
	prober  HealthProber
	store   *ParserHealthStore
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewParserHealthJob wires dependencies for the probe handler.
func NewParserHealthJob(prober HealthProber, store *ParserHealthStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *ParserHealthJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParserHealthJob{prober: prober, store: store, logger: logger, metrics: metrics}
}

// Handle processes TaskParserHealth tasks. An unhealthy parser is a result,
// not a job failure.
func (j *ParserHealthJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.prober == nil {
		return errors.New("parser health: handler not configured")
	}
	tracker := j.metrics.Track(TaskParserHealth)
	h := j.prober.Health(ctx)
	j.metrics.SetParserHealthy(h.Healthy)
	if !h.Healthy {
		j.logger.Warn("receipt parser unhealthy", slog.String("detail", h.Detail))
	}
	if err := j.store.Save(ctx, h); err != nil {
		j.logger.Error("store parser health", slog.Any("error", err))
		return tracker.End(err)
	}
	return tracker.End(nil)
}

// HandleParserHealth serves the last stored probe result.
func (h *Handler) HandleParserHealth(w http.ResponseWriter, r *http.Request) {
	result, err := h.parser.Load(r.Context())
	if err != nil {
		if errors.Is(err, ErrNoProbe) {
			httpx.JSON(w, http.StatusOK, map[string]any{"healthy": nil, "detail": "no probe recorded yet"})
			return
		}
		h.logger.Warn("parser health", slog.Any("error", err))
		httpx.Error(w, http.StatusServiceUnavailable, "Parser health unavailable")
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
