// Package receipts talks to the external receipt parsing service.
package receipts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// DefaultTimeout bounds a single parse call.
const DefaultTimeout = 30 * time.Second

const healthTimeout = 5 * time.Second

// Upload is an image received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Parsed is the best-effort payload returned by the parser. Every field is
// optional.
type Parsed struct {
	Amount            *float64 `json:"amount"`
	SuggestedCategory *string  `json:"suggested_category"`
	Merchant          *string  `json:"merchant"`
	Date              *string  `json:"date"`
	Currency          *string  `json:"currency"`
	RawText           *string  `json:"raw_text"`
	Warning           string   `json:"warning,omitempty"`
}

// Outcome labels for Observer.
const (
	OutcomeParsed  = "parsed"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Observer receives one notification per parse call.
type Observer interface {
	ObserveEnrichment(outcome string, elapsed time.Duration)
}

// Client calls the parser over HTTP.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	prepare    func(Upload) Upload
	observer   Observer
	logger     *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient swaps the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxDimension downscales uploads larger than px on either side.
func WithMaxDimension(px int) Option {
	return func(c *Client) {
		if px > 0 {
			c.prepare = func(u Upload) Upload { return Downscale(u, px) }
		}
	}
}

// WithObserver records call outcomes.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient constructs a parser client for baseURL.
func NewClient(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    DefaultTimeout,
		httpClient: &http.Client{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Parse sends upload to the parser. Any failure is logged and reported as
// ok == false; callers continue without enrichment.
func (c *Client) Parse(ctx context.Context, upload Upload) (Parsed, bool) {
	start := time.Now()
	parsed, err := c.parse(ctx, upload)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn("receipt parsing failed",
			slog.String("kind", failureKind(err)),
			slog.Duration("elapsed", elapsed),
			slog.Any("error", err))
		c.observe(OutcomeFailed, elapsed)
		return Parsed{}, false
	}
	c.observe(OutcomeParsed, elapsed)
	return parsed, true
}

func (c *Client) parse(ctx context.Context, upload Upload) (Parsed, error) {
	if c.prepare != nil {
		upload = c.prepare(upload)
	}
	body, contentType, err := encodeUpload(upload)
	if err != nil {
		return Parsed{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/parse_receipt", body)
	if err != nil {
		return Parsed{}, &callError{kind: "transport", err: err}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Parsed{}, &callError{kind: "timeout", err: err}
		}
		return Parsed{}, &callError{kind: "transport", err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Parsed{}, &callError{kind: "status", err: fmt.Errorf("parser returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))}
	}

	var parsed Parsed
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Parsed{}, &callError{kind: "timeout", err: err}
		}
		return Parsed{}, &callError{kind: "decode", err: err}
	}
	return parsed, nil
}

func (c *Client) observe(outcome string, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveEnrichment(outcome, elapsed)
	}
}

// Health is the parser liveness report.
type Health struct {
	Healthy   bool      `json:"healthy"`
	CheckedAt time.Time `json:"checkedAt"`
	Detail    string    `json:"detail,omitempty"`
}

// Health probes GET /health with a short deadline.
func (c *Client) Health(ctx context.Context) Health {
	result := Health{CheckedAt: time.Now().UTC()}
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var payload struct {
		Status string `json:"status"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)
	result.Healthy = resp.StatusCode < 300
	result.Detail = payload.Status
	if !result.Healthy {
		result.Detail = fmt.Sprintf("status %d", resp.StatusCode)
	}
	return result
}

func encodeUpload(upload Upload) (io.Reader, string, error) {
	filename := upload.Filename
	if filename == "" {
		filename = "receipt.jpg"
	}
	contentType := upload.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(upload.Data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

type callError struct {
	kind string
	err  error
}

func (e *callError) Error() string { return e.kind + ": " + e.err.Error() }

func (e *callError) Unwrap() error { return e.err }

func failureKind(err error) string {
	var ce *callError
	if errors.As(err, &ce) {
		return ce.kind
	}
	return "encode"
}
