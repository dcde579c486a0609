package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/target/verifyd/internal/core"
	"github.com/target/verifyd/internal/domain/model"
	"github.com/target/verifyd/internal/observability/metrics"
	"github.com/target/verifyd/internal/observability/statsd"
)

const (
	// DefaultWebhookTimeout bounds a single delivery attempt.
	DefaultWebhookTimeout = 10 * time.Second
	// DefaultWebhookUserAgent identifies deliveries to receivers.
	DefaultWebhookUserAgent = "verifyd-webhook/1"

	maxDrainBytes = 64 << 10
)

var _ core.WebhookSender = (*WebhookDispatcher)(nil)

// WebhookDispatcherOptions groups dependencies for WebhookDispatcher.
type WebhookDispatcherOptions struct {
	Client    *http.Client  // Optional: defaults to a client with Timeout
	Timeout   time.Duration // Optional: defaults to DefaultWebhookTimeout
	UserAgent string        // Optional: defaults to DefaultWebhookUserAgent
	Logger    *slog.Logger  // Optional: structured logger
	Metrics   statsd.Sink   // Optional: metrics sink (StatsD-compatible)
}

// WebhookDispatcher POSTs job completion payloads. Each call makes exactly one attempt.
type WebhookDispatcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
	metrics   statsd.Sink
}

// NewWebhookDispatcher constructs a WebhookDispatcher.
func NewWebhookDispatcher(opts WebhookDispatcherOptions) *WebhookDispatcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}
	hc := opts.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = DefaultWebhookUserAgent
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &WebhookDispatcher{
		client:    hc,
		timeout:   timeout,
		userAgent: ua,
		logger:    logger.With("component", "webhook_dispatcher"),
		metrics:   opts.Metrics,
	}
}

// Deliver sends payload to url once. Network errors, timeouts and non-2xx responses are
// returned to the caller; nothing is retried.
func (d *WebhookDispatcher) Deliver(ctx context.Context, url string, payload model.WebhookPayload) error {
	start := time.Now()
	err := d.post(ctx, url, payload)
	metrics.EmitWebhookDelivery(d.metrics, string(payload.Status), time.Since(start), err)
	if err != nil {
		return err
	}

	d.logger.DebugContext(ctx, "webhook delivered",
		"job_id", payload.JobID,
		"status", payload.Status,
		"elapsed", time.Since(start),
	)
	return nil
}

func (d *WebhookDispatcher) post(ctx context.Context, url string, payload model.WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &WebhookStatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

// WebhookStatusError reports a non-2xx webhook response.
type WebhookStatusError struct {
	StatusCode int
}

func (e *WebhookStatusError) Error() string {
	return fmt.Sprintf("webhook returned status %d", e.StatusCode)
}

// HTTPStatusCode returns the status the receiver answered with.
func (e *WebhookStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// IsWebhookStatusError reports whether err is a non-2xx webhook response.
func IsWebhookStatusError(err error) bool {
	var se *WebhookStatusError
	return errors.As(err, &se)
}
