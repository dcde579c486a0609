package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/verifyd/internal/domain/model"
	"github.com/target/verifyd/internal/observability/statsd"
)

type capturedRequest struct {
	method      string
	contentType string
	userAgent   string
	body        []byte
}

func newWebhookReceiver(t *testing.T, status int, delay time.Duration) (*httptest.Server, <-chan capturedRequest) {
	t.Helper()
	got := make(chan capturedRequest, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- capturedRequest{
			method:      r.Method,
			contentType: r.Header.Get("Content-Type"),
			userAgent:   r.Header.Get("User-Agent"),
			body:        body,
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
			}
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestWebhookDispatcher_DeliversOnce(t *testing.T) {
	srv, got := newWebhookReceiver(t, http.StatusNoContent, 0)
	rec := &statsd.Recorder{}
	d := NewWebhookDispatcher(WebhookDispatcherOptions{Metrics: rec})

	payload := model.WebhookPayload{
		JobID:  "job-1",
		Status: model.JobStatusDone,
		Result: json.RawMessage(`{"verdict":"supported"}`),
	}
	require.NoError(t, d.Deliver(context.Background(), srv.URL+"/hook", payload))

	req := <-got
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "application/json", req.contentType)
	assert.Equal(t, DefaultWebhookUserAgent, req.userAgent)
	assert.JSONEq(t, `{"jobId":"job-1","status":"done","result":{"verdict":"supported"}}`, string(req.body))
	assert.Empty(t, got, "exactly one attempt")

	deliveries := rec.Named("webhook.delivery")
	require.Len(t, deliveries, 1)
	assert.Equal(t, "success", deliveries[0].Tags["result"])
}

func TestWebhookDispatcher_ErrorPayload(t *testing.T) {
	srv, got := newWebhookReceiver(t, http.StatusOK, 0)
	d := NewWebhookDispatcher(WebhookDispatcherOptions{UserAgent: "custom/2"})

	require.NoError(t, d.Deliver(context.Background(), srv.URL, model.WebhookPayload{
		JobID:  "job-2",
		Status: model.JobStatusError,
		Error:  "rate limited",
	}))

	req := <-got
	assert.Equal(t, "custom/2", req.userAgent)
	assert.JSONEq(t, `{"jobId":"job-2","status":"error","error":"rate limited"}`, string(req.body))
}

func TestWebhookDispatcher_NonSuccessStatusIsError(t *testing.T) {
	srv, got := newWebhookReceiver(t, http.StatusInternalServerError, 0)
	rec := &statsd.Recorder{}
	d := NewWebhookDispatcher(WebhookDispatcherOptions{Metrics: rec})

	err := d.Deliver(context.Background(), srv.URL, model.WebhookPayload{JobID: "j", Status: model.JobStatusDone})
	require.Error(t, err)
	assert.True(t, IsWebhookStatusError(err))
	assert.Contains(t, err.Error(), "500")

	<-got
	assert.Empty(t, got, "non-2xx responses are not retried")
	assert.Equal(t, "error", rec.Named("webhook.delivery")[0].Tags["result"])
}

func TestWebhookDispatcher_Timeout(t *testing.T) {
	srv, _ := newWebhookReceiver(t, http.StatusOK, time.Second)
	d := NewWebhookDispatcher(WebhookDispatcherOptions{Timeout: 50 * time.Millisecond})

	start := time.Now()
	err := d.Deliver(context.Background(), srv.URL, model.WebhookPayload{JobID: "j", Status: model.JobStatusDone})
	require.Error(t, err)
	assert.False(t, IsWebhookStatusError(err))
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestWebhookDispatcher_Unreachable(t *testing.T) {
	d := NewWebhookDispatcher(WebhookDispatcherOptions{Timeout: time.Second})

	err := d.Deliver(context.Background(), "http://127.0.0.1:1/hook", model.WebhookPayload{JobID: "j"})
	require.Error(t, err)

	err = d.Deliver(context.Background(), "://not a url", model.WebhookPayload{JobID: "j"})
	require.Error(t, err)
}
