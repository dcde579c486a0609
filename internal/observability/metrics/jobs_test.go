package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/verifyd/internal/observability/statsd"
)

func TestEmitJobLifecycle(t *testing.T) {
	var rec statsd.Recorder

	EmitJobLifecycle(&rec, JobMetric{
		Tier:       "pro",
		Backend:    "memory",
		Transition: TransitionFailed,
		Result:     ResultError,
		Duration:   250 * time.Millisecond,
		Err:        context.DeadlineExceeded,
	})

	counts := rec.Named("job.transition")
	require.Len(t, counts, 1)
	assert.Equal(t, map[string]string{
		"transition":  "failed",
		"result":      "error",
		"tier":        "pro",
		"backend":     "memory",
		"error_class": "timeout",
	}, counts[0].Tags)

	timings := rec.Named("job.duration")
	require.Len(t, timings, 1)
	assert.InDelta(t, 250, timings[0].Value, 0.001)
}

func TestEmitJobLifecycle_NoDurationNoTiming(t *testing.T) {
	var rec statsd.Recorder
	EmitJobLifecycle(&rec, JobMetric{Transition: TransitionCreated, Result: ResultSuccess})

	assert.Len(t, rec.Named("job.transition"), 1)
	assert.Empty(t, rec.Named("job.duration"))
}

func TestEmitWebhookDelivery(t *testing.T) {
	var rec statsd.Recorder

	EmitWebhookDelivery(&rec, "done", time.Second, nil)
	EmitWebhookDelivery(&rec, "error", 0, errors.New("boom"))

	deliveries := rec.Named("webhook.delivery")
	require.Len(t, deliveries, 2)
	assert.Equal(t, "success", deliveries[0].Tags["result"])
	assert.Equal(t, "done", deliveries[0].Tags["job_status"])
	assert.Equal(t, "error", deliveries[1].Tags["result"])
	assert.Equal(t, "errors_errorstring", deliveries[1].Tags["error_class"])
	assert.Len(t, rec.Named("webhook.duration"), 1)
}

func TestEmitSweep(t *testing.T) {
	var rec statsd.Recorder

	EmitSweep(&rec, 3, 7, time.Millisecond, nil)
	EmitSweep(&rec, 0, 7, time.Millisecond, nil)

	runs := rec.Named("sweeper.run")
	require.Len(t, runs, 2)
	assert.Equal(t, ResultSuccess, runs[0].Tags["result"])
	assert.Equal(t, ResultNoop, runs[1].Tags["result"])

	deleted := rec.Named("sweeper.deleted")
	require.Len(t, deleted, 1)
	assert.InDelta(t, 3, deleted[0].Value, 0)
	assert.Len(t, rec.Named("sweeper.last_success_epoch"), 2)
	retained := rec.Named("sweeper.retained")
	require.Len(t, retained, 2)
	assert.InDelta(t, 7, retained[0].Value, 0)
}

func TestNilSinkIsIgnored(t *testing.T) {
	assert.NotPanics(t, func() {
		EmitJobLifecycle(nil, JobMetric{})
		EmitWebhookDelivery(nil, "done", time.Second, nil)
		EmitSweep(nil, 1, 0, time.Second, nil)
	})
}

func TestCloneTags(t *testing.T) {
	assert.Nil(t, CloneTags(nil))

	src := map[string]string{"a": "1", "": "drop"}
	out := CloneTags(src)
	out["a"] = "2"
	assert.Equal(t, "1", src["a"])
	assert.NotContains(t, out, "")
}
