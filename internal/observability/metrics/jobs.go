package metrics

import (
	"time"

	obserrors "github.com/target/verifyd/internal/observability/errors"
	"github.com/target/verifyd/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Transition names for job lifecycle metrics.
const (
	TransitionCreated   = "created"
	TransitionStarted   = "started"
	TransitionCompleted = "completed"
	TransitionFailed    = "failed"
)

// JobMetric captures details about a job lifecycle event for metric emission.
type JobMetric struct {
	Tier       string
	Backend    string
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitJobLifecycle emits standardised job lifecycle metrics.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.Tier != "" {
		tags["tier"] = in.Tier
	}
	if in.Backend != "" {
		tags["backend"] = in.Backend
	}

	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("job.transition", 1, tags)

	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, CloneTags(tags))
	}
}

// EmitWebhookDelivery records the outcome of a single webhook POST.
func EmitWebhookDelivery(sink statsd.Sink, status string, elapsed time.Duration, err error) {
	if sink == nil {
		return
	}

	result := ResultSuccess
	tags := map[string]string{"job_status": status}
	if err != nil {
		result = ResultError
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}
	tags["result"] = result

	sink.Count("webhook.delivery", 1, tags)
	if elapsed > 0 {
		sink.Timing("webhook.duration", elapsed, CloneTags(tags))
	}
}

// EmitSweep records one expiry sweep over the in-memory store and the number of jobs left behind.
func EmitSweep(sink statsd.Sink, deleted, retained int, elapsed time.Duration, err error) {
	if sink == nil {
		return
	}

	result := ResultSuccess
	switch {
	case err != nil:
		result = ResultError
	case deleted == 0:
		result = ResultNoop
	}

	tags := map[string]string{"result": result}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("sweeper.run", 1, tags)
	if deleted > 0 {
		sink.Count("sweeper.deleted", int64(deleted), nil)
	}
	if elapsed > 0 {
		sink.Timing("sweeper.duration", elapsed, CloneTags(tags))
	}
	if err == nil {
		sink.Gauge("sweeper.retained", float64(retained), nil)
		sink.Gauge("sweeper.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
