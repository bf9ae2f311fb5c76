// Package metrics records throttle decisions through OpenTelemetry.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/throttle/fetch"
)

// meterName is the instrumentation scope name for throttle metrics.
const meterName = "github.com/xraph/throttle"

// Compile-time interface check.
var _ fetch.Recorder = (*Recorder)(nil)

// Recorder implements fetch.Recorder with OTel counters.
//
// Instruments:
//   - throttle.jobs.admitted (Int64Counter): jobs that passed their
//     throttle check, with attributes queue, class
//   - throttle.jobs.throttled (Int64Counter): jobs rejected and
//     requeued, with attributes queue, class
type Recorder struct {
	admitted  metric.Int64Counter
	throttled metric.Int64Counter
}

// NewRecorder creates a Recorder using the global OTel MeterProvider.
// Without a configured provider the instruments are noops and recording
// is a pass-through.
func NewRecorder() *Recorder {
	return NewRecorderWithMeter(otel.Meter(meterName))
}

// NewRecorderWithMeter creates a Recorder with the provided meter.
// This variant allows injecting a specific MeterProvider for testing.
func NewRecorderWithMeter(meter metric.Meter) *Recorder {
	// Instruments are created once here. On error the OTel API returns
	// noop instruments, so the recorder degrades gracefully.
	admitted, aErr := meter.Int64Counter(
		"throttle.jobs.admitted",
		metric.WithDescription("Jobs that passed their throttle check"),
		metric.WithUnit("{job}"),
	)
	_ = aErr // noop fallback guaranteed by OTel API contract

	throttled, tErr := meter.Int64Counter(
		"throttle.jobs.throttled",
		metric.WithDescription("Jobs rejected by a limiter and requeued"),
		metric.WithUnit("{job}"),
	)
	_ = tErr // noop fallback guaranteed by OTel API contract

	return &Recorder{admitted: admitted, throttled: throttled}
}

// JobAdmitted implements fetch.Recorder.
func (r *Recorder) JobAdmitted(ctx context.Context, queue, class string) {
	r.admitted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("queue", queue),
		attribute.String("class", class),
	))
}

// JobThrottled implements fetch.Recorder.
func (r *Recorder) JobThrottled(ctx context.Context, queue, class string) {
	r.throttled.Add(ctx, 1, metric.WithAttributes(
		attribute.String("queue", queue),
		attribute.String("class", class),
	))
}
