package internaltelemetry

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// BufferPoolMetrics holds all the metric instruments for a buffer pool.
type BufferPoolMetrics struct {
	PinRequestsCounter  metric.Int64Counter
	MissesCounter       metric.Int64Counter
	DirtyWritesCounter  metric.Int64Counter
	EvictionsCounter    metric.Int64Counter
	UnpinnedFramesGauge metric.Int64ObservableGauge
}

// NewBufferPoolMetrics creates and registers the buffer pool metrics. unpinned
// is polled on each collection to report the number of reusable frames.
func NewBufferPoolMetrics(meter metric.Meter, unpinned func() int64, opts ...metric.ObserveOption) (*BufferPoolMetrics, error) {
	pinRequestsCounter, err := meter.Int64Counter(
		"gojodb.bufferpool.pin_requests",
		metric.WithDescription("Total number of page pin requests."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	missesCounter, err := meter.Int64Counter(
		"gojodb.bufferpool.misses",
		metric.WithDescription("Pin requests that had to bring the page in from the store."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	dirtyWritesCounter, err := meter.Int64Counter(
		"gojodb.bufferpool.dirty_writes",
		metric.WithDescription("Dirty pages written back to the store."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	evictionsCounter, err := meter.Int64Counter(
		"gojodb.bufferpool.evictions",
		metric.WithDescription("Resident pages evicted to make room for another page."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	unpinnedFramesGauge, err := meter.Int64ObservableGauge(
		"gojodb.bufferpool.unpinned_frames",
		metric.WithDescription("Frames that are empty or hold an unpinned page."),
		metric.WithUnit("1"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(unpinned(), opts...)
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	return &BufferPoolMetrics{
		PinRequestsCounter:  pinRequestsCounter,
		MissesCounter:       missesCounter,
		DirtyWritesCounter:  dirtyWritesCounter,
		EvictionsCounter:    evictionsCounter,
		UnpinnedFramesGauge: unpinnedFramesGauge,
	}, nil
}
