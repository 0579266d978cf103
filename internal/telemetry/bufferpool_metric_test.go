package internaltelemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestBufferPoolMetrics_Collect(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	unpinned := int64(5)
	m, err := NewBufferPoolMetrics(provider.Meter("test"), func() int64 { return unpinned })
	require.NoError(t, err)

	ctx := context.Background()
	m.PinRequestsCounter.Add(ctx, 3)
	m.MissesCounter.Add(ctx, 2)
	m.DirtyWritesCounter.Add(ctx, 1)

	values := collectInt64(t, reader)
	assert.Equal(t, int64(3), values["gojodb.bufferpool.pin_requests"])
	assert.Equal(t, int64(2), values["gojodb.bufferpool.misses"])
	assert.Equal(t, int64(1), values["gojodb.bufferpool.dirty_writes"])
	assert.Equal(t, int64(5), values["gojodb.bufferpool.unpinned_frames"])

	unpinned = 2
	values = collectInt64(t, reader)
	assert.Equal(t, int64(2), values["gojodb.bufferpool.unpinned_frames"])
}

// collectInt64 reads every int64 sum and gauge from reader, summing data points.
func collectInt64(t *testing.T, reader sdkmetric.Reader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					out[m.Name] += dp.Value
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					out[m.Name] += dp.Value
				}
			}
		}
	}
	return out
}
