package bufferpool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	flushmanager "github.com/sushant-115/gojodb-bufferpool/core/write_engine/flush_manager"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestBufferPoolManager_ExportsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	store := flushmanager.NewMemStore(testPageSize)
	_, err := store.AllocatePage(3)
	require.NoError(t, err)
	bpm, err := NewBufferPoolManager(store, Options{
		PoolSize: 2,
		PageSize: testPageSize,
		Meter:    provider.Meter("bufferpool-test"),
	})
	require.NoError(t, err)

	h, err := bpm.PinPage(1, false)
	require.NoError(t, err)
	require.NoError(t, h.Release(true))
	pinUnpin(t, bpm, 1, 2)
	held, err := bpm.PinPage(3, false) // evicts page 1, which is dirty
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	values := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					values[m.Name] += dp.Value
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					values[m.Name] += dp.Value
				}
			}
		}
	}

	assert.Equal(t, int64(4), values["gojodb.bufferpool.pin_requests"])
	assert.Equal(t, int64(3), values["gojodb.bufferpool.misses"])
	assert.Equal(t, int64(1), values["gojodb.bufferpool.dirty_writes"])
	assert.Equal(t, int64(1), values["gojodb.bufferpool.evictions"])
	assert.Equal(t, int64(1), values["gojodb.bufferpool.unpinned_frames"])
	require.NoError(t, held.Release(false))
}
