package flushmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTracedStore_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	ts := NewTracedStore(NewMemStore(testPageSize), provider.Tracer("test"))

	id, err := ts.AllocatePage(1)
	require.NoError(t, err)
	require.NoError(t, ts.WritePage(id, pageOf(7)))
	require.NoError(t, ts.ReadPage(id, make([]byte, testPageSize)))
	require.NoError(t, ts.DeallocatePage(id, 1))
	require.NoError(t, ts.Sync(), "MemStore has nothing to sync")

	err = ts.ReadPage(id, make([]byte, testPageSize))
	require.ErrorIs(t, err, ErrPageDeallocated)

	spans := recorder.Ended()
	require.Len(t, spans, 5)
	names := make([]string, 0, len(spans))
	for _, s := range spans {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{
		"PageStore.AllocatePage",
		"PageStore.WritePage",
		"PageStore.ReadPage",
		"PageStore.DeallocatePage",
		"PageStore.ReadPage",
	}, names)
	assert.Equal(t, codes.Error, spans[4].Status().Code)
	assert.Equal(t, codes.Unset, spans[2].Status().Code)
}

func TestTracedStore_SyncForwards(t *testing.T) {
	dm, _ := setupDiskManager(t)
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	ts := NewTracedStore(dm, provider.Tracer("test"))

	require.NoError(t, ts.Sync())
	require.Len(t, recorder.Ended(), 1)
	assert.Equal(t, "PageStore.Sync", recorder.Ended()[0].Name())
}
