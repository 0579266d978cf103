package flushmanager

import (
	"context"

	pagemanager "github.com/sushant-115/gojodb-bufferpool/core/write_engine/page_manager"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracedStore wraps a PageStore and records one span per store call.
type TracedStore struct {
	inner  PageStore
	tracer trace.Tracer
}

func NewTracedStore(inner PageStore, tracer trace.Tracer) *TracedStore {
	return &TracedStore{inner: inner, tracer: tracer}
}

func (ts *TracedStore) AllocatePage(count int) (pagemanager.PageID, error) {
	span := ts.start("PageStore.AllocatePage", attribute.Int("page.count", count))
	pageID, err := ts.inner.AllocatePage(count)
	span.SetAttributes(attribute.Int64("page.id", int64(pageID)))
	end(span, err)
	return pageID, err
}

func (ts *TracedStore) DeallocatePage(pageID pagemanager.PageID, count int) error {
	span := ts.start("PageStore.DeallocatePage", attribute.Int64("page.id", int64(pageID)), attribute.Int("page.count", count))
	err := ts.inner.DeallocatePage(pageID, count)
	end(span, err)
	return err
}

func (ts *TracedStore) ReadPage(pageID pagemanager.PageID, pageData []byte) error {
	span := ts.start("PageStore.ReadPage", attribute.Int64("page.id", int64(pageID)))
	err := ts.inner.ReadPage(pageID, pageData)
	end(span, err)
	return err
}

func (ts *TracedStore) WritePage(pageID pagemanager.PageID, pageData []byte) error {
	span := ts.start("PageStore.WritePage", attribute.Int64("page.id", int64(pageID)))
	err := ts.inner.WritePage(pageID, pageData)
	end(span, err)
	return err
}

// Sync forwards to the wrapped store when it implements Syncer.
func (ts *TracedStore) Sync() error {
	syncer, ok := ts.inner.(Syncer)
	if !ok {
		return nil
	}
	span := ts.start("PageStore.Sync")
	err := syncer.Sync()
	end(span, err)
	return err
}

func (ts *TracedStore) start(name string, attrs ...attribute.KeyValue) trace.Span {
	_, span := ts.tracer.Start(context.Background(), name, trace.WithAttributes(attrs...))
	return span
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
