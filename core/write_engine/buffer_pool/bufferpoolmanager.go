package bufferpool

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sasha-s/go-deadlock"
	flushmanager "github.com/sushant-115/gojodb-bufferpool/core/write_engine/flush_manager"
	pagemanager "github.com/sushant-115/gojodb-bufferpool/core/write_engine/page_manager"
	internaltelemetry "github.com/sushant-115/gojodb-bufferpool/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Options configures a BufferPoolManager.
type Options struct {
	// PoolSize is the number of frames. Must be at least 1.
	PoolSize int
	// PageSize defaults to pagemanager.PageSize.
	PageSize int
	// Replacer is the replacement policy name ("lru" or "clock"). Ignored when
	// ReplacerFactory is set.
	Replacer        string
	ReplacerFactory ReplacerFactory
	Logger          *zap.Logger
	// DetectDeadlocks backs the pool latch with a go-deadlock mutex. Off by
	// default: a report from go-deadlock ends the process.
	DetectDeadlocks bool
	// Meter receives the pool metrics. A no-op meter is used when nil.
	Meter metric.Meter
}

// Stats is a snapshot of the pool counters.
type Stats struct {
	PinRequests int64
	Misses      int64
	DirtyWrites int64
}

// BufferPoolManager caches store pages in a fixed set of frames. A single latch
// serializes lookups, victim selection, binding and eviction; store i/o for a
// miss or a flush runs while it is held.
type BufferPoolManager struct {
	id        string
	store     flushmanager.PageStore
	frames    []*Frame
	replacer  Replacer
	pageTable *xsync.MapOf[pagemanager.PageID, FrameID]
	pageSize  int

	mu     sync.Locker
	clock  uint64 // logical time for unpin stamps, advanced under mu
	closed bool

	totalPinRequests   int64
	totalMisses        int64
	numDirtyPageWrites int64

	logger      *zap.Logger
	metrics     *internaltelemetry.BufferPoolMetrics
	metricAttrs metric.MeasurementOption
}

// NewBufferPoolManager creates a pool of opts.PoolSize empty frames over store.
func NewBufferPoolManager(store flushmanager.PageStore, opts Options) (*BufferPoolManager, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: page store cannot be nil", flushmanager.ErrInvalidArgument)
	}
	if opts.PoolSize < 1 {
		return nil, fmt.Errorf("%w: pool size %d", flushmanager.ErrInvalidArgument, opts.PoolSize)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = pagemanager.PageSize
	}
	factory := opts.ReplacerFactory
	if factory == nil {
		var err error
		if factory, err = ReplacerByName(opts.Replacer); err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	meter := opts.Meter
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("")
	}

	id := uuid.New().String()
	var latch sync.Locker = &sync.Mutex{}
	if opts.DetectDeadlocks {
		latch = &deadlock.Mutex{}
	}

	bpm := &BufferPoolManager{
		id:          id,
		mu:          latch,
		store:       store,
		frames:      make([]*Frame, opts.PoolSize),
		pageTable:   xsync.NewMapOf[pagemanager.PageID, FrameID](),
		pageSize:    opts.PageSize,
		logger:      logger.Named("buffer_pool").With(zap.String("pool_id", id)),
		metricAttrs: metric.WithAttributes(attribute.String("pool_id", id)),
	}
	for i := range bpm.frames {
		bpm.frames[i] = newFrame(opts.PageSize)
	}
	bpm.replacer = factory(bpm.frames)

	metrics, err := internaltelemetry.NewBufferPoolMetrics(meter, func() int64 {
		return int64(bpm.CountUnpinnedFrames())
	}, bpm.metricAttrs)
	if err != nil {
		return nil, fmt.Errorf("failed to register buffer pool metrics: %w", err)
	}
	bpm.metrics = metrics

	bpm.logger.Info("BufferPoolManager initialized",
		zap.Int("pool_size", opts.PoolSize),
		zap.Int("page_size", opts.PageSize))
	return bpm, nil
}

// PinPage makes pageID resident and pins it. With isEmpty set the page is not
// read; the frame is bound to a zeroed buffer instead. The returned handle must
// be released (or the page unpinned) exactly once.
func (bpm *BufferPoolManager) PinPage(pageID pagemanager.PageID, isEmpty bool) (*PageHandle, error) {
	if pageID == pagemanager.InvalidPageID {
		return nil, fmt.Errorf("%w: cannot pin the invalid page id", flushmanager.ErrInvalidArgument)
	}
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	if bpm.closed {
		return nil, flushmanager.ErrPoolClosed
	}
	return bpm.pinPageInternal(pageID, isEmpty)
}

// pinPageInternal must be called with bpm.mu held.
func (bpm *BufferPoolManager) pinPageInternal(pageID pagemanager.PageID, isEmpty bool) (*PageHandle, error) {
	ctx := context.Background()
	bpm.totalPinRequests++
	bpm.metrics.PinRequestsCounter.Add(ctx, 1, bpm.metricAttrs)

	if frameID, ok := bpm.pageTable.Load(pageID); ok {
		frame := bpm.frames[frameID]
		frame.pin()
		bpm.logger.Debug("Page hit", zap.Uint64("page_id", uint64(pageID)), zap.Int("frame", int(frameID)), zap.Int("pin_count", frame.GetPinCount()))
		return newPageHandle(bpm, pageID, frame.GetPage()), nil
	}

	bpm.totalMisses++
	bpm.metrics.MissesCounter.Add(ctx, 1, bpm.metricAttrs)

	frameID, ok := bpm.replacer.PickVictim()
	if !ok {
		bpm.logger.Warn("Buffer pool is full, all frames pinned", zap.Uint64("page_id", uint64(pageID)))
		return nil, fmt.Errorf("%w: cannot bring in page %d", flushmanager.ErrBufferPoolFull, pageID)
	}
	if err := bpm.evictInternal(frameID); err != nil {
		return nil, err
	}

	frame := bpm.frames[frameID]
	if isEmpty {
		frame.bindEmpty(pageID)
	} else if err := frame.load(bpm.store, pageID); err != nil {
		bpm.logger.Error("Failed to read page", zap.Uint64("page_id", uint64(pageID)), zap.Error(err))
		return nil, err
	}
	frame.pin()
	bpm.pageTable.Store(pageID, frameID)
	bpm.logger.Debug("Page loaded", zap.Uint64("page_id", uint64(pageID)), zap.Int("frame", int(frameID)), zap.Bool("empty", isEmpty))
	return newPageHandle(bpm, pageID, frame.GetPage()), nil
}

// evictInternal empties frameID, writing it back first when dirty. If the write
// fails the frame keeps its page and stays dirty. Must be called with bpm.mu held.
func (bpm *BufferPoolManager) evictInternal(frameID FrameID) error {
	frame := bpm.frames[frameID]
	if !frame.IsValid() {
		return nil
	}
	victimID := frame.GetPageID()
	if err := bpm.writeBackInternal(frame); err != nil {
		bpm.logger.Error("Failed to flush dirty victim", zap.Uint64("page_id", uint64(victimID)), zap.Int("frame", int(frameID)), zap.Error(err))
		return err
	}
	bpm.pageTable.Delete(victimID)
	frame.empty()
	bpm.metrics.EvictionsCounter.Add(context.Background(), 1, bpm.metricAttrs)
	bpm.logger.Debug("Evicted page", zap.Uint64("page_id", uint64(victimID)), zap.Int("frame", int(frameID)))
	return nil
}

// writeBackInternal must be called with bpm.mu held.
func (bpm *BufferPoolManager) writeBackInternal(frame *Frame) error {
	wrote, err := frame.writeBack(bpm.store)
	if err != nil {
		return err
	}
	if wrote {
		bpm.numDirtyPageWrites++
		bpm.metrics.DirtyWritesCounter.Add(context.Background(), 1, bpm.metricAttrs)
	}
	return nil
}

// UnpinPage releases one pin on pageID and, if isDirty is set, marks it dirty.
// A dirty mark sticks until the page is written back.
func (bpm *BufferPoolManager) UnpinPage(pageID pagemanager.PageID, isDirty bool) error {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	if bpm.closed {
		return flushmanager.ErrPoolClosed
	}
	frameID, ok := bpm.pageTable.Load(pageID)
	if !ok {
		return fmt.Errorf("%w: page %d not found to unpin", flushmanager.ErrPageNotFound, pageID)
	}
	frame := bpm.frames[frameID]
	now := bpm.clock + 1
	if err := frame.unpin(now); err != nil {
		bpm.logger.Warn("Attempted to unpin page with pin count 0", zap.Uint64("page_id", uint64(pageID)))
		return err
	}
	// The clock only moves when a stamp was taken.
	if frame.NotPinned() {
		bpm.clock = now
	}
	if isDirty {
		frame.markDirty()
	}
	return nil
}

// NewPage allocates howMany contiguous pages and pins the first one as an empty
// page. If the pin fails the whole run is handed back to the store.
func (bpm *BufferPoolManager) NewPage(howMany int) (pagemanager.PageID, *PageHandle, error) {
	if howMany < 1 {
		return pagemanager.InvalidPageID, nil, fmt.Errorf("%w: page count %d", flushmanager.ErrInvalidArgument, howMany)
	}
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	if bpm.closed {
		return pagemanager.InvalidPageID, nil, flushmanager.ErrPoolClosed
	}

	firstID, err := bpm.store.AllocatePage(howMany)
	if err != nil {
		return pagemanager.InvalidPageID, nil, fmt.Errorf("%w: allocating %d page(s): %w", flushmanager.ErrIO, howMany, err)
	}

	handle, err := bpm.pinPageInternal(firstID, true)
	if err != nil {
		if derr := bpm.store.DeallocatePage(firstID, howMany); derr != nil {
			bpm.logger.Error("Failed to roll back page allocation", zap.Uint64("page_id", uint64(firstID)), zap.Int("count", howMany), zap.Error(derr))
			err = multierr.Append(err, fmt.Errorf("%w: rolling back %d page(s) at %d: %w", flushmanager.ErrIO, howMany, firstID, derr))
		}
		return pagemanager.InvalidPageID, nil, err
	}
	bpm.logger.Debug("Allocated new page", zap.Uint64("page_id", uint64(firstID)), zap.Int("count", howMany))
	return firstID, handle, nil
}

// FreePage discards pageID from the pool and deallocates it in the store. A
// resident page may carry at most one pin, taken to be the caller's.
func (bpm *BufferPoolManager) FreePage(pageID pagemanager.PageID) error {
	if pageID == pagemanager.InvalidPageID {
		return fmt.Errorf("%w: cannot free the invalid page id", flushmanager.ErrInvalidArgument)
	}
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	if bpm.closed {
		return flushmanager.ErrPoolClosed
	}

	frameID, ok := bpm.pageTable.Load(pageID)
	if !ok {
		if err := bpm.store.DeallocatePage(pageID, 1); err != nil {
			return fmt.Errorf("%w: deallocating page %d: %w", flushmanager.ErrIO, pageID, err)
		}
		return nil
	}

	frame := bpm.frames[frameID]
	err := frame.free(bpm.store)
	if !frame.IsValid() {
		bpm.pageTable.Delete(pageID)
	}
	if err != nil {
		bpm.logger.Warn("Failed to free page", zap.Uint64("page_id", uint64(pageID)), zap.Error(err))
	}
	return err
}

// FlushPage writes pageID back if dirty and then removes it from the pool. A
// pinned page is refused unless ignorePinned is set.
func (bpm *BufferPoolManager) FlushPage(pageID pagemanager.PageID, ignorePinned bool) error {
	if pageID == pagemanager.InvalidPageID {
		return fmt.Errorf("%w: cannot flush the invalid page id", flushmanager.ErrInvalidArgument)
	}
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	if bpm.closed {
		return flushmanager.ErrPoolClosed
	}

	frameID, ok := bpm.pageTable.Load(pageID)
	if !ok {
		return fmt.Errorf("%w: page %d not found to flush", flushmanager.ErrPageNotFound, pageID)
	}
	frame := bpm.frames[frameID]
	if !frame.NotPinned() && !ignorePinned {
		return fmt.Errorf("%w: page %d has %d pins", flushmanager.ErrPagePinned, pageID, frame.GetPinCount())
	}
	if err := bpm.writeBackInternal(frame); err != nil {
		bpm.logger.Error("Failed to flush page", zap.Uint64("page_id", uint64(pageID)), zap.Error(err))
		return err
	}
	bpm.pageTable.Delete(pageID)
	frame.empty()
	return nil
}

// FlushAllPages writes back and empties every resident page, pinned or not.
// The sweep does not stop at the first problem: pages still pinned and failed
// writes are all reported in the returned error, and a page whose write failed
// stays resident and dirty. The store is synced afterwards if it supports it.
func (bpm *BufferPoolManager) FlushAllPages() error {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	if bpm.closed {
		return flushmanager.ErrPoolClosed
	}

	var errs error
	for i, frame := range bpm.frames {
		if !frame.IsValid() {
			continue
		}
		pageID := frame.GetPageID()
		if !frame.NotPinned() {
			errs = multierr.Append(errs, fmt.Errorf("%w: page %d had %d pins during flush", flushmanager.ErrPagePinned, pageID, frame.GetPinCount()))
		}
		if err := bpm.writeBackInternal(frame); err != nil {
			bpm.logger.Error("Error flushing page", zap.Uint64("page_id", uint64(pageID)), zap.Int("frame", i), zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}
		bpm.pageTable.Delete(pageID)
		frame.empty()
	}
	errs = multierr.Append(errs, bpm.syncStoreInternal())
	bpm.logger.Debug("Finished FlushAllPages", zap.Error(errs))
	return errs
}

// syncStoreInternal must be called with bpm.mu held.
func (bpm *BufferPoolManager) syncStoreInternal() error {
	syncer, ok := bpm.store.(flushmanager.Syncer)
	if !ok {
		return nil
	}
	if err := syncer.Sync(); err != nil {
		return fmt.Errorf("%w: syncing store: %w", flushmanager.ErrIO, err)
	}
	return nil
}

// CountUnpinnedFrames returns the number of frames that are empty or hold an
// unpinned page.
func (bpm *BufferPoolManager) CountUnpinnedFrames() int {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	n := 0
	for _, frame := range bpm.frames {
		if !frame.IsValid() || frame.NotPinned() {
			n++
		}
	}
	return n
}

// GetStats returns the pin request and miss counters.
func (bpm *BufferPoolManager) GetStats() (pinRequests, misses int64) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	return bpm.totalPinRequests, bpm.totalMisses
}

func (bpm *BufferPoolManager) Stats() Stats {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	return Stats{
		PinRequests: bpm.totalPinRequests,
		Misses:      bpm.totalMisses,
		DirtyWrites: bpm.numDirtyPageWrites,
	}
}

// ResetStats zeroes all counters.
func (bpm *BufferPoolManager) ResetStats() {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	bpm.totalPinRequests = 0
	bpm.totalMisses = 0
	bpm.numDirtyPageWrites = 0
}

// PrintStats writes a human-readable counter report to w.
func (bpm *BufferPoolManager) PrintStats(w io.Writer) error {
	s := bpm.Stats()
	_, err := fmt.Fprintf(w,
		"**Buffer Manager Statistics**\n"+
			"Number of Dirty Pages Written to Disk: %d\n"+
			"Number of Pin Page Requests: %d\n"+
			"Number of Pin Page Request Misses: %d\n",
		s.DirtyWrites, s.PinRequests, s.Misses)
	return err
}

// IsResident reports whether pageID currently occupies a frame. It does not
// take the pool latch, so the answer may be stale by the time it is used.
func (bpm *BufferPoolManager) IsResident(pageID pagemanager.PageID) bool {
	_, ok := bpm.pageTable.Load(pageID)
	return ok
}

func (bpm *BufferPoolManager) GetPoolSize() int { return len(bpm.frames) }
func (bpm *BufferPoolManager) GetPageSize() int { return bpm.pageSize }
func (bpm *BufferPoolManager) GetID() string    { return bpm.id }

// Close writes back every dirty resident page and syncs the store. Pages stay
// resident but the pool rejects further calls. Failures are logged and returned;
// Close never panics. Closing twice is a no-op.
func (bpm *BufferPoolManager) Close() error {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	if bpm.closed {
		return nil
	}
	bpm.closed = true

	var errs error
	for _, frame := range bpm.frames {
		if err := bpm.writeBackInternal(frame); err != nil {
			errs = multierr.Append(errs, err)
		}
		if frame.IsValid() && !frame.NotPinned() {
			bpm.logger.Warn("Closing pool with pinned page", zap.Uint64("page_id", uint64(frame.GetPageID())), zap.Int("pin_count", frame.GetPinCount()))
		}
	}
	errs = multierr.Append(errs, bpm.syncStoreInternal())
	if errs != nil {
		bpm.logger.Error("Errors while closing buffer pool", zap.Errors("errors", multierr.Errors(errs)))
	}
	return errs
}

// WithPage pins pageID, runs fn on its contents under the page latch and
// unpins it, marking it dirty when fn reports a modification.
func (bpm *BufferPoolManager) WithPage(pageID pagemanager.PageID, fn func(data []byte) (dirty bool, err error)) (err error) {
	handle, err := bpm.PinPage(pageID, false)
	if err != nil {
		return err
	}
	dirty := false
	defer func() {
		err = multierr.Append(err, handle.Release(dirty))
	}()

	page := handle.Page()
	page.Lock()
	defer page.Unlock()
	dirty, err = fn(handle.Data())
	return err
}
