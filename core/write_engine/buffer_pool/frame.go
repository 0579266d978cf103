package bufferpool

import (
	"fmt"

	flushmanager "github.com/sushant-115/gojodb-bufferpool/core/write_engine/flush_manager"
	pagemanager "github.com/sushant-115/gojodb-bufferpool/core/write_engine/page_manager"
)

// FrameID is the index of a frame in the pool's frame array.
type FrameID int

// Frame is one cache slot. It owns a single page buffer for its lifetime and
// binds it to at most one page id at a time. All mutation happens under the
// pool latch.
type Frame struct {
	pageID         pagemanager.PageID
	page           *pagemanager.Page
	pinCount       int
	dirty          bool
	lastUnpinnedAt uint64
}

func newFrame(pageSize int) *Frame {
	return &Frame{
		pageID: pagemanager.InvalidPageID,
		page:   pagemanager.NewPage(pageSize),
	}
}

func (f *Frame) GetPageID() pagemanager.PageID { return f.pageID }
func (f *Frame) GetPage() *pagemanager.Page    { return f.page }
func (f *Frame) GetPinCount() int              { return f.pinCount }
func (f *Frame) IsDirty() bool                 { return f.dirty }
func (f *Frame) IsValid() bool                 { return f.pageID != pagemanager.InvalidPageID }
func (f *Frame) NotPinned() bool               { return f.pinCount == 0 }

// LastUnpinnedAt is the logical time the pin count last dropped to zero. It is
// 0 for an empty frame.
func (f *Frame) LastUnpinnedAt() uint64 { return f.lastUnpinnedAt }

func (f *Frame) pin() { f.pinCount++ }

// unpin releases one pin. now stamps the frame when the last pin goes away.
func (f *Frame) unpin(now uint64) error {
	if f.pinCount == 0 {
		return fmt.Errorf("%w: page %d", flushmanager.ErrPageNotPinned, f.pageID)
	}
	f.pinCount--
	if f.pinCount == 0 {
		f.lastUnpinnedAt = now
	}
	return nil
}

func (f *Frame) markDirty() { f.dirty = true }

func (f *Frame) bind(pageID pagemanager.PageID) {
	f.pageID = pageID
	f.dirty = false
}

// bindEmpty binds pageID without reading it; the buffer is zeroed.
func (f *Frame) bindEmpty(pageID pagemanager.PageID) {
	f.page.Reset()
	f.bind(pageID)
}

// writeBack writes the page out if it is dirty. On failure the frame keeps its
// dirty flag so the content is not lost.
func (f *Frame) writeBack(store flushmanager.PageStore) (bool, error) {
	if !f.IsValid() || !f.dirty {
		return false, nil
	}
	if err := store.WritePage(f.pageID, f.page.GetData()); err != nil {
		return false, fmt.Errorf("%w: writing page %d: %w", flushmanager.ErrIO, f.pageID, err)
	}
	f.dirty = false
	return true, nil
}

// load reads pageID into the buffer and binds it. On failure the frame stays
// unbound.
func (f *Frame) load(store flushmanager.PageStore, pageID pagemanager.PageID) error {
	if err := store.ReadPage(pageID, f.page.GetData()); err != nil {
		return fmt.Errorf("%w: reading page %d: %w", flushmanager.ErrIO, pageID, err)
	}
	f.bind(pageID)
	return nil
}

// empty unbinds the frame without writing anything.
func (f *Frame) empty() {
	f.pageID = pagemanager.InvalidPageID
	f.pinCount = 0
	f.dirty = false
	f.lastUnpinnedAt = 0
}

// free drops the page and deallocates its id. The caller may hold one pin.
// The frame is emptied before the store deallocates the id.
func (f *Frame) free(store flushmanager.PageStore) error {
	if f.pinCount > 1 {
		return fmt.Errorf("%w: page %d has %d pins", flushmanager.ErrPagePinned, f.pageID, f.pinCount)
	}
	pageID := f.pageID
	f.empty()
	if err := store.DeallocatePage(pageID, 1); err != nil {
		return fmt.Errorf("%w: deallocating page %d: %w", flushmanager.ErrIO, pageID, err)
	}
	return nil
}
