package bufferpool

import (
	"fmt"
	"sync/atomic"

	flushmanager "github.com/sushant-115/gojodb-bufferpool/core/write_engine/flush_manager"
	pagemanager "github.com/sushant-115/gojodb-bufferpool/core/write_engine/page_manager"
)

// PageHandle is a borrowed view of a pinned page. It is valid until Release,
// which drops the pin it stands for.
type PageHandle struct {
	bpm      *BufferPoolManager
	pageID   pagemanager.PageID
	page     *pagemanager.Page
	released atomic.Bool
}

func newPageHandle(bpm *BufferPoolManager, pageID pagemanager.PageID, page *pagemanager.Page) *PageHandle {
	return &PageHandle{bpm: bpm, pageID: pageID, page: page}
}

func (h *PageHandle) PageID() pagemanager.PageID { return h.pageID }

// Data returns the page buffer, or nil once the handle is released.
func (h *PageHandle) Data() []byte {
	if h.released.Load() {
		return nil
	}
	return h.page.GetData()
}

// Page exposes the page latch for callers sharing the pin with others.
func (h *PageHandle) Page() *pagemanager.Page { return h.page }

// Release unpins the page, marking it dirty when requested. A second call fails
// without touching the pool.
func (h *PageHandle) Release(dirty bool) error {
	if !h.released.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: handle for page %d already released", flushmanager.ErrPageNotPinned, h.pageID)
	}
	return h.bpm.UnpinPage(h.pageID, dirty)
}
