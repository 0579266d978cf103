package flushmanager

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/ncw/directio"
	pagemanager "github.com/sushant-115/gojodb-bufferpool/core/write_engine/page_manager"
)

// blockDevice is the byte-addressable medium a blockStore lays pages over.
type blockDevice interface {
	io.ReaderAt
	io.WriterAt
}

// blockStore implements PageStore over a blockDevice. Page 0 is reserved, so
// numPages is always at least 1 and data pages start at id 1.
type blockStore struct {
	mu       sync.Mutex
	dev      blockDevice
	pageSize int
	numPages uint64
	free     *freeList
	scratch  []byte // aligned staging buffer, guarded by mu
	closed   bool

	reads  atomic.Int64
	writes atomic.Int64
}

func newBlockStore(dev blockDevice, pageSize int) *blockStore {
	return &blockStore{
		dev:      dev,
		pageSize: pageSize,
		numPages: 1,
		free:     newFreeList(),
		scratch:  directio.AlignedBlock(pageSize),
	}
}

// AllocatePage reserves count contiguous pages, reusing the lowest free run when
// one is long enough and extending the store otherwise. Reserved pages read as
// zeros until written.
func (bs *blockStore) AllocatePage(count int) (pagemanager.PageID, error) {
	if count < 1 {
		return pagemanager.InvalidPageID, fmt.Errorf("%w: allocation count %d", ErrInvalidArgument, count)
	}
	bs.mu.Lock()
	defer bs.mu.Unlock()
	if bs.closed {
		return pagemanager.InvalidPageID, ErrStoreClosed
	}

	first, reused := bs.free.take(count)
	if !reused {
		first = pagemanager.PageID(bs.numPages)
	}

	clear(bs.scratch)
	for i := 0; i < count; i++ {
		pageID := first + pagemanager.PageID(i)
		if _, err := bs.dev.WriteAt(bs.scratch, bs.offset(pageID)); err != nil {
			if reused {
				bs.free.release(first, count)
			}
			return pagemanager.InvalidPageID, fmt.Errorf("%w: zeroing page %d: %v", ErrIO, pageID, err)
		}
	}
	if !reused {
		bs.numPages += uint64(count)
	}
	return first, nil
}

// DeallocatePage returns a run of pages to the free list.
func (bs *blockStore) DeallocatePage(pageID pagemanager.PageID, count int) error {
	if count < 1 || pageID == pagemanager.InvalidPageID {
		return fmt.Errorf("%w: deallocate %d page(s) at %d", ErrInvalidArgument, count, pageID)
	}
	bs.mu.Lock()
	defer bs.mu.Unlock()
	if bs.closed {
		return ErrStoreClosed
	}
	if uint64(pageID)+uint64(count) > bs.numPages {
		return fmt.Errorf("%w: run %d+%d, store has %d pages", ErrPageOutOfBounds, pageID, count, bs.numPages)
	}
	bs.free.release(pageID, count)
	return nil
}

func (bs *blockStore) ReadPage(pageID pagemanager.PageID, pageData []byte) error {
	if len(pageData) != bs.pageSize {
		return fmt.Errorf("%w: buffer is %d bytes, page size is %d", ErrInvalidPageData, len(pageData), bs.pageSize)
	}
	bs.mu.Lock()
	defer bs.mu.Unlock()
	if err := bs.checkLiveInternal(pageID); err != nil {
		return err
	}
	if err := bs.readRawInternal(pageID); err != nil {
		return err
	}
	copy(pageData, bs.scratch)
	bs.reads.Add(1)
	return nil
}

func (bs *blockStore) WritePage(pageID pagemanager.PageID, pageData []byte) error {
	if len(pageData) != bs.pageSize {
		return fmt.Errorf("%w: buffer is %d bytes, page size is %d", ErrInvalidPageData, len(pageData), bs.pageSize)
	}
	bs.mu.Lock()
	defer bs.mu.Unlock()
	if err := bs.checkLiveInternal(pageID); err != nil {
		return err
	}
	copy(bs.scratch, pageData)
	if err := bs.writeRawInternal(pageID); err != nil {
		return err
	}
	bs.writes.Add(1)
	return nil
}

// NumPages returns the size of the store in pages, header page included.
func (bs *blockStore) NumPages() uint64 {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return bs.numPages
}

// FreePages returns how many deallocated pages are waiting for reuse.
func (bs *blockStore) FreePages() int {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return bs.free.len()
}

// IOStats returns the number of successful page reads and writes.
func (bs *blockStore) IOStats() (reads, writes int64) {
	return bs.reads.Load(), bs.writes.Load()
}

func (bs *blockStore) GetPageSize() int { return bs.pageSize }

// checkLiveInternal must be called with bs.mu held.
func (bs *blockStore) checkLiveInternal(pageID pagemanager.PageID) error {
	switch {
	case bs.closed:
		return ErrStoreClosed
	case pageID == pagemanager.InvalidPageID:
		return fmt.Errorf("%w: page %d is reserved", ErrInvalidArgument, pageID)
	case uint64(pageID) >= bs.numPages:
		return fmt.Errorf("%w: page %d, store has %d pages", ErrPageOutOfBounds, pageID, bs.numPages)
	case bs.free.contains(pageID):
		return fmt.Errorf("%w: page %d", ErrPageDeallocated, pageID)
	}
	return nil
}

// readRawInternal reads pageID into bs.scratch. Must be called with bs.mu held.
func (bs *blockStore) readRawInternal(pageID pagemanager.PageID) error {
	n, err := bs.dev.ReadAt(bs.scratch, bs.offset(pageID))
	if err != nil && !(errors.Is(err, io.EOF) && n == bs.pageSize) {
		return fmt.Errorf("%w: reading page %d: %v", ErrIO, pageID, err)
	}
	return nil
}

// writeRawInternal writes bs.scratch to pageID. Must be called with bs.mu held.
func (bs *blockStore) writeRawInternal(pageID pagemanager.PageID) error {
	if _, err := bs.dev.WriteAt(bs.scratch, bs.offset(pageID)); err != nil {
		return fmt.Errorf("%w: writing page %d: %v", ErrIO, pageID, err)
	}
	return nil
}

func (bs *blockStore) offset(pageID pagemanager.PageID) int64 {
	return int64(pageID) * int64(bs.pageSize)
}
