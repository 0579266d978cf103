package pagemanager

import (
	"sync"

	"github.com/ncw/directio"
)

// --- Page Management ---

const (
	// InvalidPageID never names a data page. Page 0 of a file-backed store holds
	// its header, so allocation starts at 1.
	InvalidPageID PageID = 0

	// PageSize is the default size of a disk page in bytes.
	PageSize = 4096
)

// PageID represents a unique identifier for a page on disk.
type PageID uint64

// GetID returns the raw numeric id.
func (p PageID) GetID() uint64 { return uint64(p) }

// IsValid reports whether p can name a data page.
func (p PageID) IsValid() bool { return p != InvalidPageID }

// Page is a fixed-size in-memory buffer holding the contents of one disk page.
// The buffer is allocated once and reused for every page a frame holds over its
// lifetime. Its contents are opaque to the buffer pool.
type Page struct {
	data []byte

	// latch protects the in-memory contents of this page. The buffer pool never
	// takes it; callers holding a pin coordinate through it.
	latch sync.RWMutex
}

// NewPage creates a new zeroed Page of the given size. The buffer is aligned so
// it can be handed to a store opened with O_DIRECT.
func NewPage(size int) *Page {
	if size <= 0 {
		size = PageSize
	}
	return &Page{data: directio.AlignedBlock(size)}
}

// Reset zeroes the page contents.
func (p *Page) Reset() {
	clear(p.data)
}

func (p *Page) GetData() []byte { return p.data }
func (p *Page) Size() int       { return len(p.data) }

// SetData copies newData into the page, truncating to the page size.
func (p *Page) SetData(newData []byte) int { return copy(p.data, newData) }

// RLock acquires a read (shared) latch on the page.
func (p *Page) RLock() {
	p.latch.RLock()
}

// RUnlock releases a read (shared) latch on the page.
func (p *Page) RUnlock() {
	p.latch.RUnlock()
}

// Lock acquires a write (exclusive) latch on the page.
func (p *Page) Lock() {
	p.latch.Lock()
}

func (p *Page) TryLock() bool {
	return p.latch.TryLock()
}

// Unlock releases a write (exclusive) latch on the page.
func (p *Page) Unlock() {
	p.latch.Unlock()
}
