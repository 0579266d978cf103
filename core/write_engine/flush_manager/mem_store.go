package flushmanager

import (
	"github.com/dsnet/golib/memfile"
)

// MemStore is a PageStore held entirely in memory. It follows the same page
// layout and allocation rules as DiskManager, which makes it a drop-in store for
// tests and for throwaway pools.
type MemStore struct {
	*blockStore
	file *memfile.File
}

func NewMemStore(pageSize int) *MemStore {
	file := memfile.New(make([]byte, pageSize)) // page 0 reserved
	return &MemStore{
		blockStore: newBlockStore(file, pageSize),
		file:       file,
	}
}

// Bytes returns the raw contents of the store, header page included.
func (ms *MemStore) Bytes() []byte {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]byte(nil), ms.file.Bytes()...)
}

// Close releases the backing memory. Later calls fail with ErrStoreClosed.
func (ms *MemStore) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.closed = true
	return ms.file.Truncate(0)
}
