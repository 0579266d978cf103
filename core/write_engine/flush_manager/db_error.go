package flushmanager

import "errors"

// --- Error Definitions ---

var (
	// Buffer pool errors.
	ErrBufferPoolFull  = errors.New("buffer pool is full and no pages can be evicted")
	ErrPageNotFound    = errors.New("page not found in buffer pool")
	ErrPageNotPinned   = errors.New("page is not pinned")
	ErrPagePinned      = errors.New("page is pinned and cannot be evicted")
	ErrPoolClosed      = errors.New("buffer pool is closed")
	ErrInvalidArgument = errors.New("invalid argument")

	// Page store errors.
	ErrIO              = errors.New("i/o error")
	ErrInvalidPageData = errors.New("invalid page data")
	ErrPageOutOfBounds = errors.New("page id beyond end of store")
	ErrPageDeallocated = errors.New("page is deallocated")
	ErrDBFileExists    = errors.New("database file already exists")
	ErrDBFileNotFound  = errors.New("database file not found")
	ErrBadFileHeader   = errors.New("database file header is invalid")
	ErrStoreClosed     = errors.New("page store is closed")
)
