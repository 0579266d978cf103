package flushmanager

import (
	pagemanager "github.com/sushant-115/gojodb-bufferpool/core/write_engine/page_manager"
)

//go:generate mockgen -source=page_store.go -destination=mock_flushmanager/page_store_mock.go -package=mock_flushmanager

// PageStore is the persistent page space behind a buffer pool.
type PageStore interface {
	// AllocatePage reserves count contiguous page ids and returns the first.
	AllocatePage(count int) (pagemanager.PageID, error)
	// DeallocatePage releases the run of count pages starting at pageID.
	// Releasing an already released run is not an error.
	DeallocatePage(pageID pagemanager.PageID, count int) error
	// ReadPage fills pageData with the stored contents of pageID.
	ReadPage(pageID pagemanager.PageID, pageData []byte) error
	// WritePage persists pageData as the contents of pageID.
	WritePage(pageID pagemanager.PageID, pageData []byte) error
}

// Syncer is implemented by stores that buffer writes.
type Syncer interface {
	Sync() error
}
