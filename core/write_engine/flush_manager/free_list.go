package flushmanager

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	pagemanager "github.com/sushant-115/gojodb-bufferpool/core/write_engine/page_manager"
)

// freeList tracks deallocated page ids so allocation can reuse them. It is kept
// in memory only; a reopened store starts with an empty list.
type freeList struct {
	ids mapset.Set[pagemanager.PageID]
}

func newFreeList() *freeList {
	// Callers serialize access under the store mutex.
	return &freeList{ids: mapset.NewThreadUnsafeSet[pagemanager.PageID]()}
}

func (fl *freeList) contains(pageID pagemanager.PageID) bool {
	return fl.ids.Contains(pageID)
}

func (fl *freeList) len() int {
	return fl.ids.Cardinality()
}

func (fl *freeList) release(start pagemanager.PageID, count int) {
	for i := 0; i < count; i++ {
		fl.ids.Add(start + pagemanager.PageID(i))
	}
}

// take removes and returns the lowest run of count consecutive free ids.
func (fl *freeList) take(count int) (pagemanager.PageID, bool) {
	if fl.ids.Cardinality() < count {
		return pagemanager.InvalidPageID, false
	}
	sorted := fl.ids.ToSlice()
	slices.Sort(sorted)

	runStart, runLen := 0, 0
	for i, id := range sorted {
		if i > 0 && id == sorted[i-1]+1 {
			runLen++
		} else {
			runStart, runLen = i, 1
		}
		if runLen == count {
			first := sorted[runStart]
			for _, used := range sorted[runStart : i+1] {
				fl.ids.Remove(used)
			}
			return first, true
		}
	}
	return pagemanager.InvalidPageID, false
}
