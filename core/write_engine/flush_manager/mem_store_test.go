package flushmanager

import (
	"bytes"
	"testing"

	pagemanager "github.com/sushant-115/gojodb-bufferpool/core/write_engine/page_manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPageSize = 512

func pageOf(b byte) []byte {
	return bytes.Repeat([]byte{b}, testPageSize)
}

func TestMemStore_AllocateReadWrite(t *testing.T) {
	ms := NewMemStore(testPageSize)

	first, err := ms.AllocatePage(3)
	require.NoError(t, err)
	assert.Equal(t, pagemanager.PageID(1), first, "page 0 is reserved")
	assert.Equal(t, uint64(4), ms.NumPages())

	buf := make([]byte, testPageSize)
	require.NoError(t, ms.ReadPage(2, buf))
	assert.Equal(t, make([]byte, testPageSize), buf, "fresh pages read as zeros")

	require.NoError(t, ms.WritePage(2, pageOf(0xAB)))
	require.NoError(t, ms.ReadPage(2, buf))
	assert.Equal(t, pageOf(0xAB), buf)

	reads, writes := ms.IOStats()
	assert.Equal(t, int64(2), reads)
	assert.Equal(t, int64(1), writes)
}

func TestMemStore_Errors(t *testing.T) {
	ms := NewMemStore(testPageSize)
	_, err := ms.AllocatePage(1)
	require.NoError(t, err)
	buf := make([]byte, testPageSize)

	t.Run("reserved page", func(t *testing.T) {
		assert.ErrorIs(t, ms.ReadPage(pagemanager.InvalidPageID, buf), ErrInvalidArgument)
		assert.ErrorIs(t, ms.DeallocatePage(pagemanager.InvalidPageID, 1), ErrInvalidArgument)
	})
	t.Run("out of bounds", func(t *testing.T) {
		assert.ErrorIs(t, ms.ReadPage(5, buf), ErrPageOutOfBounds)
		assert.ErrorIs(t, ms.WritePage(5, buf), ErrPageOutOfBounds)
		assert.ErrorIs(t, ms.DeallocatePage(1, 2), ErrPageOutOfBounds)
	})
	t.Run("wrong buffer size", func(t *testing.T) {
		assert.ErrorIs(t, ms.ReadPage(1, make([]byte, 10)), ErrInvalidPageData)
		assert.ErrorIs(t, ms.WritePage(1, make([]byte, 10)), ErrInvalidPageData)
	})
	t.Run("bad count", func(t *testing.T) {
		_, err := ms.AllocatePage(0)
		assert.ErrorIs(t, err, ErrInvalidArgument)
		assert.ErrorIs(t, ms.DeallocatePage(1, 0), ErrInvalidArgument)
	})
}

func TestMemStore_DeallocateAndReuse(t *testing.T) {
	ms := NewMemStore(testPageSize)
	first, err := ms.AllocatePage(4) // 1..4
	require.NoError(t, err)
	require.NoError(t, ms.WritePage(first+1, pageOf(0x11)))

	require.NoError(t, ms.DeallocatePage(first+1, 2)) // 2,3
	require.NoError(t, ms.DeallocatePage(first+1, 2), "deallocating twice is not an error")
	assert.Equal(t, 2, ms.FreePages())

	buf := make([]byte, testPageSize)
	assert.ErrorIs(t, ms.ReadPage(first+1, buf), ErrPageDeallocated)
	assert.ErrorIs(t, ms.WritePage(first+2, buf), ErrPageDeallocated)

	// A run of three does not fit the hole, so the store grows.
	id, err := ms.AllocatePage(3)
	require.NoError(t, err)
	assert.Equal(t, pagemanager.PageID(5), id)

	// A run of two reuses the hole and comes back zeroed.
	id, err = ms.AllocatePage(2)
	require.NoError(t, err)
	assert.Equal(t, first+1, id)
	require.NoError(t, ms.ReadPage(id, buf))
	assert.Equal(t, make([]byte, testPageSize), buf)
	assert.Zero(t, ms.FreePages())
}

func TestMemStore_Close(t *testing.T) {
	ms := NewMemStore(testPageSize)
	require.NoError(t, ms.Close())
	_, err := ms.AllocatePage(1)
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.ErrorIs(t, ms.ReadPage(1, make([]byte, testPageSize)), ErrStoreClosed)
}
