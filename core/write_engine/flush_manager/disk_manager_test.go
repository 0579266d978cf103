package flushmanager

import (
	"os"
	"path/filepath"
	"testing"

	pagemanager "github.com/sushant-115/gojodb-bufferpool/core/write_engine/page_manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupDiskManager creates a fresh database file in a temporary directory.
func setupDiskManager(t *testing.T) (*DiskManager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	dm, err := NewDiskManager(path, testPageSize, false)
	require.NoError(t, err)
	header, err := dm.OpenOrCreateFile(true)
	require.NoError(t, err)
	require.Equal(t, DBMagic, header.Magic)
	t.Cleanup(func() { _ = dm.Close() })
	return dm, path
}

func TestDiskManager_PersistsAcrossReopen(t *testing.T) {
	dm, path := setupDiskManager(t)

	first, err := dm.AllocatePage(2)
	require.NoError(t, err)
	require.Equal(t, pagemanager.PageID(1), first)
	require.NoError(t, dm.WritePage(first, pageOf(0x42)))
	require.NoError(t, dm.WritePage(first+1, pageOf(0x43)))
	require.NoError(t, dm.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(3*testPageSize), info.Size())

	reopened, err := NewDiskManager(path, testPageSize, false)
	require.NoError(t, err)
	header, err := reopened.OpenOrCreateFile(false)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, uint32(testPageSize), header.PageSize)
	assert.Equal(t, uint64(3), reopened.NumPages())

	buf := make([]byte, testPageSize)
	require.NoError(t, reopened.ReadPage(first+1, buf))
	assert.Equal(t, pageOf(0x43), buf)

	next, err := reopened.AllocatePage(1)
	require.NoError(t, err)
	assert.Equal(t, pagemanager.PageID(3), next)
}

func TestDiskManager_OpenModes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "modes.db")

	dm, err := NewDiskManager(path, testPageSize, false)
	require.NoError(t, err)
	_, err = dm.OpenOrCreateFile(false)
	assert.ErrorIs(t, err, ErrDBFileNotFound)

	_, err = dm.OpenOrCreateFile(true)
	require.NoError(t, err)
	require.NoError(t, dm.Close())
	require.NoError(t, dm.Close(), "second close is a no-op")

	again, err := NewDiskManager(path, testPageSize, false)
	require.NoError(t, err)
	_, err = again.OpenOrCreateFile(true)
	assert.ErrorIs(t, err, ErrDBFileExists)

	wrongSize, err := NewDiskManager(path, testPageSize*2, false)
	require.NoError(t, err)
	_, err = wrongSize.OpenOrCreateFile(false)
	assert.ErrorIs(t, err, ErrBadFileHeader)
}

func TestDiskManager_RejectsBadArguments(t *testing.T) {
	_, err := NewDiskManager("", testPageSize, false)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewDiskManager("x.db", 4, false)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewDiskManager("x.db", 1000, true)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDiskManager_NotOpen(t *testing.T) {
	dm, err := NewDiskManager(filepath.Join(t.TempDir(), "closed.db"), testPageSize, false)
	require.NoError(t, err)

	_, err = dm.AllocatePage(1)
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.ErrorIs(t, dm.Sync(), ErrStoreClosed)
}

func TestDiskManager_Sync(t *testing.T) {
	dm, _ := setupDiskManager(t)
	id, err := dm.AllocatePage(1)
	require.NoError(t, err)
	require.NoError(t, dm.WritePage(id, pageOf(1)))
	require.NoError(t, dm.Sync())
}
