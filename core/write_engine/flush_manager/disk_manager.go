package flushmanager

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/ncw/directio"
	pagemanager "github.com/sushant-115/gojodb-bufferpool/core/write_engine/page_manager"
)

// --- DiskManager ---

const (
	DBMagic           uint32 = 0x474f4a42 // "GOJB"
	DBFormatVersion   uint32 = 1
	MaxFilenameLength        = 1024

	dbFileHeaderSize = 12
)

// DBFileHeader is the content of page 0 of a database file.
type DBFileHeader struct {
	Magic    uint32
	Version  uint32
	PageSize uint32
}

func (h *DBFileHeader) encode(buf []byte) {
	clear(buf)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.PageSize)
}

func decodeHeader(buf []byte) DBFileHeader {
	return DBFileHeader{
		Magic:    binary.LittleEndian.Uint32(buf[0:4]),
		Version:  binary.LittleEndian.Uint32(buf[4:8]),
		PageSize: binary.LittleEndian.Uint32(buf[8:12]),
	}
}

// DiskManager is a PageStore backed by a single file. The page space is laid out
// as page-size slots; slot 0 holds the DBFileHeader.
type DiskManager struct {
	*blockStore

	filePath string
	file     *os.File
	directIO bool
}

// NewDiskManager validates its arguments. The file is not touched until
// OpenOrCreateFile.
func NewDiskManager(filePath string, pageSize int, directIO bool) (*DiskManager, error) {
	if len(filePath) == 0 || len(filePath) > MaxFilenameLength {
		return nil, fmt.Errorf("%w: file path %q", ErrInvalidArgument, filePath)
	}
	if pageSize < dbFileHeaderSize {
		return nil, fmt.Errorf("%w: page size %d", ErrInvalidArgument, pageSize)
	}
	if directIO && pageSize%directio.BlockSize != 0 {
		return nil, fmt.Errorf("%w: page size %d is not a multiple of the direct i/o block size %d", ErrInvalidArgument, pageSize, directio.BlockSize)
	}
	bs := newBlockStore(nil, pageSize)
	bs.closed = true
	return &DiskManager{
		blockStore: bs,
		filePath:   filePath,
		directIO:   directIO,
	}, nil
}

// OpenOrCreateFile opens an existing database file or creates a new one.
// With create set, an existing file is an error; without it, a missing file is.
func (dm *DiskManager) OpenOrCreateFile(create bool) (*DBFileHeader, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.file != nil {
		return nil, fmt.Errorf("%w: %s is already open", ErrInvalidArgument, dm.filePath)
	}

	_, statErr := os.Stat(dm.filePath)
	switch {
	case os.IsNotExist(statErr):
		if !create {
			return nil, fmt.Errorf("%w: %s", ErrDBFileNotFound, dm.filePath)
		}
		file, err := dm.openFile(os.O_RDWR | os.O_CREATE | os.O_EXCL)
		if err != nil {
			return nil, fmt.Errorf("%w: creating file %s: %v", ErrIO, dm.filePath, err)
		}
		dm.attachInternal(file, 1)

		header := DBFileHeader{Magic: DBMagic, Version: DBFormatVersion, PageSize: uint32(dm.pageSize)}
		header.encode(dm.scratch)
		if err := dm.writeRawInternal(pagemanager.InvalidPageID); err != nil {
			dm.detachInternal()
			_ = os.Remove(dm.filePath)
			return nil, fmt.Errorf("failed to write initial header: %w", err)
		}
		return &header, nil

	case statErr == nil:
		if create {
			return nil, fmt.Errorf("%w: %s", ErrDBFileExists, dm.filePath)
		}
		file, err := dm.openFile(os.O_RDWR)
		if err != nil {
			return nil, fmt.Errorf("%w: opening file %s: %v", ErrIO, dm.filePath, err)
		}
		info, err := file.Stat()
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("%w: stat %s: %v", ErrIO, dm.filePath, err)
		}
		numPages := uint64(info.Size()) / uint64(dm.pageSize)
		if numPages == 0 {
			_ = file.Close()
			return nil, fmt.Errorf("%w: %s is shorter than one page", ErrBadFileHeader, dm.filePath)
		}
		dm.attachInternal(file, numPages)

		if err := dm.readRawInternal(pagemanager.InvalidPageID); err != nil {
			dm.detachInternal()
			return nil, fmt.Errorf("failed to read database header: %w", err)
		}
		header := decodeHeader(dm.scratch)
		if header.Magic != DBMagic || header.Version != DBFormatVersion || header.PageSize != uint32(dm.pageSize) {
			dm.detachInternal()
			return nil, fmt.Errorf("%w: %s: magic 0x%x version %d page size %d", ErrBadFileHeader, dm.filePath, header.Magic, header.Version, header.PageSize)
		}
		return &header, nil

	default:
		return nil, fmt.Errorf("%w: stat %s: %v", ErrIO, dm.filePath, statErr)
	}
}

func (dm *DiskManager) openFile(flag int) (*os.File, error) {
	if dm.directIO {
		return directio.OpenFile(dm.filePath, flag, 0666)
	}
	return os.OpenFile(dm.filePath, flag, 0666)
}

// attachInternal must be called with dm.mu held.
func (dm *DiskManager) attachInternal(file *os.File, numPages uint64) {
	dm.file = file
	dm.dev = file
	dm.numPages = numPages
	dm.free = newFreeList()
	dm.closed = false
}

// detachInternal must be called with dm.mu held.
func (dm *DiskManager) detachInternal() {
	if dm.file != nil {
		_ = dm.file.Close()
	}
	dm.file = nil
	dm.dev = nil
	dm.closed = true
}

// Sync flushes written pages to stable storage.
func (dm *DiskManager) Sync() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.file == nil {
		return ErrStoreClosed
	}
	if err := dm.file.Sync(); err != nil {
		return fmt.Errorf("%w: syncing %s: %v", ErrIO, dm.filePath, err)
	}
	return nil
}

// Close syncs and closes the database file. Closing a closed manager is a no-op.
func (dm *DiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.file == nil {
		return nil
	}
	syncErr := dm.file.Sync()
	closeErr := dm.file.Close()
	dm.file = nil
	dm.dev = nil
	dm.closed = true
	if syncErr != nil {
		return fmt.Errorf("%w: syncing %s: %v", ErrIO, dm.filePath, syncErr)
	}
	if closeErr != nil {
		return fmt.Errorf("%w: closing %s: %v", ErrIO, dm.filePath, closeErr)
	}
	return nil
}

func (dm *DiskManager) GetFilePath() string { return dm.filePath }
