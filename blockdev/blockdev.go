// Package blockdev treats a host-provided regular file as a fixed-size-block
// device: every transfer is exactly one BlockSize-byte block at a given
// integer block offset. It owns the single process-wide file handle behind a
// volume and has no cache of its own - callers above it (the superblock, the
// i-node table, the free list) are responsible for caching what they read.
package blockdev

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/diskfs/v6fs/backend"
	"github.com/diskfs/v6fs/backend/file"
	"github.com/diskfs/v6fs/verrors"
)

// BlockSize is the fixed transfer unit of a v6 volume, in bytes.
const BlockSize = 512

// Device is a host file opened (or created) for use as the backing store of
// a v6 volume.
type Device struct {
	storage backend.Storage
	size    int64
}

// Open opens an existing backing file for read/write access.
func Open(pathName string) (*Device, error) {
	if pathName == "" {
		return nil, fmt.Errorf("%w: no path given", verrors.ErrFileOpenFailure)
	}
	st, err := file.OpenFromPath(pathName, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", verrors.ErrFileOpenFailure, err)
	}
	info, err := st.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", verrors.ErrFileOpenFailure, err)
	}
	return &Device{storage: st, size: info.Size()}, nil
}

// Create opens pathName for read/write access, creating an empty file if it
// does not already exist. This matches the command-surface contract: a
// missing backing file is created empty and requires a subsequent initfs.
func Create(pathName string) (*Device, error) {
	if pathName == "" {
		return nil, fmt.Errorf("%w: no path given", verrors.ErrFileOpenFailure)
	}
	if _, err := os.Stat(pathName); errors.Is(err, os.ErrNotExist) {
		f, err := os.OpenFile(pathName, os.O_RDWR|os.O_CREATE, 0o666)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", verrors.ErrFileOpenFailure, err)
		}
		return &Device{storage: file.New(f, false), size: 0}, nil
	}
	return Open(pathName)
}

// Close releases the backing file handle.
func (d *Device) Close() error {
	return d.storage.Close()
}

// NumBlocks returns how many full BlockSize blocks currently exist in the
// backing file.
func (d *Device) NumBlocks() int {
	return int(d.size / BlockSize)
}

// Grow extends the backing file to numBlocks blocks, zero-filling each block
// it adds; blocks already present in the file keep their contents. It is
// used exactly once, by initfs, to size the volume before the free list and
// i-node blocks are written.
func (d *Device) Grow(numBlocks int) error {
	w, err := d.storage.Writable()
	if err != nil {
		return fmt.Errorf("%w: %v", verrors.ErrBlockWriteFailure, err)
	}
	zero := make([]byte, BlockSize)
	for n := d.NumBlocks(); n < numBlocks; n++ {
		if _, err := w.WriteAt(zero, int64(n)*BlockSize); err != nil {
			return fmt.Errorf("%w: zeroing block %d: %v", verrors.ErrBlockWriteFailure, n, err)
		}
	}
	d.size = int64(numBlocks) * BlockSize
	return nil
}

// ReadBlock reads exactly BlockSize bytes from block n into buf.
func (d *Device) ReadBlock(n int, buf []byte) error {
	if len(buf) != BlockSize {
		return fmt.Errorf("%w: buffer must be exactly %d bytes, got %d", verrors.ErrBlockReadFailure, BlockSize, len(buf))
	}
	read, err := d.storage.ReadAt(buf, int64(n)*BlockSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: block %d: %v", verrors.ErrBlockReadFailure, n, err)
	}
	if read != BlockSize {
		return fmt.Errorf("%w: block %d: short read of %d bytes", verrors.ErrBlockReadFailure, n, read)
	}
	return nil
}

// WriteBlock writes exactly BlockSize bytes from buf to block n.
func (d *Device) WriteBlock(n int, buf []byte) error {
	if len(buf) != BlockSize {
		return fmt.Errorf("%w: buffer must be exactly %d bytes, got %d", verrors.ErrBlockWriteFailure, BlockSize, len(buf))
	}
	w, err := d.storage.Writable()
	if err != nil {
		return fmt.Errorf("%w: %v", verrors.ErrBlockWriteFailure, err)
	}
	written, err := w.WriteAt(buf, int64(n)*BlockSize)
	if err != nil {
		return fmt.Errorf("%w: block %d: %v", verrors.ErrBlockWriteFailure, n, err)
	}
	if written != BlockSize {
		return fmt.Errorf("%w: block %d: short write of %d bytes", verrors.ErrBlockWriteFailure, n, written)
	}
	return nil
}
