// Package verrors holds the sentinel error taxonomy shared by every layer of
// the v6 file system core, from the block device up through the operations
// façade. Callers use errors.Is against these values; every wrapping layer
// adds context with fmt.Errorf's %w and never replaces the sentinel.
package verrors

import "errors"

var (
	ErrFileOpenFailure          = errors.New("file open failure")
	ErrSeekFailure              = errors.New("seek failure")
	ErrBlockReadFailure         = errors.New("block read failure")
	ErrBlockWriteFailure        = errors.New("block write failure")
	ErrSuperblockReadError      = errors.New("superblock read error")
	ErrFileSystemNotInitialized = errors.New("file system not initialized")
	ErrInvalidBlockNumber       = errors.New("invalid block number")
	ErrInvalidInodeNumber       = errors.New("invalid inode number")
	ErrInvalidIndex             = errors.New("invalid index")
	ErrAllocateFailure          = errors.New("allocate failure")
	ErrNoSuchFile               = errors.New("no such file")
	ErrFileExists               = errors.New("file exists")
	ErrNotADirectory            = errors.New("not a directory")
	ErrFileTooLarge             = errors.New("file too large")
)
