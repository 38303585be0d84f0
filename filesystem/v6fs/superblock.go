package v6fs

import (
	"encoding/binary"
	"fmt"

	"github.com/diskfs/v6fs/blockdev"
	"github.com/diskfs/v6fs/verrors"
)

// Block numbers reserved by every v6 volume, regardless of size.
const (
	// BootBlock is reserved for a bootstrap program; this implementation
	// never writes anything there beyond the zero fill from initfs.
	BootBlock = 0
	// SuperBlockNum is the fixed location of the superblock.
	SuperBlockNum = 1
	// FirstInodeBlock is the first block of the i-node table.
	FirstInodeBlock = 2
	// InodesPerBlock is how many 32-byte i-node records fit in one block.
	InodesPerBlock = blockdev.BlockSize / inodeSize
	// FreeListCapacity is the number of block numbers a superblock or
	// free-list chain block can hold at once.
	FreeListCapacity = 100
)

// superblock is the in-memory representation of block 1. Every integer is
// little-endian on disk; the codec in this file is the only code that knows
// the byte offsets of §3 of the format.
type superblock struct {
	isize  uint16
	fsize  uint16
	nfree  uint16
	free   [FreeListCapacity]uint16
	ninode uint16
	inode  [FreeListCapacity]uint16
	flock  uint8
	ilock  uint8
	fmod   uint8
	time   [2]uint16
}

const (
	sbOffIsize  = 0
	sbOffFsize  = 2
	sbOffNfree  = 4
	sbOffFree   = 6
	sbOffNinode = 206
	sbOffInode  = 208
	sbOffFlock  = 408
	sbOffIlock  = 409
	sbOffFmod   = 410
	sbOffTime   = 411
)

// encodeSuperblock serializes sb into a fresh, zero-padded 512-byte block.
func encodeSuperblock(sb *superblock) []byte {
	b := make([]byte, blockdev.BlockSize)
	binary.LittleEndian.PutUint16(b[sbOffIsize:], sb.isize)
	binary.LittleEndian.PutUint16(b[sbOffFsize:], sb.fsize)
	binary.LittleEndian.PutUint16(b[sbOffNfree:], sb.nfree)
	for i, v := range sb.free {
		binary.LittleEndian.PutUint16(b[sbOffFree+i*2:], v)
	}
	binary.LittleEndian.PutUint16(b[sbOffNinode:], sb.ninode)
	for i, v := range sb.inode {
		binary.LittleEndian.PutUint16(b[sbOffInode+i*2:], v)
	}
	b[sbOffFlock] = sb.flock
	b[sbOffIlock] = sb.ilock
	b[sbOffFmod] = sb.fmod
	binary.LittleEndian.PutUint16(b[sbOffTime:], sb.time[0])
	binary.LittleEndian.PutUint16(b[sbOffTime+2:], sb.time[1])
	return b
}

// decodeSuperblock parses a 512-byte block into a superblock. b must be
// exactly blockdev.BlockSize bytes.
func decodeSuperblock(b []byte) (*superblock, error) {
	if len(b) != blockdev.BlockSize {
		return nil, fmt.Errorf("%w: superblock block must be %d bytes, got %d", verrors.ErrSuperblockReadError, blockdev.BlockSize, len(b))
	}
	sb := &superblock{}
	sb.isize = binary.LittleEndian.Uint16(b[sbOffIsize:])
	sb.fsize = binary.LittleEndian.Uint16(b[sbOffFsize:])
	sb.nfree = binary.LittleEndian.Uint16(b[sbOffNfree:])
	for i := range sb.free {
		sb.free[i] = binary.LittleEndian.Uint16(b[sbOffFree+i*2:])
	}
	sb.ninode = binary.LittleEndian.Uint16(b[sbOffNinode:])
	for i := range sb.inode {
		sb.inode[i] = binary.LittleEndian.Uint16(b[sbOffInode+i*2:])
	}
	sb.flock = b[sbOffFlock]
	sb.ilock = b[sbOffIlock]
	sb.fmod = b[sbOffFmod]
	sb.time[0] = binary.LittleEndian.Uint16(b[sbOffTime:])
	sb.time[1] = binary.LittleEndian.Uint16(b[sbOffTime+2:])
	return sb, nil
}

// dataBlockStart returns the first block number available for data, free
// list chain blocks, and indirection blocks: block 0 and 1 plus the i-node
// blocks are reserved.
func (sb *superblock) dataBlockStart() int {
	return FirstInodeBlock + int(sb.isize)
}

// maxInodeNumber returns the highest valid i-node number for this volume.
func (sb *superblock) maxInodeNumber() int {
	return int(sb.isize) * InodesPerBlock
}
