package v6fs

import (
	"fmt"

	"github.com/diskfs/v6fs/blockdev"
	"github.com/diskfs/v6fs/verrors"
)

// inodeBlockAndOffset returns the block number holding i-node n and the byte
// offset of its record within that block.
func (v *Volume) inodeBlockAndOffset(n int) (block, offset int, err error) {
	if n == 0 || n > v.sb.maxInodeNumber() {
		return 0, 0, fmt.Errorf("%w: inode %d out of range [1,%d]", verrors.ErrInvalidInodeNumber, n, v.sb.maxInodeNumber())
	}
	block = (n-1)/InodesPerBlock + FirstInodeBlock
	offset = ((n - 1) % InodesPerBlock) * inodeSize
	return block, offset, nil
}

// loadInode reads and decodes i-node n.
func (v *Volume) loadInode(n int) (*inode, error) {
	block, offset, err := v.inodeBlockAndOffset(n)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, blockdev.BlockSize)
	if err := v.dev.ReadBlock(block, buf); err != nil {
		return nil, err
	}
	return decodeInode(buf[offset : offset+inodeSize])
}

// saveInode writes i back to i-node slot n via read-modify-write of the
// enclosing block.
func (v *Volume) saveInode(n int, i *inode) error {
	block, offset, err := v.inodeBlockAndOffset(n)
	if err != nil {
		return err
	}
	buf := make([]byte, blockdev.BlockSize)
	if err := v.dev.ReadBlock(block, buf); err != nil {
		return err
	}
	copy(buf[offset:offset+inodeSize], encodeInode(i))
	return v.dev.WriteBlock(block, buf)
}

// refillInodeCache scans the whole i-node table in order and appends every
// unallocated i-node number to the superblock's cache, up to its capacity.
// This is the only way the cache is populated: v6fs never invents i-node
// numbers, it only ever rediscovers ones that are free on disk.
func (v *Volume) refillInodeCache() error {
	sb := v.sb
	sb.ninode = 0
	max := sb.maxInodeNumber()
	for n := 1; n <= max && int(sb.ninode) < FreeListCapacity; n++ {
		i, err := v.loadInode(n)
		if err != nil {
			return err
		}
		if !i.allocated() {
			sb.inode[sb.ninode] = uint16(n)
			sb.ninode++
		}
	}
	return nil
}

// claimInode pops a fresh i-node number from the cache, refilling it first
// if empty. The returned i-node is not yet marked allocated; the caller must
// set flags and save it.
func (v *Volume) claimInode() (int, error) {
	if v.sb.ninode == 0 {
		if err := v.refillInodeCache(); err != nil {
			return 0, err
		}
		if v.sb.ninode == 0 {
			return 0, fmt.Errorf("%w: no free inodes", verrors.ErrAllocateFailure)
		}
	}
	v.sb.ninode--
	return int(v.sb.inode[v.sb.ninode]), nil
}

// releaseInode frees every block the i-node owns (including indirection
// blocks for a large file) and zeroes the i-node record. The superblock's
// i-node cache is not updated eagerly; the next refill will rediscover n.
func (v *Volume) releaseInode(n int) error {
	i, err := v.loadInode(n)
	if err != nil {
		return err
	}

	if i.isLarge() {
		for q := 0; q < numDirectAddrs; q++ {
			ind := i.addr[q]
			if ind == 0 {
				continue
			}
			if q < numDirectAddrs-1 {
				if err := v.freeSinglyIndirect(int(ind)); err != nil {
					return err
				}
			} else {
				if err := v.freeDoublyIndirect(int(ind)); err != nil {
					return err
				}
			}
		}
	} else {
		for _, a := range i.addr {
			if a != 0 {
				if err := v.free(int(a)); err != nil {
					return err
				}
			}
		}
	}

	zero := &inode{}
	return v.saveInode(n, zero)
}

// freeSinglyIndirect frees every data block named by singly-indirect block
// blockNum, then frees blockNum itself.
func (v *Volume) freeSinglyIndirect(blockNum int) error {
	buf := make([]byte, blockdev.BlockSize)
	if err := v.dev.ReadBlock(blockNum, buf); err != nil {
		return err
	}
	for slot := 0; slot < addrsPerIndirectBlock; slot++ {
		b := readBlockPtr(buf, slot)
		if b != 0 {
			if err := v.free(int(b)); err != nil {
				return err
			}
		}
	}
	return v.free(blockNum)
}

// freeDoublyIndirect frees every singly-indirect block named by doubly
// indirect block blockNum (and their data blocks), then frees blockNum.
func (v *Volume) freeDoublyIndirect(blockNum int) error {
	buf := make([]byte, blockdev.BlockSize)
	if err := v.dev.ReadBlock(blockNum, buf); err != nil {
		return err
	}
	for slot := 0; slot < addrsPerIndirectBlock; slot++ {
		ind := readBlockPtr(buf, slot)
		if ind != 0 {
			if err := v.freeSinglyIndirect(int(ind)); err != nil {
				return err
			}
		}
	}
	return v.free(blockNum)
}
