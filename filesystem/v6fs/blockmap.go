package v6fs

import (
	"encoding/binary"
	"fmt"

	"github.com/diskfs/v6fs/blockdev"
	"github.com/diskfs/v6fs/verrors"
)

// addrsPerIndirectBlock is how many 2-byte block numbers fit in one
// indirection block.
const addrsPerIndirectBlock = blockdev.BlockSize / 2

// singlyIndirectSlots is the number of addr[] entries (addr[0..6]) that name
// singly-indirect blocks directly; addr[7] is reserved for the doubly
// indirect block.
const singlyIndirectSlots = numDirectAddrs - 1

// doublyIndirectBase is the lowest logical block index reachable only
// through the doubly indirect block.
const doublyIndirectBase = singlyIndirectSlots * addrsPerIndirectBlock

// maxLogicalBlocks bounds logical block indices by the 32 MiB file size cap,
// which binds before the theoretical 7*256+256*256 addressing capacity does.
const maxLogicalBlocks = maxFileSize / blockdev.BlockSize

func readBlockPtr(buf []byte, slot int) uint16 {
	return binary.LittleEndian.Uint16(buf[slot*2:])
}

func writeBlockPtr(buf []byte, slot int, v uint16) {
	binary.LittleEndian.PutUint16(buf[slot*2:], v)
}

func (v *Volume) zeroBlock(n int) error {
	return v.dev.WriteBlock(n, make([]byte, blockdev.BlockSize))
}

// mapLogicalBlock translates logical block L of i to a physical block
// number, or 0 if L names a hole. It never allocates; see setLogicalBlock
// for grow-on-set semantics.
func (v *Volume) mapLogicalBlock(i *inode, L int) (int, error) {
	if L < 0 || L >= maxLogicalBlocks {
		return 0, fmt.Errorf("%w: logical block %d out of range", verrors.ErrInvalidIndex, L)
	}

	if !i.isLarge() {
		if L >= numDirectAddrs {
			return 0, nil
		}
		return int(i.addr[L]), nil
	}

	if L < doublyIndirectBase {
		q, r := L/addrsPerIndirectBlock, L%addrsPerIndirectBlock
		ind := i.addr[q]
		if ind == 0 {
			return 0, nil
		}
		buf := make([]byte, blockdev.BlockSize)
		if err := v.dev.ReadBlock(int(ind), buf); err != nil {
			return 0, err
		}
		return int(readBlockPtr(buf, r)), nil
	}

	l2 := L - doublyIndirectBase
	slot1, slot2 := l2/addrsPerIndirectBlock, l2%addrsPerIndirectBlock
	dbl := i.addr[singlyIndirectSlots]
	if dbl == 0 {
		return 0, nil
	}
	dblBuf := make([]byte, blockdev.BlockSize)
	if err := v.dev.ReadBlock(int(dbl), dblBuf); err != nil {
		return 0, err
	}
	ind := readBlockPtr(dblBuf, slot1)
	if ind == 0 {
		return 0, nil
	}
	indBuf := make([]byte, blockdev.BlockSize)
	if err := v.dev.ReadBlock(int(ind), indBuf); err != nil {
		return 0, err
	}
	return int(readBlockPtr(indBuf, slot2)), nil
}

// upgradeToLarge converts a small file whose 8 direct slots are all in use
// into a large file addressed through a fresh singly-indirect block.
func (v *Volume) upgradeToLarge(i *inode) error {
	newBlk, err := v.allocate()
	if err != nil {
		return err
	}
	buf := make([]byte, blockdev.BlockSize)
	for idx := 0; idx < numDirectAddrs; idx++ {
		writeBlockPtr(buf, idx, i.addr[idx])
	}
	if err := v.dev.WriteBlock(newBlk, buf); err != nil {
		return err
	}
	i.addr = [numDirectAddrs]uint16{}
	i.addr[0] = uint16(newBlk)
	i.flags |= flagLarge
	return nil
}

// writeIndirectSlot read-modify-writes one 2-byte slot of indirection block
// blockNum.
func (v *Volume) writeIndirectSlot(blockNum, slot int, physical uint16) error {
	buf := make([]byte, blockdev.BlockSize)
	if err := v.dev.ReadBlock(blockNum, buf); err != nil {
		return err
	}
	writeBlockPtr(buf, slot, physical)
	return v.dev.WriteBlock(blockNum, buf)
}

// setLogicalBlock installs physical as the mapping for logical block L of i,
// materializing any missing indirection block along the way. Triggers the
// small-to-large upgrade automatically when L runs past the 8 direct slots
// of a small file. Any allocation failure aborts without partially
// installing indirection beyond what was already committed to disk.
func (v *Volume) setLogicalBlock(i *inode, L int, physical uint16) error {
	if L < 0 || L >= maxLogicalBlocks {
		return fmt.Errorf("%w: logical block %d out of range", verrors.ErrInvalidIndex, L)
	}

	if !i.isLarge() {
		if L < numDirectAddrs {
			i.addr[L] = physical
			return nil
		}
		if err := v.upgradeToLarge(i); err != nil {
			return err
		}
	}

	if L < doublyIndirectBase {
		q, r := L/addrsPerIndirectBlock, L%addrsPerIndirectBlock
		if i.addr[q] == 0 {
			newBlk, err := v.allocate()
			if err != nil {
				return err
			}
			if err := v.zeroBlock(newBlk); err != nil {
				return err
			}
			i.addr[q] = uint16(newBlk)
		}
		return v.writeIndirectSlot(int(i.addr[q]), r, physical)
	}

	l2 := L - doublyIndirectBase
	slot1, slot2 := l2/addrsPerIndirectBlock, l2%addrsPerIndirectBlock

	if i.addr[singlyIndirectSlots] == 0 {
		newBlk, err := v.allocate()
		if err != nil {
			return err
		}
		if err := v.zeroBlock(newBlk); err != nil {
			return err
		}
		i.addr[singlyIndirectSlots] = uint16(newBlk)
	}
	dbl := int(i.addr[singlyIndirectSlots])

	dblBuf := make([]byte, blockdev.BlockSize)
	if err := v.dev.ReadBlock(dbl, dblBuf); err != nil {
		return err
	}
	ind := int(readBlockPtr(dblBuf, slot1))
	if ind == 0 {
		newBlk, err := v.allocate()
		if err != nil {
			return err
		}
		if err := v.zeroBlock(newBlk); err != nil {
			return err
		}
		ind = newBlk
		writeBlockPtr(dblBuf, slot1, uint16(ind))
		if err := v.dev.WriteBlock(dbl, dblBuf); err != nil {
			return err
		}
	}
	return v.writeIndirectSlot(ind, slot2, physical)
}

// appendDataBlock allocates one block, writes payload (at most BlockSize
// bytes) into it, attaches it as the next logical block of i, and grows the
// recorded file size by len(payload). Since v6fs never punches holes, the
// next logical index is always the file's current block count.
func (v *Volume) appendDataBlock(i *inode, payload []byte) error {
	if len(payload) > blockdev.BlockSize {
		return fmt.Errorf("%w: payload of %d bytes exceeds block size", verrors.ErrInvalidIndex, len(payload))
	}
	newSize := uint64(i.fileSize()) + uint64(len(payload))
	if newSize > maxFileSize {
		return fmt.Errorf("%w: file would grow to %d bytes, max is %d", verrors.ErrFileTooLarge, newSize, maxFileSize)
	}

	L := int((uint64(i.fileSize()) + blockdev.BlockSize - 1) / blockdev.BlockSize)
	blk, err := v.allocate()
	if err != nil {
		return err
	}
	buf := make([]byte, blockdev.BlockSize)
	copy(buf, payload)
	if err := v.dev.WriteBlock(blk, buf); err != nil {
		return err
	}
	if err := v.setLogicalBlock(i, L, uint16(blk)); err != nil {
		// The block could not be attached; hand it back to the free list.
		_ = v.free(blk)
		return err
	}
	i.setFileSize(uint32(newSize))
	return nil
}

// BlockIterator walks the allocated block numbers of one i-node's file in
// strictly increasing logical order, skipping holes. It carries its own
// cursor; starting a new iterator never disturbs any other.
type BlockIterator struct {
	v    *Volume
	ino  *inode
	maxL int
	next int
}

// NewBlockIterator begins a forward iteration over i's allocated blocks.
func (v *Volume) NewBlockIterator(i *inode) *BlockIterator {
	maxL := int((uint64(i.fileSize()) + blockdev.BlockSize - 1) / blockdev.BlockSize)
	return &BlockIterator{v: v, ino: i, maxL: maxL}
}

// Next returns the next allocated physical block number in logical order.
// ok is false once every logical block up to the file's size has been
// visited.
func (it *BlockIterator) Next() (physical int, ok bool, err error) {
	for it.next < it.maxL {
		l := it.next
		it.next++
		phys, err := it.v.mapLogicalBlock(it.ino, l)
		if err != nil {
			return 0, false, err
		}
		if phys != 0 {
			return phys, true, nil
		}
	}
	return 0, false, nil
}
