package v6fs

import (
	"encoding/binary"
	"fmt"

	"github.com/diskfs/v6fs/blockdev"
	"github.com/diskfs/v6fs/verrors"
)

// allocate pops one block number off the free-list cache, refilling it from
// the on-disk chain if the cache just ran dry. It returns ErrAllocateFailure
// once the chain is exhausted.
func (v *Volume) allocate() (int, error) {
	sb := v.sb
	if sb.nfree == 0 {
		return 0, fmt.Errorf("%w: free list exhausted", verrors.ErrAllocateFailure)
	}

	sb.nfree--
	candidate := sb.free[sb.nfree]

	if sb.nfree == 0 {
		if candidate == 0 {
			// End of chain: nothing more to allocate. Restore the sentinel
			// (nfree=1, free[0]=0) so a later free() stacks on top of it
			// rather than landing in the link slot.
			sb.nfree = 1
			sb.free[0] = 0
			return 0, fmt.Errorf("%w: free list exhausted", verrors.ErrAllocateFailure)
		}
		buf := make([]byte, blockdev.BlockSize)
		if err := v.dev.ReadBlock(int(candidate), buf); err != nil {
			return 0, err
		}
		sb.nfree = binary.LittleEndian.Uint16(buf[0:2])
		for i := 0; i < int(sb.nfree); i++ {
			sb.free[i] = binary.LittleEndian.Uint16(buf[2+i*2:])
		}
	}

	return int(candidate), nil
}

// free returns block b to the list, flushing the current cache out to b as a
// new chain head first if the cache is full.
func (v *Volume) free(b int) error {
	sb := v.sb
	if b < sb.dataBlockStart() || b >= int(sb.fsize) {
		return fmt.Errorf("%w: block %d not in data region", verrors.ErrInvalidBlockNumber, b)
	}

	if sb.nfree == FreeListCapacity {
		buf := make([]byte, blockdev.BlockSize)
		binary.LittleEndian.PutUint16(buf[0:2], sb.nfree)
		for i := 0; i < int(sb.nfree); i++ {
			binary.LittleEndian.PutUint16(buf[2+i*2:], sb.free[i])
		}
		if err := v.dev.WriteBlock(b, buf); err != nil {
			return err
		}
		sb.nfree = 0
	}

	sb.free[sb.nfree] = uint16(b)
	sb.nfree++
	return nil
}
