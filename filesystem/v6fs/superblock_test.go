package v6fs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/diskfs/v6fs/blockdev"
	"github.com/diskfs/v6fs/util"
)

func TestSuperblockRoundTrip(t *testing.T) {
	sb := &superblock{
		isize:  4,
		fsize:  500,
		nfree:  3,
		ninode: 2,
		flock:  1,
		ilock:  0,
		fmod:   1,
	}
	sb.free[0] = 10
	sb.free[1] = 11
	sb.free[2] = 12
	sb.inode[0] = 5
	sb.inode[1] = 6
	sb.time[0] = 0x1234
	sb.time[1] = 0x5678

	encoded := encodeSuperblock(sb)
	require.Len(t, encoded, blockdev.BlockSize)

	decoded, err := decodeSuperblock(encoded)
	require.NoError(t, err)
	require.Equal(t, sb, decoded)

	reEncoded := encodeSuperblock(decoded)
	if different, diff := util.DumpByteSlicesWithDiffs(encoded, reEncoded, 16, true, true, false); different {
		t.Fatalf("re-encoding a decoded superblock changed its bytes:\n%s", diff)
	}
}

func TestDecodeSuperblockRejectsWrongSize(t *testing.T) {
	_, err := decodeSuperblock(make([]byte, 10))
	require.Error(t, err)
}

func TestSuperblockDataBlockStart(t *testing.T) {
	sb := &superblock{isize: 4}
	require.Equal(t, FirstInodeBlock+4, sb.dataBlockStart())
}

func TestSuperblockMaxInodeNumber(t *testing.T) {
	sb := &superblock{isize: 2}
	require.Equal(t, 2*InodesPerBlock, sb.maxInodeNumber())
}
