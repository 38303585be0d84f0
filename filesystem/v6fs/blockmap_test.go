package v6fs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/diskfs/v6fs/blockdev"
)

func TestSmallFileDirectAddressing(t *testing.T) {
	v := newTestVolume(t, 100, 16)
	n, err := v.makeNode(TypePlain, 0o644)
	require.NoError(t, err)
	i, err := v.loadInode(n)
	require.NoError(t, err)

	payload := []byte("hello")
	require.NoError(t, v.appendDataBlock(i, payload))
	require.False(t, i.isLarge())
	require.NotZero(t, i.addr[0])
	require.Equal(t, uint32(len(payload)), i.fileSize())

	phys, err := v.mapLogicalBlock(i, 0)
	require.NoError(t, err)
	require.Equal(t, int(i.addr[0]), phys)
}

func TestSmallToLargeUpgradeOnNinthBlock(t *testing.T) {
	v := newTestVolume(t, 100, 16)
	n, err := v.makeNode(TypePlain, 0o644)
	require.NoError(t, err)
	i, err := v.loadInode(n)
	require.NoError(t, err)

	payload := make([]byte, blockdev.BlockSize)
	var priorBlocks []int
	for b := 0; b < numDirectAddrs; b++ {
		payload[0] = byte(b)
		require.NoError(t, v.appendDataBlock(i, payload))
		phys, err := v.mapLogicalBlock(i, b)
		require.NoError(t, err)
		priorBlocks = append(priorBlocks, phys)
	}
	require.False(t, i.isLarge())
	require.Equal(t, uint32(numDirectAddrs*blockdev.BlockSize), i.fileSize())

	// The 9th append must trigger the small->large upgrade and preserve every
	// previously written block's content and logical position.
	payload[0] = 0xff
	require.NoError(t, v.appendDataBlock(i, payload))
	require.True(t, i.isLarge())
	require.Equal(t, uint32((numDirectAddrs+1)*blockdev.BlockSize), i.fileSize())

	for b := 0; b < numDirectAddrs; b++ {
		phys, err := v.mapLogicalBlock(i, b)
		require.NoError(t, err)
		require.Equal(t, priorBlocks[b], phys, "block %d moved during upgrade", b)
	}
	lastPhys, err := v.mapLogicalBlock(i, numDirectAddrs)
	require.NoError(t, err)
	require.NotZero(t, lastPhys)
}

func TestSinglyIndirectBoundary(t *testing.T) {
	v := newTestVolume(t, 100, 16)
	n, err := v.makeNode(TypePlain, 0o644)
	require.NoError(t, err)
	i, err := v.loadInode(n)
	require.NoError(t, err)
	i.flags |= flagLarge

	require.NoError(t, v.setLogicalBlock(i, 0, 1))
	require.NoError(t, v.setLogicalBlock(i, 255, 2))
	phys, err := v.mapLogicalBlock(i, 0)
	require.NoError(t, err)
	require.Equal(t, 1, phys)
	phys, err = v.mapLogicalBlock(i, 255)
	require.NoError(t, err)
	require.Equal(t, 2, phys)

	// Logical block 1792 is the first one that must route through the
	// doubly indirect block rather than any of the seven direct singly
	// indirect slots.
	require.NoError(t, v.setLogicalBlock(i, doublyIndirectBase, 3))
	require.NotZero(t, i.addr[singlyIndirectSlots])
	phys, err = v.mapLogicalBlock(i, doublyIndirectBase)
	require.NoError(t, err)
	require.Equal(t, 3, phys)
}

func TestMaxFileSizeCap(t *testing.T) {
	v := newTestVolume(t, 100, 16)
	n, err := v.makeNode(TypePlain, 0o644)
	require.NoError(t, err)
	i, err := v.loadInode(n)
	require.NoError(t, err)

	i.setFileSize(maxFileSize - 1)
	err = v.appendDataBlock(i, []byte{1, 2})
	require.Error(t, err)
}

func TestHoleReadsAsZeroBlock(t *testing.T) {
	v := newTestVolume(t, 100, 16)
	n, err := v.makeNode(TypePlain, 0o644)
	require.NoError(t, err)
	i, err := v.loadInode(n)
	require.NoError(t, err)

	phys, err := v.mapLogicalBlock(i, 3)
	require.NoError(t, err)
	require.Zero(t, phys)
}

func TestBlockIteratorSkipsHolesAndStopsAtFileSize(t *testing.T) {
	v := newTestVolume(t, 100, 16)
	n, err := v.makeNode(TypePlain, 0o644)
	require.NoError(t, err)
	i, err := v.loadInode(n)
	require.NoError(t, err)

	require.NoError(t, v.appendDataBlock(i, []byte("a")))
	require.NoError(t, v.appendDataBlock(i, []byte("b")))

	it := v.NewBlockIterator(i)
	var seen []int
	for {
		phys, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		seen = append(seen, phys)
	}
	// Two blocks are mapped, but the file is only 2 bytes long, so the
	// iterator stops after logical block 0.
	require.Len(t, seen, 1)
}
