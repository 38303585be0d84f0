package v6fs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClaimInodeSkipsAllocated(t *testing.T) {
	v := newTestVolume(t, 100, 16)
	n, err := v.claimInode()
	require.NoError(t, err)
	require.NotEqual(t, RootInodeNumber, n, "root is already allocated by initfs")

	i, err := v.loadInode(n)
	require.NoError(t, err)
	require.False(t, i.allocated())
}

func TestReleaseInodeFreesDirectBlocks(t *testing.T) {
	v := newTestVolume(t, 100, 16)
	n, err := v.makeNode(TypePlain, 0o644)
	require.NoError(t, err)
	i, err := v.loadInode(n)
	require.NoError(t, err)

	require.NoError(t, v.appendDataBlock(i, []byte("data")))
	require.NoError(t, v.saveInode(n, i))

	nfreeBefore := v.sb.nfree
	require.NoError(t, v.releaseInode(n))
	require.Equal(t, int(nfreeBefore)+1, int(v.sb.nfree))

	after, err := v.loadInode(n)
	require.NoError(t, err)
	require.False(t, after.allocated())
}

func TestInodeBlockAndOffsetRejectsOutOfRange(t *testing.T) {
	v := newTestVolume(t, 100, 16)
	_, _, err := v.inodeBlockAndOffset(0)
	require.Error(t, err)
	_, _, err = v.inodeBlockAndOffset(v.sb.maxInodeNumber() + 1)
	require.Error(t, err)
}
