package v6fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/diskfs/v6fs/blockdev"
)

func newTestVolume(t *testing.T, numBlocks, numInodes int) *Volume {
	t.Helper()
	path := filepath.Join(t.TempDir(), "volume.img")
	v, err := InitFS(path, numBlocks, numInodes)
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })
	return v
}

func TestAllocateFreePartitionsDataRegion(t *testing.T) {
	v := newTestVolume(t, 50, 16)
	dataStart := v.sb.dataBlockStart()
	dataEnd := int(v.sb.fsize)

	allocated := map[int]bool{}
	for {
		b, err := v.allocate()
		if err != nil {
			break
		}
		require.False(t, allocated[b], "block %d allocated twice", b)
		require.GreaterOrEqual(t, b, dataStart)
		require.Less(t, b, dataEnd)
		allocated[b] = true
	}
	// InitFS already allocated one data block for the root directory.
	require.Equal(t, dataEnd-dataStart-1, len(allocated))

	for b := range allocated {
		require.NoError(t, v.free(b))
	}
	require.GreaterOrEqual(t, int(v.sb.nfree), 1)
	require.LessOrEqual(t, int(v.sb.nfree), FreeListCapacity)
}

func TestFreeRejectsOutOfRangeBlock(t *testing.T) {
	v := newTestVolume(t, 50, 16)
	require.Error(t, v.free(0))
	require.Error(t, v.free(int(v.sb.fsize)))
}

func TestAllocateExhaustionFailsCleanly(t *testing.T) {
	v := newTestVolume(t, 20, 16)
	for {
		if _, err := v.allocate(); err != nil {
			break
		}
	}
	_, err := v.allocate()
	require.Error(t, err)
}

func TestBlockdevGrowZeroFills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.img")
	dev, err := blockdev.Create(path)
	require.NoError(t, err)
	defer dev.Close()

	require.NoError(t, dev.Grow(4))
	require.Equal(t, 4, dev.NumBlocks())

	buf := make([]byte, blockdev.BlockSize)
	require.NoError(t, dev.ReadBlock(2, buf))
	for _, b := range buf {
		require.Zero(t, b)
	}

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(4*blockdev.BlockSize), info.Size())
}
