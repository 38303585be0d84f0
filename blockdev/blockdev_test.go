package blockdev_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/diskfs/v6fs/blockdev"
)

func TestCreateOnMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	dev, err := blockdev.Create(path)
	require.NoError(t, err)
	defer dev.Close()
	require.Equal(t, 0, dev.NumBlocks())
}

func TestWriteReadBlockRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	dev, err := blockdev.Create(path)
	require.NoError(t, err)
	defer dev.Close()

	require.NoError(t, dev.Grow(2))

	want := make([]byte, blockdev.BlockSize)
	for i := range want {
		want[i] = byte(i)
	}
	require.NoError(t, dev.WriteBlock(1, want))

	got := make([]byte, blockdev.BlockSize)
	require.NoError(t, dev.ReadBlock(1, got))
	require.Equal(t, want, got)
}

func TestReadWriteBlockRejectWrongBufferSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	dev, err := blockdev.Create(path)
	require.NoError(t, err)
	defer dev.Close()
	require.NoError(t, dev.Grow(1))

	require.Error(t, dev.ReadBlock(0, make([]byte, 10)))
	require.Error(t, dev.WriteBlock(0, make([]byte, 10)))
}

func TestOpenMissingFileFails(t *testing.T) {
	_, err := blockdev.Open(filepath.Join(t.TempDir(), "does-not-exist.img"))
	require.Error(t, err)
}

func TestOpenReopensCreatedVolume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	dev, err := blockdev.Create(path)
	require.NoError(t, err)
	require.NoError(t, dev.Grow(3))
	require.NoError(t, dev.Close())

	reopened, err := blockdev.Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, 3, reopened.NumBlocks())
}
