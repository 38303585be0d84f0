package v6fs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertThenLookup(t *testing.T) {
	v := newTestVolume(t, 100, 16)
	target, err := v.makeNode(TypePlain, 0o644)
	require.NoError(t, err)

	require.NoError(t, v.insertEntry(RootInodeNumber, "x", target))

	got, err := v.lookupEntry(RootInodeNumber, "x")
	require.NoError(t, err)
	require.Equal(t, target, got)
}

func TestInsertRemoveLookupFails(t *testing.T) {
	v := newTestVolume(t, 100, 16)
	target, err := v.makeNode(TypePlain, 0o644)
	require.NoError(t, err)

	require.NoError(t, v.insertEntry(RootInodeNumber, "x", target))
	require.NoError(t, v.removeEntry(RootInodeNumber, "x"))

	_, err = v.lookupEntry(RootInodeNumber, "x")
	require.Error(t, err)
}

func TestInsertDuplicateNameFails(t *testing.T) {
	v := newTestVolume(t, 100, 16)
	a, err := v.makeNode(TypePlain, 0o644)
	require.NoError(t, err)
	b, err := v.makeNode(TypePlain, 0o644)
	require.NoError(t, err)

	require.NoError(t, v.insertEntry(RootInodeNumber, "dup", a))
	err = v.insertEntry(RootInodeNumber, "dup", b)
	require.Error(t, err)
}

func TestRemovedSlotIsReusedByInsert(t *testing.T) {
	v := newTestVolume(t, 100, 16)
	a, err := v.makeNode(TypePlain, 0o644)
	require.NoError(t, err)
	require.NoError(t, v.insertEntry(RootInodeNumber, "a", a))
	require.NoError(t, v.removeEntry(RootInodeNumber, "a"))

	before, err := v.loadInode(RootInodeNumber)
	require.NoError(t, err)
	sizeBefore := before.fileSize()

	b, err := v.makeNode(TypePlain, 0o644)
	require.NoError(t, err)
	require.NoError(t, v.insertEntry(RootInodeNumber, "b", b))

	after, err := v.loadInode(RootInodeNumber)
	require.NoError(t, err)
	require.Equal(t, sizeBefore, after.fileSize(), "reusing a deleted slot must not grow the directory")
}

func TestRootDirectoryHasDotAndDotDot(t *testing.T) {
	v := newTestVolume(t, 100, 16)
	// ReadDir skips slots whose i-node number is 0, which hides root's ".."
	// entry, so read the root's directory block directly.
	root, err := v.loadInode(RootInodeNumber)
	require.NoError(t, err)
	block, err := v.readWholeBlock(int(root.addr[0]))
	require.NoError(t, err)
	var entries []dirEntry
	for _, e := range readDirBlock(block) {
		if e.name != "" {
			entries = append(entries, e)
		}
	}
	require.Len(t, entries, 2)
	require.Equal(t, ".", entries[0].name)
	require.Equal(t, RootInodeNumber, entries[0].inode)
	require.Equal(t, "..", entries[1].name)
	require.Equal(t, 0, entries[1].inode)
}

func TestValidateNameRejectsReservedAndOversized(t *testing.T) {
	require.Error(t, validateName(""))
	require.Error(t, validateName("."))
	require.Error(t, validateName(".."))
	require.Error(t, validateName("a/b"))
	require.Error(t, validateName("012345678901234"))
	require.NoError(t, validateName("ok-name"))
}
