package v6fs

import (
	"fmt"
	"strings"

	"github.com/diskfs/v6fs/blockdev"
	"github.com/diskfs/v6fs/verrors"
)

// dirEntrySize is the on-disk width of one directory entry: a 2-byte i-node
// number followed by a 14-byte, NUL-padded (not NUL-terminated if it fills
// the field) name.
const dirEntrySize = 16

// maxNameLength is the longest file name a directory entry can hold.
const maxNameLength = 14

// dirEntry is one decoded directory record. inode == 0 marks a deleted slot
// that Insert may reuse; such slots are skipped by Lookup and ReadDir.
type dirEntry struct {
	inode int
	name  string
}

func decodeDirEntry(b []byte) dirEntry {
	n := int(uint16(b[0]) | uint16(b[1])<<8)
	end := 2
	for end < dirEntrySize && b[end] != 0 {
		end++
	}
	return dirEntry{inode: n, name: string(b[2:end])}
}

func encodeDirEntry(e dirEntry) []byte {
	b := make([]byte, dirEntrySize)
	b[0] = byte(e.inode)
	b[1] = byte(e.inode >> 8)
	copy(b[2:2+maxNameLength], e.name)
	return b
}

// readDirBlock reads every entry (including deleted ones) out of one data
// block belonging to a directory's file.
func readDirBlock(block []byte) []dirEntry {
	entries := make([]dirEntry, 0, len(block)/dirEntrySize)
	for off := 0; off+dirEntrySize <= len(block); off += dirEntrySize {
		entries = append(entries, decodeDirEntry(block[off:off+dirEntrySize]))
	}
	return entries
}

// validateName rejects names that cannot round-trip through a directory
// entry: empty, too long, containing a path separator, or a reserved name.
func validateName(name string) error {
	if name == "" || len(name) > maxNameLength {
		return fmt.Errorf("%w: name %q must be 1-%d bytes", verrors.ErrInvalidIndex, name, maxNameLength)
	}
	if strings.ContainsRune(name, '/') {
		return fmt.Errorf("%w: name %q may not contain '/'", verrors.ErrInvalidIndex, name)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%w: %q is reserved", verrors.ErrInvalidIndex, name)
	}
	return nil
}

// ReadDir returns the live (non-deleted) entries of the directory named by
// i-node n, in on-disk order.
func (v *Volume) ReadDir(n int) ([]dirEntry, error) {
	i, err := v.loadInode(n)
	if err != nil {
		return nil, err
	}
	if !i.isDirectory() {
		return nil, fmt.Errorf("%w: inode %d is not a directory", verrors.ErrNotADirectory, n)
	}

	var out []dirEntry
	it := v.NewBlockIterator(i)
	for {
		phys, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		buf, err := v.readWholeBlock(phys)
		if err != nil {
			return nil, err
		}
		for _, e := range readDirBlock(buf) {
			if e.inode != 0 {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func (v *Volume) readWholeBlock(phys int) ([]byte, error) {
	buf := make([]byte, blockdev.BlockSize)
	if err := v.dev.ReadBlock(phys, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// lookupEntry finds name within directory i-node dirIno, returning
// ErrNoSuchFile if it is not present.
func (v *Volume) lookupEntry(dirIno int, name string) (int, error) {
	entries, err := v.ReadDir(dirIno)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if e.name == name {
			return e.inode, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", verrors.ErrNoSuchFile, name)
}

// insertEntry adds (name -> target) to directory dirIno. It first looks for
// a deleted slot to reuse in an already-allocated block, and only appends a
// fresh block when every existing block is full of live entries.
func (v *Volume) insertEntry(dirIno int, name string, target int) error {
	if err := validateName(name); err != nil {
		return err
	}
	if _, err := v.lookupEntry(dirIno, name); err == nil {
		return fmt.Errorf("%w: %q", verrors.ErrFileExists, name)
	}

	dirInode, err := v.loadInode(dirIno)
	if err != nil {
		return err
	}

	it := v.NewBlockIterator(dirInode)
	for {
		phys, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		buf, err := v.readWholeBlock(phys)
		if err != nil {
			return err
		}
		for off := 0; off+dirEntrySize <= len(buf); off += dirEntrySize {
			if decodeDirEntry(buf[off : off+dirEntrySize]).inode == 0 {
				copy(buf[off:off+dirEntrySize], encodeDirEntry(dirEntry{inode: target, name: name}))
				return v.dev.WriteBlock(phys, buf)
			}
		}
	}

	block := make([]byte, blockdev.BlockSize)
	copy(block[:dirEntrySize], encodeDirEntry(dirEntry{inode: target, name: name}))
	if err := v.appendDataBlock(dirInode, block); err != nil {
		return err
	}
	return v.saveInode(dirIno, dirInode)
}

// removeEntry zeroes the entry named name within directory dirIno, turning
// its slot into a hole Insert can reuse later. The directory's block count
// and file size are left untouched; v6 directories never shrink.
func (v *Volume) removeEntry(dirIno int, name string) error {
	dirInode, err := v.loadInode(dirIno)
	if err != nil {
		return err
	}

	it := v.NewBlockIterator(dirInode)
	for {
		phys, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		buf, err := v.readWholeBlock(phys)
		if err != nil {
			return err
		}
		for off := 0; off+dirEntrySize <= len(buf); off += dirEntrySize {
			e := decodeDirEntry(buf[off : off+dirEntrySize])
			if e.inode != 0 && e.name == name {
				copy(buf[off:off+dirEntrySize], make([]byte, dirEntrySize))
				return v.dev.WriteBlock(phys, buf)
			}
		}
	}
	return fmt.Errorf("%w: %q", verrors.ErrNoSuchFile, name)
}

// initDirectory populates a freshly claimed directory i-node n with the
// standard "." and ".." entries, the latter pointing at parent.
func (v *Volume) initDirectory(n, parent int) error {
	i, err := v.loadInode(n)
	if err != nil {
		return err
	}
	block := make([]byte, blockdev.BlockSize)
	copy(block[0:dirEntrySize], encodeDirEntry(dirEntry{inode: n, name: "."}))
	copy(block[dirEntrySize:2*dirEntrySize], encodeDirEntry(dirEntry{inode: parent, name: ".."}))
	if err := v.appendDataBlock(i, block); err != nil {
		return err
	}
	return v.saveInode(n, i)
}
