package v6fs

import (
	"fmt"
	"io"
	"os"

	"github.com/diskfs/v6fs/blockdev"
	"github.com/diskfs/v6fs/verrors"
)

// CopyIn implements cpin: it reads hostPath from the local filesystem and
// writes its content into a fresh plain file at v6Path, one block at a
// time. A failure partway through leaves the target i-node holding a
// truncated prefix of the host file (the i-node is saved before the error is
// returned); the free list itself stays coherent since a data block that
// cannot be attached is returned to it. Per §9, the caller may rm the partial
// name to recover.
func (v *Volume) CopyIn(hostPath, v6Path string) error {
	f, err := os.Open(hostPath)
	if err != nil {
		return fmt.Errorf("%w: %v", verrors.ErrFileOpenFailure, err)
	}
	defer f.Close()

	parentIno, name, err := v.resolveNewEntry(v6Path)
	if err != nil {
		return err
	}
	if err := validateName(name); err != nil {
		return err
	}

	target, err := v.makeNode(TypePlain, 0o666)
	if err != nil {
		return err
	}
	if err := v.insertEntry(parentIno, name, target); err != nil {
		return err
	}

	i, err := v.loadInode(target)
	if err != nil {
		return err
	}

	buf := make([]byte, blockdev.BlockSize)
	for {
		n, readErr := io.ReadFull(f, buf)
		if n > 0 {
			if err := v.appendDataBlock(i, buf[:n]); err != nil {
				_ = v.saveInode(target, i)
				return err
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			_ = v.saveInode(target, i)
			return fmt.Errorf("%w: %v", verrors.ErrFileOpenFailure, readErr)
		}
	}

	return v.saveInode(target, i)
}

// CopyOut implements cpout: it resolves v6Path, reads its blocks in logical
// order, and writes exactly its recorded byte length to a freshly created
// hostPath.
func (v *Volume) CopyOut(v6Path, hostPath string) error {
	ino, err := v.resolve(v6Path)
	if err != nil {
		return err
	}
	i, err := v.loadInode(ino)
	if err != nil {
		return err
	}

	out, err := os.Create(hostPath)
	if err != nil {
		return fmt.Errorf("%w: %v", verrors.ErrFileOpenFailure, err)
	}
	defer out.Close()

	remaining := int(i.fileSize())
	it := v.NewBlockIterator(i)
	for remaining > 0 {
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
		n := blockdev.BlockSize
		if remaining < n {
			n = remaining
		}
		if _, err := out.Write(buf[:n]); err != nil {
			return fmt.Errorf("%w: %v", verrors.ErrFileOpenFailure, err)
		}
		remaining -= n
	}
	return nil
}

// Mkdir implements mkdir: it resolves the leading path segments to find the
// parent directory, claims a fresh i-node for the new directory, inserts
// its name into the parent, and populates "." and ".." entries. Fails with
// ErrFileExists if the name is already taken in the parent.
func (v *Volume) Mkdir(v6Path string) error {
	parentIno, name, err := v.resolveNewEntry(v6Path)
	if err != nil {
		return err
	}
	if err := validateName(name); err != nil {
		return err
	}

	newIno, err := v.makeNode(TypeDirectory, 0o777)
	if err != nil {
		return err
	}
	if err := v.insertEntry(parentIno, name, newIno); err != nil {
		return err
	}
	return v.initDirectory(newIno, parentIno)
}

// Remove implements rm: it resolves v6Path to an i-node, frees every block
// it owns (including indirection blocks for a large file), zeroes and saves
// the i-node, and removes its name from the containing directory.
func (v *Volume) Remove(v6Path string) error {
	ino, parentIno, name, err := v.resolveParent(v6Path)
	if err != nil {
		return err
	}

	if err := v.releaseInode(ino); err != nil {
		return err
	}
	return v.removeEntry(parentIno, name)
}
