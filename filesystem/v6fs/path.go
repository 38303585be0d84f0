package v6fs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/diskfs/v6fs/verrors"
)

// resolve walks a '/'-separated path from the root i-node and returns the
// i-node number it names. A leading '/' is accepted and ignored; all paths
// are resolved as absolute since v6fs carries no notion of a current
// working directory. An empty path, or "/", resolves to the root directory.
func (v *Volume) resolve(path string) (int, error) {
	ino, _, _, err := v.resolveParent(path)
	return ino, err
}

// resolveParent walks path and additionally returns the i-node number of
// the final component's containing directory and the final component's
// name, so callers that need to insert or remove an entry (mkdir, rm, cpin)
// don't have to re-walk the path themselves.
func (v *Volume) resolveParent(path string) (ino, parent int, name string, err error) {
	parts := splitPath(path)
	cur := RootInodeNumber
	parentDir := RootInodeNumber

	if len(parts) == 0 {
		return RootInodeNumber, RootInodeNumber, ".", nil
	}

	for idx, part := range parts {
		i, err := v.loadInode(cur)
		if err != nil {
			return 0, 0, "", err
		}
		if !i.isDirectory() {
			return 0, 0, "", fmt.Errorf("%w: %q is not a directory", verrors.ErrNotADirectory, part)
		}
		next, err := v.lookupEntry(cur, part)
		if err != nil {
			if idx == len(parts)-1 {
				return 0, cur, part, err
			}
			return 0, 0, "", err
		}
		parentDir = cur
		cur = next
	}
	return cur, parentDir, parts[len(parts)-1], nil
}

// resolveNewEntry resolves the containing directory and final name of path
// for an operation that is about to create that name (mkdir, cpin). Unlike
// resolveParent, whose contract is to report the ordinary "final component
// not found" case as an error (see TestResolveParentForNewName), this method
// treats that exact case as success: it is the expected precondition for
// creating something new. It still fails on everything resolveParent fails
// on for an intermediate segment (missing component, non-directory), and
// additionally fails with ErrFileExists when the full path already resolves
// to something.
func (v *Volume) resolveNewEntry(path string) (parent int, name string, err error) {
	_, parentIno, name, err := v.resolveParent(path)
	if err == nil {
		return 0, "", fmt.Errorf("%w: %q", verrors.ErrFileExists, name)
	}
	if parentIno == 0 || !errors.Is(err, verrors.ErrNoSuchFile) {
		return 0, "", err
	}
	return parentIno, name, nil
}

func splitPath(path string) []string {
	var out []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
