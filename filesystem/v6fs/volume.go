// Package v6fs implements the on-disk layout and operations of a Unix v6
// file system volume: superblock, i-node table, directory entries, and the
// five-operation façade (initfs, cpin, cpout, mkdir, rm) that a driver
// program builds its command loop on top of.
package v6fs

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/diskfs/v6fs/blockdev"
	"github.com/diskfs/v6fs/verrors"
)

// RootInodeNumber is the fixed i-node number of the volume's root directory.
const RootInodeNumber = 1

// Volume is an open v6 file system: a backing block device plus the
// superblock currently held in memory. Mutations to the free list or i-node
// cache only take effect on disk once Close or Sync writes the superblock
// back out; a crash between those points leaves the on-disk free list and
// i-node cache out of step with the i-nodes and directories already written,
// so blocks in use by files may later be handed out again. This matches the
// original design's volatile-superblock tradeoff.
type Volume struct {
	dev *blockdev.Device
	sb  *superblock
	log *logrus.Entry
}

// Close flushes the superblock and releases the backing device. It is the
// Volume-level counterpart of the driver's quit command.
func (v *Volume) Close() error {
	if err := v.Sync(); err != nil {
		return err
	}
	return v.dev.Close()
}

// Sync writes the in-memory superblock back to block 1 without closing the
// device. InitFS calls it once the fresh volume is laid down. CopyIn, Mkdir
// and Remove do not call it, so their changes to the free list and i-node
// cache reach disk only at the next Sync or Close.
func (v *Volume) Sync() error {
	return v.dev.WriteBlock(SuperBlockNum, encodeSuperblock(v.sb))
}

// Open loads an existing v6 volume from pathName. The backing file must
// already contain a valid superblock written by a prior InitFS.
func Open(pathName string) (*Volume, error) {
	dev, err := blockdev.Open(pathName)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, blockdev.BlockSize)
	if err := dev.ReadBlock(SuperBlockNum, buf); err != nil {
		dev.Close()
		return nil, err
	}
	sb, err := decodeSuperblock(buf)
	if err != nil {
		dev.Close()
		return nil, err
	}
	return &Volume{dev: dev, sb: sb, log: logrus.WithField("component", "v6fs")}, nil
}

// InitFS creates the backing file at pathName (or reformats an existing one
// in place) as a fresh v6 volume of numBlocks total blocks sized to hold numInodes
// i-nodes (isize = ceil(numInodes/InodesPerBlock) blocks). It lays down the
// boot block, the superblock, a zeroed i-node table whose sole allocated
// entry is the root directory (i-node 1), and chains every remaining data
// block onto the free list.
func InitFS(pathName string, numBlocks, numInodes int) (*Volume, error) {
	if numInodes < 1 {
		return nil, fmt.Errorf("%w: numInodes must be at least 1", verrors.ErrInvalidBlockNumber)
	}
	isizeBlocks := (numInodes + InodesPerBlock - 1) / InodesPerBlock
	minBlocks := FirstInodeBlock + isizeBlocks + 1
	if numBlocks < minBlocks {
		return nil, fmt.Errorf("%w: volume of %d blocks too small for isize %d (need at least %d)", verrors.ErrInvalidBlockNumber, numBlocks, isizeBlocks, minBlocks)
	}

	dev, err := blockdev.Create(pathName)
	if err != nil {
		return nil, err
	}
	if err := dev.Grow(numBlocks); err != nil {
		dev.Close()
		return nil, err
	}

	// nfree starts at 1 with free[0] == 0: the end-of-chain sentinel that
	// every freed data block is stacked on top of.
	sb := &superblock{
		isize: uint16(isizeBlocks),
		fsize: uint16(numBlocks),
		nfree: 1,
	}
	v := &Volume{dev: dev, sb: sb, log: logrus.WithField("component", "v6fs")}

	dataStart := sb.dataBlockStart()
	// An existing backing file may still hold an earlier volume's metadata;
	// zero the boot block, superblock and i-node table explicitly.
	for b := BootBlock; b < dataStart; b++ {
		if err := v.zeroBlock(b); err != nil {
			dev.Close()
			return nil, err
		}
	}
	for b := numBlocks - 1; b >= dataStart; b-- {
		if err := v.free(b); err != nil {
			dev.Close()
			return nil, err
		}
	}

	// The root i-node is written directly into its slot rather than claimed
	// through claimInode: the cache is only populated afterward, by scanning
	// the table for whatever is still unallocated. This mirrors the original
	// core's initfs, which never round-trips the root through the same
	// getNewInodeNumber path cpin/mkdir use.
	root := &inode{flags: flagAllocated | inodeFlag(0o755)}
	root.setType(TypeDirectory)
	if err := v.saveInode(RootInodeNumber, root); err != nil {
		dev.Close()
		return nil, err
	}

	if err := v.refillInodeCache(); err != nil {
		dev.Close()
		return nil, err
	}

	// Root's ".." deliberately points at i-node 0 rather than back at itself:
	// this replicates the original core's initialization exactly rather than
	// silently correcting it. See DESIGN.md for the tradeoff.
	if err := v.initDirectory(RootInodeNumber, 0); err != nil {
		dev.Close()
		return nil, err
	}

	if err := v.Sync(); err != nil {
		dev.Close()
		return nil, err
	}
	v.log.WithFields(logrus.Fields{"path": pathName, "blocks": numBlocks, "isize": isizeBlocks}).Info("volume formatted")
	return v, nil
}

// makeNode claims a fresh i-node, stamps it with type t and permission
// perm, marks it allocated with one link, and saves it.
func (v *Volume) makeNode(t fileType, perm uint16) (int, error) {
	n, err := v.claimInode()
	if err != nil {
		return 0, err
	}
	i := &inode{flags: flagAllocated | inodeFlag(perm&0o777), nlinks: 1}
	i.setType(t)
	if err := v.saveInode(n, i); err != nil {
		return 0, err
	}
	return n, nil
}
