package v6fs

import (
	"encoding/binary"
	"fmt"

	"github.com/diskfs/v6fs/verrors"
)

// inodeSize is the on-disk width of a single i-node record.
const inodeSize = 32

// numDirectAddrs is the width of the addr array carried in every i-node: 8
// direct block numbers for a small file, or 8 indirection block numbers for
// a large one.
const numDirectAddrs = 8

// inodeFlag is the set of bits packed into an i-node's flags word. Values are
// given in octal to match the original v6 bit layout exactly.
type inodeFlag uint16

const (
	flagAllocated inodeFlag = 0o100000
	flagTypeMask  inodeFlag = 0o060000
	flagLarge     inodeFlag = 0o010000
	flagSetUID    inodeFlag = 0o004000
	flagSetGID    inodeFlag = 0o002000
	flagSizeMSB   inodeFlag = 0o001000
	flagPermMask  inodeFlag = 0o000777
)

// fileType names the four kinds of file a v6 i-node can describe.
type fileType uint16

const (
	TypePlain       fileType = 0o000000
	TypeDirectory   fileType = 0o040000
	TypeCharSpecial fileType = 0o020000
	TypeBlockSpecial fileType = 0o060000
)

// Standard permission bits, in octal, matching Unix rwxrwxrwx.
const (
	PermOwnerRead  = 0o400
	PermOwnerWrite = 0o200
	PermOwnerExec  = 0o100
	PermGroupRead  = 0o040
	PermGroupWrite = 0o020
	PermGroupExec  = 0o010
	PermOtherRead  = 0o004
	PermOtherWrite = 0o002
	PermOtherExec  = 0o001
)

// maxFileSize is the largest byte length representable in the 26-bit size
// field (size_msb:size_hi:size_lo): 2^25 bytes, 32 MiB.
const maxFileSize = 1 << 25

// inode is the in-memory representation of one 32-byte i-node record.
type inode struct {
	flags   inodeFlag
	nlinks  uint8
	uid     uint8
	gid     uint8
	size    uint32 // only the low 26 bits are meaningful
	addr    [numDirectAddrs]uint16
	actime  [2]uint16
	modtime [2]uint16
}

const (
	inOffFlags   = 0
	inOffNlinks  = 2
	inOffUid     = 3
	inOffGid     = 4
	inOffSizeHi  = 5
	inOffSizeLo  = 6
	inOffAddr    = 8
	inOffActime  = 24
	inOffModtime = 28
)

func (i *inode) allocated() bool {
	return i.flags&flagAllocated != 0
}

func (i *inode) fileType() fileType {
	return fileType(i.flags & flagTypeMask)
}

func (i *inode) isDirectory() bool {
	return i.allocated() && i.fileType() == TypeDirectory
}

func (i *inode) isLarge() bool {
	return i.flags&flagLarge != 0
}

func (i *inode) perm() uint16 {
	return uint16(i.flags & flagPermMask)
}

// setType clears any previous file type and sets t, preserving every other
// flag bit.
func (i *inode) setType(t fileType) {
	i.flags = (i.flags &^ flagTypeMask) | inodeFlag(t)
}

// encodeInode serializes i into a fresh 32-byte record.
func encodeInode(i *inode) []byte {
	b := make([]byte, inodeSize)
	binary.LittleEndian.PutUint16(b[inOffFlags:], uint16(i.flags))
	b[inOffNlinks] = i.nlinks
	b[inOffUid] = i.uid
	b[inOffGid] = i.gid
	b[inOffSizeHi] = byte((i.size >> 16) & 0xff)
	binary.LittleEndian.PutUint16(b[inOffSizeLo:], uint16(i.size&0xffff))
	for idx, a := range i.addr {
		binary.LittleEndian.PutUint16(b[inOffAddr+idx*2:], a)
	}
	binary.LittleEndian.PutUint16(b[inOffActime:], i.actime[0])
	binary.LittleEndian.PutUint16(b[inOffActime+2:], i.actime[1])
	binary.LittleEndian.PutUint16(b[inOffModtime:], i.modtime[0])
	binary.LittleEndian.PutUint16(b[inOffModtime+2:], i.modtime[1])
	return b
}

// decodeInode parses a 32-byte record into an inode. b must be exactly
// inodeSize bytes.
func decodeInode(b []byte) (*inode, error) {
	if len(b) != inodeSize {
		return nil, fmt.Errorf("%w: inode record must be %d bytes, got %d", verrors.ErrInvalidInodeNumber, inodeSize, len(b))
	}
	i := &inode{}
	i.flags = inodeFlag(binary.LittleEndian.Uint16(b[inOffFlags:]))
	i.nlinks = b[inOffNlinks]
	i.uid = b[inOffUid]
	i.gid = b[inOffGid]
	sizeHi := uint32(b[inOffSizeHi])
	sizeLo := uint32(binary.LittleEndian.Uint16(b[inOffSizeLo:]))
	size := (sizeHi << 16) | sizeLo
	if i.flags&flagSizeMSB != 0 {
		size |= 1 << 25
	}
	i.size = size
	for idx := range i.addr {
		i.addr[idx] = binary.LittleEndian.Uint16(b[inOffAddr+idx*2:])
	}
	i.actime[0] = binary.LittleEndian.Uint16(b[inOffActime:])
	i.actime[1] = binary.LittleEndian.Uint16(b[inOffActime+2:])
	i.modtime[0] = binary.LittleEndian.Uint16(b[inOffModtime:])
	i.modtime[1] = binary.LittleEndian.Uint16(b[inOffModtime+2:])
	return i, nil
}

// fileSize returns the file's byte length as encoded in the size fields.
func (i *inode) fileSize() uint32 {
	return i.size
}

// setFileSize stores size in the size_msb/size_hi/size_lo fields, updating
// the MSB flag bit to match. The caller must ensure size <= maxFileSize.
func (i *inode) setFileSize(size uint32) {
	i.size = size
	if size&(1<<25) != 0 {
		i.flags |= flagSizeMSB
	} else {
		i.flags &^= flagSizeMSB
	}
}
