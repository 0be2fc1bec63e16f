package vsfs

import (
	"encoding/binary"
	"fmt"

	"github.com/go-vsfs/vsfs-journal/image"
)

type fileType uint16

const (
	fileTypeRegular   fileType = 1
	fileTypeDirectory fileType = 2

	directPointerCount = 8
)

// inode mirrors the fixed 128-byte on-disk inode record.
type inode struct {
	fileType fileType
	links    uint16
	size     uint32
	direct   [directPointerCount]uint32
	ctime    uint32
	mtime    uint32
}

// inodeFromBytes decodes the inode at byte offset slot*InodeSize within a
// 4096-byte inode-table block.
func inodeFromBytes(block []byte, slot uint32) (*inode, error) {
	off := slot * InodeSize
	if int(off)+InodeSize > len(block) {
		return nil, fmt.Errorf("inode slot %d out of range for a %d-byte block", slot, len(block))
	}
	b := block[off : off+InodeSize]

	i := &inode{
		fileType: fileType(binary.LittleEndian.Uint16(b[0x00:0x02])),
		links:    binary.LittleEndian.Uint16(b[0x02:0x04]),
		size:     binary.LittleEndian.Uint32(b[0x04:0x08]),
		ctime:    binary.LittleEndian.Uint32(b[0x28:0x2c]),
		mtime:    binary.LittleEndian.Uint32(b[0x2c:0x30]),
	}
	for d := 0; d < directPointerCount; d++ {
		i.direct[d] = binary.LittleEndian.Uint32(b[0x08+4*d : 0x0c+4*d])
	}
	return i, nil
}

// putInode encodes i into block at byte offset slot*InodeSize, in place.
// The rest of the block is left untouched.
func putInode(block []byte, slot uint32, i *inode) {
	off := slot * InodeSize
	b := block[off : off+InodeSize]
	for j := range b {
		b[j] = 0
	}
	binary.LittleEndian.PutUint16(b[0x00:0x02], uint16(i.fileType))
	binary.LittleEndian.PutUint16(b[0x02:0x04], i.links)
	binary.LittleEndian.PutUint32(b[0x04:0x08], i.size)
	for d := 0; d < directPointerCount; d++ {
		binary.LittleEndian.PutUint32(b[0x08+4*d:0x0c+4*d], i.direct[d])
	}
	binary.LittleEndian.PutUint32(b[0x28:0x2c], i.ctime)
	binary.LittleEndian.PutUint32(b[0x2c:0x30], i.mtime)
}

// readInode reads the inode table block containing inode number n and
// decodes it.
func readInode(img *image.Image, n uint32) (*inode, []byte, uint32, error) {
	blockIdx, slot := inodeBlockForIndex(n)
	block, err := img.ReadBlock(blockIdx)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("read inode table block for inode %d: %w", n, err)
	}
	i, err := inodeFromBytes(block, slot)
	if err != nil {
		return nil, nil, 0, err
	}
	return i, block, blockIdx, nil
}
