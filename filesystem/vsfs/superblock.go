package vsfs

import (
	"encoding/binary"
	"fmt"

	"github.com/go-vsfs/vsfs-journal/image"
)

// superblockMagic spells "VSFS" in its hex digits; stored little-endian, its
// on-disk bytes read "SFSV".
const superblockMagic uint32 = 0x56534653

// superblock mirrors the fixed 128-byte-used layout of block 0.
type superblock struct {
	magic        uint32
	blockSize    uint32
	totalBlocks  uint32
	inodeCount   uint32
	journalBlock uint32
	inodeBitmap  uint32
	dataBitmap   uint32
	inodeStart   uint32
	dataStart    uint32
}

// readSuperblock reads and validates block 0.
func readSuperblock(img *image.Image) (*superblock, error) {
	b, err := img.ReadBlock(SuperblockIndex)
	if err != nil {
		return nil, fmt.Errorf("read superblock: %w", err)
	}
	sb := superblockFromBytes(b)
	if sb.magic != superblockMagic {
		return nil, ErrBadSuperblockMagic
	}
	return sb, nil
}

func superblockFromBytes(b []byte) *superblock {
	return &superblock{
		magic:        binary.LittleEndian.Uint32(b[0x00:0x04]),
		blockSize:    binary.LittleEndian.Uint32(b[0x04:0x08]),
		totalBlocks:  binary.LittleEndian.Uint32(b[0x08:0x0c]),
		inodeCount:   binary.LittleEndian.Uint32(b[0x0c:0x10]),
		journalBlock: binary.LittleEndian.Uint32(b[0x10:0x14]),
		inodeBitmap:  binary.LittleEndian.Uint32(b[0x14:0x18]),
		dataBitmap:   binary.LittleEndian.Uint32(b[0x18:0x1c]),
		inodeStart:   binary.LittleEndian.Uint32(b[0x1c:0x20]),
		dataStart:    binary.LittleEndian.Uint32(b[0x20:0x24]),
	}
}

func (sb *superblock) toBytes() []byte {
	b := make([]byte, image.BlockSize)
	binary.LittleEndian.PutUint32(b[0x00:0x04], sb.magic)
	binary.LittleEndian.PutUint32(b[0x04:0x08], sb.blockSize)
	binary.LittleEndian.PutUint32(b[0x08:0x0c], sb.totalBlocks)
	binary.LittleEndian.PutUint32(b[0x0c:0x10], sb.inodeCount)
	binary.LittleEndian.PutUint32(b[0x10:0x14], sb.journalBlock)
	binary.LittleEndian.PutUint32(b[0x14:0x18], sb.inodeBitmap)
	binary.LittleEndian.PutUint32(b[0x18:0x1c], sb.dataBitmap)
	binary.LittleEndian.PutUint32(b[0x1c:0x20], sb.inodeStart)
	binary.LittleEndian.PutUint32(b[0x20:0x24], sb.dataStart)
	return b
}
