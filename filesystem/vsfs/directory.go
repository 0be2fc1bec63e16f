package vsfs

import (
	"bytes"
	"encoding/binary"
)

// dirent is one 32-byte directory entry: a 4-byte inode number followed by
// a 28-byte NUL-terminated name. An entry is empty iff name[0] == 0.
type dirent struct {
	inode uint32
	name  string
}

// direntIsFree reports whether slot i of a directory data block is empty
// (name[0] == 0).
func direntIsFree(block []byte, i uint32) bool {
	off := i * DirentSize
	return block[off+4] == 0
}

// direntFromBytes decodes the directory entry at slot i of a directory data
// block.
func direntFromBytes(block []byte, i uint32) dirent {
	off := i * DirentSize
	nameField := block[off+4 : off+DirentSize]
	end := bytes.IndexByte(nameField, 0)
	if end < 0 {
		end = len(nameField)
	}
	return dirent{
		inode: binary.LittleEndian.Uint32(block[off : off+4]),
		name:  string(nameField[:end]),
	}
}

// putDirent writes inode number n and name (length-bounded, NUL-padded) into
// slot i of a directory data block.
func putDirent(block []byte, i uint32, n uint32, name string) {
	off := i * DirentSize
	entry := block[off : off+DirentSize]
	for j := range entry {
		entry[j] = 0
	}
	binary.LittleEndian.PutUint32(entry[0:4], n)
	copy(entry[4:4+DirentNameLen], name)
}
