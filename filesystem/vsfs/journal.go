package vsfs

import (
	"encoding/binary"
	"fmt"

	"github.com/go-vsfs/vsfs-journal/image"
)

// journalMagic spells "JRNL" in its hex digits; stored little-endian, its
// on-disk bytes read "LNRJ".
const journalMagic uint32 = 0x4A524E4C

// journalHeaderSize is the on-disk size of the journal header: magic (4
// bytes) plus nbytesUsed (4 bytes).
const journalHeaderSize = 8

// recordHeaderSize is the on-disk size of a record header: type (2 bytes)
// plus size (2 bytes), packed back to back.
const recordHeaderSize = 4

// recordType identifies a journal record variant.
type recordType uint16

const (
	recordTypeData   recordType = 1
	recordTypeCommit recordType = 2
)

// dataRecordSize is the fixed on-disk size of a data record: record header,
// 4-byte target block index, and a full BlockSize payload, packed with no
// padding between the block index and the payload.
const dataRecordSize = recordHeaderSize + 4 + image.BlockSize

// commitRecordSize is the fixed on-disk size of a commit record: the
// record header only.
const commitRecordSize = recordHeaderSize

// transactionSize is the common-case size of one file-creation transaction:
// three data records (inode bitmap, target inode block, root directory
// block) plus one commit record. Stage emits a fourth data record, and a
// correspondingly larger transaction, when the newly allocated inode's
// block differs from the root inode's block (see Stage's capacity check).
const transactionSize = 3*dataRecordSize + commitRecordSize

// journalHeader is the 8-byte header at the start of the journal region
// (block JournalStart). It is authoritative for how much of the region is
// live; bytes beyond nbytesUsed are undefined.
type journalHeader struct {
	magic      uint32
	nbytesUsed uint32
}

func journalHeaderFromBytes(b []byte) journalHeader {
	return journalHeader{
		magic:      binary.LittleEndian.Uint32(b[0x0:0x4]),
		nbytesUsed: binary.LittleEndian.Uint32(b[0x4:0x8]),
	}
}

func (jh journalHeader) toBytes() []byte {
	b := make([]byte, journalHeaderSize)
	binary.LittleEndian.PutUint32(b[0x0:0x4], jh.magic)
	binary.LittleEndian.PutUint32(b[0x4:0x8], jh.nbytesUsed)
	return b
}

// recordHeader precedes every journal record.
type recordHeader struct {
	typ  recordType
	size uint16
}

func recordHeaderFromBytes(b []byte) recordHeader {
	return recordHeader{
		typ:  recordType(binary.LittleEndian.Uint16(b[0x0:0x2])),
		size: binary.LittleEndian.Uint16(b[0x2:0x4]),
	}
}

func (rh recordHeader) toBytes() []byte {
	b := make([]byte, recordHeaderSize)
	binary.LittleEndian.PutUint16(b[0x0:0x2], uint16(rh.typ))
	binary.LittleEndian.PutUint16(b[0x2:0x4], rh.size)
	return b
}

// encodeDataRecord packs a data record: header, target block index, and the
// full block payload, with no padding between the index and the payload.
func encodeDataRecord(target uint32, payload []byte) []byte {
	if len(payload) != image.BlockSize {
		panic(fmt.Sprintf("data record payload is %d bytes, want %d", len(payload), image.BlockSize))
	}
	rh := recordHeader{typ: recordTypeData, size: dataRecordSize}
	b := make([]byte, dataRecordSize)
	copy(b[0:recordHeaderSize], rh.toBytes())
	binary.LittleEndian.PutUint32(b[recordHeaderSize:recordHeaderSize+4], target)
	copy(b[recordHeaderSize+4:], payload)
	return b
}

// encodeCommitRecord packs a commit record: header only.
func encodeCommitRecord() []byte {
	rh := recordHeader{typ: recordTypeCommit, size: commitRecordSize}
	return rh.toBytes()
}

// decodeDataRecord splits a dataRecordSize-length record body (excluding the
// already-consumed record header) into its target block index and payload.
func decodeDataRecord(body []byte) (target uint32, payload []byte) {
	target = binary.LittleEndian.Uint32(body[0:4])
	payload = body[4 : 4+image.BlockSize]
	return target, payload
}
