package vsfs

import (
	"bytes"
	"testing"

	"github.com/go-test/deep"

	"github.com/go-vsfs/vsfs-journal/image"
)

func TestJournalHeaderRoundTrip(t *testing.T) {
	want := journalHeader{magic: journalMagic, nbytesUsed: 12324}
	got := journalHeaderFromBytes(want.toBytes())
	if diff := deep.Equal(want, got); diff != nil {
		t.Errorf("journal header round trip: %v", diff)
	}
}

func TestJournalHeaderRejectsWrongMagic(t *testing.T) {
	b := make([]byte, journalHeaderSize)
	hdr := journalHeaderFromBytes(b)
	if hdr.magic == journalMagic {
		t.Fatal("zeroed header should not carry the journal magic")
	}
}

func TestRecordHeaderRoundTrip(t *testing.T) {
	tests := []recordHeader{
		{typ: recordTypeData, size: dataRecordSize},
		{typ: recordTypeCommit, size: commitRecordSize},
	}
	for _, want := range tests {
		got := recordHeaderFromBytes(want.toBytes())
		if diff := deep.Equal(want, got); diff != nil {
			t.Errorf("record header round trip for type %d: %v", want.typ, diff)
		}
	}
}

// TestDataRecordFraming verifies the record framing round-trip and the
// packed, no-padding layout between block_no and the payload: the block
// index sits at exactly bytes [4:8) and the payload at [8:8+B).
func TestDataRecordFraming(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, image.BlockSize)
	rec := encodeDataRecord(42, payload)

	if len(rec) != dataRecordSize {
		t.Fatalf("encoded data record is %d bytes, want %d", len(rec), dataRecordSize)
	}

	rh := recordHeaderFromBytes(rec[0:recordHeaderSize])
	if rh.typ != recordTypeData || int(rh.size) != dataRecordSize {
		t.Fatalf("decoded header = %+v, want type=%d size=%d", rh, recordTypeData, dataRecordSize)
	}

	target, gotPayload := decodeDataRecord(rec[recordHeaderSize:])
	if target != 42 {
		t.Errorf("target = %d, want 42", target)
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Error("payload did not round-trip byte-for-byte")
	}
}

func TestCommitRecordFraming(t *testing.T) {
	rec := encodeCommitRecord()
	if len(rec) != commitRecordSize {
		t.Fatalf("encoded commit record is %d bytes, want %d", len(rec), commitRecordSize)
	}
	rh := recordHeaderFromBytes(rec)
	if rh.typ != recordTypeCommit {
		t.Errorf("type = %d, want %d", rh.typ, recordTypeCommit)
	}
}

// TestCapacityBound verifies the capacity arithmetic: the largest N with
// 8 + N*(3*(8+4096)+4) <= 65536 is 5. TestJournalFullAfterFiveStages
// covers the 6th Stage actually failing.
func TestCapacityBound(t *testing.T) {
	const perTxn = uint64(transactionSize)
	n := 0
	used := uint64(journalHeaderSize)
	for used+perTxn <= uint64(JournalRegionBytes) {
		used += perTxn
		n++
	}
	if n != 5 {
		t.Fatalf("capacity math yields %d transactions before overflow, want 5", n)
	}
}
