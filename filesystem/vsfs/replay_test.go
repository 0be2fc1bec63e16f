package vsfs

import (
	"testing"

	"github.com/go-vsfs/vsfs-journal/image"
)

func TestReplayOnNeverStagedJournal(t *testing.T) {
	img := newFixtureImage(t)

	result, err := Replay(img)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if result.Initialized {
		t.Errorf("result = %+v, want Initialized=false on a freshly formatted image", result)
	}
}

func TestReplayOnEmptyJournal(t *testing.T) {
	img := newFixtureImage(t)

	hdr := journalHeader{magic: journalMagic, nbytesUsed: journalHeaderSize}
	if err := img.WriteAt(hdr.toBytes(), int64(JournalStart)*image.BlockSize); err != nil {
		t.Fatal(err)
	}

	result, err := Replay(img)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if !result.Initialized || !result.Empty {
		t.Errorf("result = %+v, want Initialized=true Empty=true", result)
	}
}

// TestReplayCrashBeforeHeaderPublish simulates a crash between writing a
// transaction's records and publishing the header that marks them
// committed: records are physically present in the journal region, but the
// header's nbytesUsed was never advanced past them. Replay must treat the
// journal as still empty and must not touch the target blocks.
func TestReplayCrashBeforeHeaderPublish(t *testing.T) {
	img := newFixtureImage(t)

	inodeBitmapBefore, err := img.ReadBlock(InodeBitmapIndex)
	if err != nil {
		t.Fatal(err)
	}

	initHdr := journalHeader{magic: journalMagic, nbytesUsed: journalHeaderSize}
	if err := img.WriteAt(initHdr.toBytes(), int64(JournalStart)*image.BlockSize); err != nil {
		t.Fatal(err)
	}

	a := newAppender(img, initHdr)
	bm := bitmapFromBytes(inodeBitmapBefore)
	bm.set(1)
	if err := a.appendData(InodeBitmapIndex, bm.toBytes()); err != nil {
		t.Fatal(err)
	}
	if err := a.appendCommit(); err != nil {
		t.Fatal(err)
	}
	// Deliberately do NOT call a.publish(): the header on disk still
	// reads nbytesUsed = journalHeaderSize, as if the process crashed
	// after writing the records but before the commit barrier.

	result, err := Replay(img)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if !result.Initialized || !result.Empty {
		t.Errorf("result = %+v, want Initialized=true Empty=true (unpublished records invisible)", result)
	}

	inodeBitmapAfter, err := img.ReadBlock(InodeBitmapIndex)
	if err != nil {
		t.Fatal(err)
	}
	if string(inodeBitmapAfter) != string(inodeBitmapBefore) {
		t.Error("Replay must not apply records that were never published via the header")
	}
}

// TestReplayCrashAfterHeaderPublish simulates the opposite order: the
// header was published (so the transaction counts as committed) before a
// crash. A subsequent install must find and apply it, and a second install
// afterward must be a clean no-op.
func TestReplayCrashAfterHeaderPublish(t *testing.T) {
	img := newFixtureImage(t)

	if _, err := Stage(img, "recovered.txt"); err != nil {
		t.Fatalf("Stage: %v", err)
	}

	first, err := Replay(img)
	if err != nil {
		t.Fatalf("first Replay: %v", err)
	}
	if first.CommittedTransactions != 1 {
		t.Fatalf("first Replay committed %d transactions, want 1", first.CommittedTransactions)
	}

	second, err := Replay(img)
	if err != nil {
		t.Fatalf("second Replay: %v", err)
	}
	if !second.Empty || second.CommittedTransactions != 0 {
		t.Errorf("second Replay = %+v, want a no-op on an already-truncated journal", second)
	}
}

// TestReplayDiscardsIncompleteTrailingTransaction covers a journal holding
// one fully committed transaction followed by a second transaction's data
// records with no commit record: the kind of tail a crash mid-Stage can
// leave behind. Replay must install the first transaction and silently
// discard the dangling tail.
func TestReplayDiscardsIncompleteTrailingTransaction(t *testing.T) {
	img := newFixtureImage(t)

	if _, err := Stage(img, "whole.txt"); err != nil {
		t.Fatalf("Stage: %v", err)
	}

	hdrBytes := make([]byte, journalHeaderSize)
	if err := img.ReadAt(hdrBytes, int64(JournalStart)*image.BlockSize); err != nil {
		t.Fatal(err)
	}
	hdr := journalHeaderFromBytes(hdrBytes)

	a := newAppender(img, hdr)
	payload := make([]byte, image.BlockSize)
	payload[0] = 0xEE
	if err := a.appendData(DataStartIndex, payload); err != nil {
		t.Fatal(err)
	}
	if err := a.publish(); err != nil {
		t.Fatal(err)
	}

	result, err := Replay(img)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if result.CommittedTransactions != 1 {
		t.Errorf("CommittedTransactions = %d, want 1 (only the whole transaction)", result.CommittedTransactions)
	}
	if !result.DiscardedTail {
		t.Error("DiscardedTail = false, want true for a dangling data record with no commit")
	}

	rootDataBlock, err := img.ReadBlock(DataStartIndex)
	if err != nil {
		t.Fatal(err)
	}
	if rootDataBlock[0] == 0xEE {
		t.Error("an uncommitted trailing data record must not be applied to its target block")
	}

	afterHdr := readJournalHeaderForTest(t, img)
	if afterHdr.nbytesUsed != journalHeaderSize {
		t.Errorf("journal not truncated after discarding the tail: nbytesUsed = %d", afterHdr.nbytesUsed)
	}
}

// TestReplayRejectsUnknownRecordType covers a format violation (an
// unrecognized record type) discovered mid-scan. Replay must still report
// an error, but — since nothing already applied to the main image is in
// doubt — it must reset the journal header rather than leaving it wedged
// forever on the bad record, matching cmd_install's unconditional reset
// after its scan loop breaks.
func TestReplayRejectsUnknownRecordType(t *testing.T) {
	img := newFixtureImage(t)

	hdr := journalHeader{magic: journalMagic, nbytesUsed: journalHeaderSize}
	a := newAppender(img, hdr)

	bogus := recordHeader{typ: 99, size: recordHeaderSize}
	if err := a.img.WriteAt(bogus.toBytes(), a.offset); err != nil {
		t.Fatal(err)
	}
	a.offset += recordHeaderSize
	a.hdr.nbytesUsed += recordHeaderSize
	if err := a.publish(); err != nil {
		t.Fatal(err)
	}

	if _, err := Replay(img); err == nil {
		t.Error("Replay with an unknown record type should return an error")
	}

	afterHdr := readJournalHeaderForTest(t, img)
	if afterHdr.nbytesUsed != journalHeaderSize {
		t.Errorf("journal not truncated after a format violation: nbytesUsed = %d, want %d", afterHdr.nbytesUsed, journalHeaderSize)
	}
}
