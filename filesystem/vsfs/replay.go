package vsfs

import (
	"fmt"

	"github.com/go-vsfs/vsfs-journal/image"
)

// ReplayResult reports the outcome of a successful Replay call.
type ReplayResult struct {
	// Initialized is false if the journal had never been staged; no
	// scan was performed.
	Initialized bool
	// Empty is true if the journal was initialized but carried no
	// records (nbytesUsed == journalHeaderSize).
	Empty bool
	// CommittedTransactions is the number of transactions whose records
	// were applied to the main image.
	CommittedTransactions int
	// DiscardedTail is true if an incomplete trailing transaction was
	// found and discarded.
	DiscardedTail bool
}

// pendingWrite is an indexed view into the in-memory journal buffer: the
// buffer must outlive it, and it must not outlive the buffer. Using an
// offset rather than a raw pointer into the buffer makes that borrow
// relationship explicit and keeps the buffer's lifetime scoped to Replay.
type pendingWrite struct {
	target uint32
	offset int // byte offset of the BlockSize payload within the journal buffer
}

// Replay scans the journal, applies every committed transaction's data
// records to their target blocks, and truncates the journal.
//
// All target-block writes for a transaction happen strictly between
// observing its commit record and advancing the scan cursor past it; the
// header reset happens only after the scan completes, so a crash between
// writes and reset is recoverable (the journal still holds the records).
//
// Two kinds of scan failure are distinguished. A target-block write
// failure is a true I/O failure (§7): the image may be mid-update, so the
// header is left untouched and the error returned immediately, matching
// the durability-gap note in §4.4 — an untouched header lets a retry
// complete the same transaction instead of losing it. An unknown record
// type is a format violation in the unparsed remainder of the region; it
// does not put any already-applied block in doubt, so the header is reset
// to truncate the bad remainder (matching the C original's cmd_install,
// which breaks out of its scan loop and still resets nbytes_used) before
// the error is returned.
func Replay(img *image.Image) (*ReplayResult, error) {
	hdrBytes := make([]byte, journalHeaderSize)
	if err := img.ReadAt(hdrBytes, int64(JournalStart)*image.BlockSize); err != nil {
		return nil, fmt.Errorf("read journal header: %w", err)
	}
	hdr := journalHeaderFromBytes(hdrBytes)

	if hdr.magic != journalMagic {
		return &ReplayResult{Initialized: false}, nil
	}
	if hdr.nbytesUsed == journalHeaderSize {
		return &ReplayResult{Initialized: true, Empty: true}, nil
	}

	journalBuf := make([]byte, JournalRegionBytes)
	if err := img.ReadAt(journalBuf, int64(JournalStart)*image.BlockSize); err != nil {
		return nil, fmt.Errorf("read journal region: %w", err)
	}

	var pending []pendingWrite
	committed := 0
	cursor := uint32(journalHeaderSize)
	var formatErr error

scan:
	for cursor < hdr.nbytesUsed {
		if cursor+recordHeaderSize > hdr.nbytesUsed {
			break // truncated record header at end of region
		}
		rh := recordHeaderFromBytes(journalBuf[cursor : cursor+recordHeaderSize])
		if cursor+uint32(rh.size) > hdr.nbytesUsed {
			break // truncated record body at end of region
		}

		switch rh.typ {
		case recordTypeData:
			target, _ := decodeDataRecord(journalBuf[cursor+recordHeaderSize : cursor+uint32(rh.size)])
			pending = append(pending, pendingWrite{
				target: target,
				offset: int(cursor) + recordHeaderSize + 4,
			})
		case recordTypeCommit:
			for _, pw := range pending {
				payload := journalBuf[pw.offset : pw.offset+image.BlockSize]
				if err := img.WriteBlock(pw.target, payload); err != nil {
					return nil, fmt.Errorf("install block %d: %w", pw.target, err)
				}
			}
			committed++
			pending = pending[:0]
		default:
			formatErr = fmt.Errorf("%w: type %d at offset %d", ErrUnknownRecordType, rh.typ, cursor)
			break scan
		}

		cursor += uint32(rh.size)
	}

	discardedTail := len(pending) > 0

	hdr.nbytesUsed = journalHeaderSize
	if err := img.WriteAt(hdr.toBytes(), int64(JournalStart)*image.BlockSize); err != nil {
		return nil, fmt.Errorf("reset journal header: %w", err)
	}

	if formatErr != nil {
		return nil, formatErr
	}

	return &ReplayResult{
		Initialized:           true,
		Empty:                 false,
		CommittedTransactions: committed,
		DiscardedTail:         discardedTail,
	}, nil
}
