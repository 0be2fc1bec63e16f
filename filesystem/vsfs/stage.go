package vsfs

import (
	"fmt"

	"github.com/go-vsfs/vsfs-journal/image"
)

// StageResult reports the outcome of a successful Stage call.
type StageResult struct {
	Filename      string
	Inode         uint32
	JournalOffset uint32 // nbytesUsed after this transaction was published
}

// appender bundles the journal file descriptor context (image, header,
// write cursor) that accretes across a transaction's records. It expresses
// the same scoped, shared-mutable-state contract as a closure that appends
// one record at a time and advances both the cursor and the header's
// nbytesUsed in lockstep.
type appender struct {
	img    *image.Image
	hdr    journalHeader
	offset int64 // absolute byte offset of the next write
}

func newAppender(img *image.Image, hdr journalHeader) *appender {
	return &appender{
		img:    img,
		hdr:    hdr,
		offset: int64(JournalStart)*image.BlockSize + int64(hdr.nbytesUsed),
	}
}

// appendData writes one data record and advances the cursor and header.
func (a *appender) appendData(target uint32, payload []byte) error {
	rec := encodeDataRecord(target, payload)
	if err := a.img.WriteAt(rec, a.offset); err != nil {
		return fmt.Errorf("append data record for block %d: %w", target, err)
	}
	a.offset += int64(len(rec))
	a.hdr.nbytesUsed += uint32(len(rec))
	return nil
}

// appendCommit writes the commit record and advances the cursor and header.
func (a *appender) appendCommit() error {
	rec := encodeCommitRecord()
	if err := a.img.WriteAt(rec, a.offset); err != nil {
		return fmt.Errorf("append commit record: %w", err)
	}
	a.offset += int64(len(rec))
	a.hdr.nbytesUsed += uint32(len(rec))
	return nil
}

// publish writes the updated journal header back to the journal offset.
// This is the commit barrier: only after this write do the records just
// appended count as committed and visible to Replay.
func (a *appender) publish() error {
	return a.img.WriteAt(a.hdr.toBytes(), int64(JournalStart)*image.BlockSize)
}

// Stage builds and appends one file-creation transaction to the journal.
// It never mutates any block outside the journal region; all mutation to
// the bitmap, inode table, and root directory is deferred to Replay.
//
// Allocation reads every block through the pending overlay (see
// pendingOverlay), which layers the blocks already staged-but-not-yet-
// installed transactions would produce on top of the on-disk state.
// Without this, two creates staged without an intervening install would
// both read identical on-disk blocks and collide on the same inode and
// directory slot; the overlay makes consecutive stages accumulate.
func Stage(img *image.Image, filename string) (*StageResult, error) {
	if len(filename) >= DirentNameLen {
		return nil, ErrNameTooLong
	}

	sb, err := readSuperblock(img)
	if err != nil {
		return nil, err
	}

	hdr, err := loadOrInitJournalHeader(img)
	if err != nil {
		return nil, err
	}

	overlay, err := pendingOverlay(img, *hdr)
	if err != nil {
		return nil, err
	}

	inodeBitmapBlock, err := readBlockLogical(img, overlay, InodeBitmapIndex)
	if err != nil {
		return nil, fmt.Errorf("read inode bitmap: %w", err)
	}
	inodeBitmap := bitmapFromBytes(inodeBitmapBlock)
	freeInode := inodeBitmap.findFirstFree(1, sb.inodeCount)
	if freeInode < 0 {
		return nil, ErrNoFreeInode
	}
	newInodeNum := uint32(freeInode)

	rootInode, rootInodeBlock, rootInodeBlockIdx, err := readInodeLogical(img, overlay, RootInodeNumber)
	if err != nil {
		return nil, err
	}
	if rootInode.direct[0] == 0 {
		return nil, ErrNoRootDataBlock
	}
	rootDataBlockIdx := rootInode.direct[0]

	rootDataBlock, err := readBlockLogical(img, overlay, rootDataBlockIdx)
	if err != nil {
		return nil, fmt.Errorf("read root directory data block: %w", err)
	}

	freeSlot := -1
	for i := uint32(0); i < DirentsPerBlock; i++ {
		if direntIsFree(rootDataBlock, i) {
			freeSlot = int(i)
			break
		}
	}
	if freeSlot < 0 {
		return nil, ErrDirectoryFull
	}
	slot := uint32(freeSlot)

	targetInodeBlockIdx, inodeSlot := inodeBlockForIndex(newInodeNum)
	rootBlockIsTargetBlock := targetInodeBlockIdx == rootInodeBlockIdx

	// Reserve capacity. A file-creation transaction holds three data
	// records (inode bitmap, target inode block, root directory block)
	// plus one commit record, unless the newly allocated inode lives in
	// a different inode-table block than the root: then a fourth data
	// record carries the root inode's own block.
	dataRecords := 3
	if !rootBlockIsTargetBlock {
		dataRecords = 4
	}
	txnSize := uint64(dataRecords)*uint64(dataRecordSize) + uint64(commitRecordSize)
	if uint64(hdr.nbytesUsed)+txnSize > uint64(JournalRegionBytes) {
		return nil, ErrJournalFull
	}

	// Compute new block images in memory. No image writes happen until
	// the transaction is appended to the journal.
	inodeBitmap.set(newInodeNum)

	// The target inode block is the root inode's own block when they
	// coincide; reuse the one logical copy already read above rather
	// than reading it again.
	targetBlock := rootInodeBlock
	if !rootBlockIsTargetBlock {
		targetBlock, err = readBlockLogical(img, overlay, targetInodeBlockIdx)
		if err != nil {
			return nil, fmt.Errorf("read target inode table block: %w", err)
		}
	}

	now := currentWallClockSeconds()
	newFileInode := &inode{
		fileType: fileTypeRegular,
		links:    1,
		size:     0,
		ctime:    now,
		mtime:    now,
	}
	putInode(targetBlock, inodeSlot, newFileInode)

	// When the root inode shares the target inode block, grow its size
	// in that same in-memory image rather than via a separate record.
	if rootBlockIsTargetBlock {
		growRootSizeInPlace(targetBlock, slot)
	}

	putDirent(rootDataBlock, slot, newInodeNum, filename)

	a := newAppender(img, *hdr)
	if err := a.appendData(InodeBitmapIndex, inodeBitmap.toBytes()); err != nil {
		return nil, err
	}
	if err := a.appendData(targetInodeBlockIdx, targetBlock); err != nil {
		return nil, err
	}
	if err := a.appendData(rootDataBlockIdx, rootDataBlock); err != nil {
		return nil, err
	}
	if !rootBlockIsTargetBlock {
		// The root inode's block differs from the newly allocated
		// inode's block: grow its size with its own data record so the
		// directory-size-monotonicity invariant holds generally, not
		// just for this layout's two-block inode table.
		growRootSizeInPlace(rootInodeBlock, slot)
		if err := a.appendData(rootInodeBlockIdx, rootInodeBlock); err != nil {
			return nil, err
		}
	}
	if err := a.appendCommit(); err != nil {
		return nil, err
	}

	if err := a.publish(); err != nil {
		return nil, fmt.Errorf("publish journal header: %w", err)
	}

	return &StageResult{
		Filename:      filename,
		Inode:         newInodeNum,
		JournalOffset: a.hdr.nbytesUsed,
	}, nil
}

// pendingOverlay scans the journal for transactions already staged but
// not yet installed, returning the most recent in-memory image of every
// block one of them wrote, keyed by block index. Only fully committed
// transactions contribute: this mirrors Replay's own scan so staging and
// replay agree on what "logically exists" means. Stage reads every block
// through this overlay (see readBlockLogical) instead of the raw on-disk
// image, so consecutive creates without an intervening install allocate
// against each other's pending state rather than colliding.
func pendingOverlay(img *image.Image, hdr journalHeader) (map[uint32][]byte, error) {
	overlay := make(map[uint32][]byte)
	if hdr.nbytesUsed == journalHeaderSize {
		return overlay, nil
	}

	journalBuf := make([]byte, JournalRegionBytes)
	if err := img.ReadAt(journalBuf, int64(JournalStart)*image.BlockSize); err != nil {
		return nil, fmt.Errorf("read journal region: %w", err)
	}

	var pending []pendingWrite
	cursor := uint32(journalHeaderSize)
	for cursor < hdr.nbytesUsed {
		if cursor+recordHeaderSize > hdr.nbytesUsed {
			break
		}
		rh := recordHeaderFromBytes(journalBuf[cursor : cursor+recordHeaderSize])
		if cursor+uint32(rh.size) > hdr.nbytesUsed {
			break
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
				buf := make([]byte, image.BlockSize)
				copy(buf, journalBuf[pw.offset:pw.offset+image.BlockSize])
				overlay[pw.target] = buf
			}
			pending = pending[:0]
		default:
			return nil, fmt.Errorf("%w: type %d at offset %d", ErrUnknownRecordType, rh.typ, cursor)
		}

		cursor += uint32(rh.size)
	}
	return overlay, nil
}

// readBlockLogical returns block i's current logical image: the pending
// overlay's image if one exists, else the on-disk block. The returned
// slice is always a fresh copy safe for the caller to mutate in place.
func readBlockLogical(img *image.Image, overlay map[uint32][]byte, i uint32) ([]byte, error) {
	if b, ok := overlay[i]; ok {
		out := make([]byte, image.BlockSize)
		copy(out, b)
		return out, nil
	}
	return img.ReadBlock(i)
}

// readInodeLogical reads and decodes inode n from its logical inode-table
// block (see readBlockLogical), returning the decoded inode, the mutable
// block bytes it lives in, and that block's index.
func readInodeLogical(img *image.Image, overlay map[uint32][]byte, n uint32) (*inode, []byte, uint32, error) {
	blockIdx, slot := inodeBlockForIndex(n)
	block, err := readBlockLogical(img, overlay, blockIdx)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("read inode table block for inode %d: %w", n, err)
	}
	i, err := inodeFromBytes(block, slot)
	if err != nil {
		return nil, nil, 0, err
	}
	return i, block, blockIdx, nil
}

// growRootSizeInPlace grows the root inode's size within an inode-table
// block image so that it reflects at least (slot+1) directory entries.
// Root inode size never decreases across stages.
func growRootSizeInPlace(block []byte, slot uint32) {
	root, err := inodeFromBytes(block, RootInodeNumber)
	if err != nil {
		// RootInodeNumber is always slot 0 of a valid inode-table
		// block; a decode failure here means the block is too short,
		// which can only happen if the image itself is malformed.
		panic(err)
	}
	newSize := (slot + 1) * DirentSize
	if root.size < newSize {
		root.size = newSize
		putInode(block, RootInodeNumber, root)
	}
}

// loadOrInitJournalHeader reads the 8-byte journal header; if its magic is
// absent, it synthesizes a fresh in-memory header (magic set, nbytesUsed =
// 8) without writing it back yet.
func loadOrInitJournalHeader(img *image.Image) (*journalHeader, error) {
	b := make([]byte, journalHeaderSize)
	if err := img.ReadAt(b, int64(JournalStart)*image.BlockSize); err != nil {
		return nil, fmt.Errorf("read journal header: %w", err)
	}
	hdr := journalHeaderFromBytes(b)
	if hdr.magic != journalMagic {
		hdr = journalHeader{magic: journalMagic, nbytesUsed: journalHeaderSize}
	}
	return &hdr, nil
}
