package vsfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-vsfs/vsfs-journal/backend/file"
	"github.com/go-vsfs/vsfs-journal/image"
)

// newFixtureImage builds a freshly formatted vsfs image in a temp file:
// superblock at block 0, root directory inode (inode 0, type 2, links 2,
// direct[0] = DataStartIndex) in the inode table, a zeroed root directory
// data block, an inode bitmap with only bit 0 set, and a zeroed journal
// region. This mirrors the "freshly formatted image" precondition of
// spec.md's end-to-end scenarios.
func newFixtureImage(t *testing.T) *image.Image {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "vsfs.img")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture image: %v", err)
	}
	if err := f.Truncate(image.Size); err != nil {
		t.Fatalf("truncate fixture image: %v", err)
	}

	b := file.New(f, false)
	img := image.Open(b)

	sb := &superblock{
		magic:        superblockMagic,
		blockSize:    image.BlockSize,
		totalBlocks:  image.TotalBlocks,
		inodeCount:   InodeCount,
		journalBlock: JournalStart,
		inodeBitmap:  InodeBitmapIndex,
		dataBitmap:   DataBitmapIndex,
		inodeStart:   InodeStartIndex,
		dataStart:    DataStartIndex,
	}
	if err := img.WriteBlock(SuperblockIndex, sb.toBytes()); err != nil {
		t.Fatalf("write fixture superblock: %v", err)
	}

	inodeBitmap := make([]byte, image.BlockSize)
	inodeBitmap[0] = 0x01 // root inode (0) in use
	if err := img.WriteBlock(InodeBitmapIndex, inodeBitmap); err != nil {
		t.Fatalf("write fixture inode bitmap: %v", err)
	}

	if err := img.WriteBlock(DataBitmapIndex, make([]byte, image.BlockSize)); err != nil {
		t.Fatalf("write fixture data bitmap: %v", err)
	}

	inodeTableBlock0 := make([]byte, image.BlockSize)
	root := &inode{
		fileType: fileTypeDirectory,
		links:    2,
		size:     0,
	}
	root.direct[0] = DataStartIndex
	putInode(inodeTableBlock0, RootInodeNumber, root)
	if err := img.WriteBlock(InodeStartIndex, inodeTableBlock0); err != nil {
		t.Fatalf("write fixture inode table block 0: %v", err)
	}
	if err := img.WriteBlock(InodeStartIndex+1, make([]byte, image.BlockSize)); err != nil {
		t.Fatalf("write fixture inode table block 1: %v", err)
	}

	if err := img.WriteBlock(DataStartIndex, make([]byte, image.BlockSize)); err != nil {
		t.Fatalf("write fixture root directory data block: %v", err)
	}

	for i := JournalStart; i < JournalStart+JournalBlocks; i++ {
		if err := img.WriteBlock(i, make([]byte, image.BlockSize)); err != nil {
			t.Fatalf("zero fixture journal block %d: %v", i, err)
		}
	}

	t.Cleanup(func() { img.Close() })
	return img
}

// readJournalHeaderForTest is a test-only helper for inspecting the on-disk
// journal header directly.
func readJournalHeaderForTest(t *testing.T, img *image.Image) journalHeader {
	t.Helper()
	b := make([]byte, journalHeaderSize)
	if err := img.ReadAt(b, int64(JournalStart)*image.BlockSize); err != nil {
		t.Fatalf("read journal header: %v", err)
	}
	return journalHeaderFromBytes(b)
}
