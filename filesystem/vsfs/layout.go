// Package vsfs implements the crash-consistent journaling core of the vsfs
// on-disk format: the superblock/inode/directory codec, the journal record
// format, the staging engine that appends a file-creation transaction, and
// the replay engine that installs committed transactions and truncates the
// journal.
//
// The package never mutates a target block outside of Replay; Stage writes
// only into the journal region.
package vsfs

import "github.com/go-vsfs/vsfs-journal/image"

// Block indices of the fixed vsfs layout.
const (
	SuperblockIndex  uint32 = 0
	JournalStart     uint32 = 1
	JournalBlocks    uint32 = 16
	InodeBitmapIndex uint32 = 17
	DataBitmapIndex  uint32 = 18
	InodeStartIndex  uint32 = 19
	InodeTableBlocks uint32 = 2
	DataStartIndex   uint32 = 21
	DataBlocks       uint32 = 64

	// RootInodeNumber is reserved; inode allocation starts at 1.
	RootInodeNumber uint32 = 0

	// InodeSize is the fixed on-disk size of one inode record.
	InodeSize = 128
	// InodesPerBlock is how many fixed-size inodes fit in one block.
	InodesPerBlock = image.BlockSize / InodeSize
	// InodeCount is the total number of inode slots across the inode table.
	InodeCount = InodesPerBlock * InodeTableBlocks

	// DirentSize is the fixed on-disk size of one directory entry.
	DirentSize = 32
	// DirentNameLen is the size of a directory entry's name field,
	// including its NUL terminator.
	DirentNameLen = 28
	// DirentsPerBlock is how many fixed-size directory entries fit in one
	// data block.
	DirentsPerBlock = image.BlockSize / DirentSize

	// JournalRegionBytes is the total byte capacity of the journal
	// region (16 blocks).
	JournalRegionBytes = int(JournalBlocks) * image.BlockSize
)

// inodeBlockForIndex returns the inode-table block index holding inode i,
// and i's offset (slot) within that block.
func inodeBlockForIndex(i uint32) (block uint32, slot uint32) {
	return InodeStartIndex + i/InodesPerBlock, i % InodesPerBlock
}
