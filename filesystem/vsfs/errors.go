package vsfs

import "errors"

var (
	// ErrBadSuperblockMagic is returned when block 0 does not carry the
	// vsfs superblock magic: the image was not formatted by the mkfs
	// precursor, or is not a vsfs image.
	ErrBadSuperblockMagic = errors.New("vsfs: superblock magic mismatch")

	// ErrNameTooLong is returned when a filename does not fit the
	// 28-byte directory entry name field (27 usable bytes plus NUL).
	ErrNameTooLong = errors.New("vsfs: filename too long")

	// ErrJournalFull is returned when staging a transaction would
	// exceed the 16-block journal region's capacity.
	ErrJournalFull = errors.New("vsfs: journal full")

	// ErrNoFreeInode is returned when every inode slot is in use.
	ErrNoFreeInode = errors.New("vsfs: no free inodes")

	// ErrNoRootDataBlock is returned when the root inode has no direct
	// block allocated: the image is malformed.
	ErrNoRootDataBlock = errors.New("vsfs: root inode has no data block")

	// ErrDirectoryFull is returned when the root directory's single data
	// block has no free entry slot.
	ErrDirectoryFull = errors.New("vsfs: root directory full")

	// ErrUnknownRecordType is returned by Replay (and by Stage's journal
	// pre-scan) on an unrecognized record header type; it is a format
	// violation. Replay stops the scan at that record, keeps the
	// transactions already applied, and resets the journal header.
	ErrUnknownRecordType = errors.New("vsfs: unknown journal record type")
)
