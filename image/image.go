// Package image implements the block I/O layer: positioned reads and writes
// of fixed-size blocks against a vsfs disk image, byte-exact, with no
// buffering of its own. Durability ordering across multiple writes is the
// caller's responsibility (see the vsfs package's staging and replay
// engines).
package image

import (
	"fmt"

	"github.com/go-vsfs/vsfs-journal/backend"
)

// BlockSize is the fixed block size, B, for every vsfs image. Variable block
// sizes are out of scope.
const BlockSize = 4096

// TotalBlocks is the fixed length of a vsfs image, in blocks.
const TotalBlocks = 85

// Size is the exact byte length of a valid vsfs image.
const Size = TotalBlocks * BlockSize

// Image is an open vsfs disk image: a fixed-layout sequence of BlockSize
// blocks. It does not interpret the layout beyond enforcing exact-length
// I/O; the filesystem/vsfs package owns the layout semantics.
type Image struct {
	Backend backend.Storage
}

// Open wraps an already-opened backend.Storage as an Image.
func Open(b backend.Storage) *Image {
	return &Image{Backend: b}
}

// ReadBlock reads exactly BlockSize bytes from block index i. A short read
// is a fatal I/O error: the caller cannot reason about a partial block.
func (img *Image) ReadBlock(i uint32) ([]byte, error) {
	buf := make([]byte, BlockSize)
	n, err := img.Backend.ReadAt(buf, int64(i)*BlockSize)
	if err != nil {
		return nil, fmt.Errorf("read block %d: %w", i, err)
	}
	if n != BlockSize {
		return nil, fmt.Errorf("short read of block %d: got %d of %d bytes", i, n, BlockSize)
	}
	return buf, nil
}

// ReadAt reads exactly len(p) bytes at byte offset off. A short read is
// fatal.
func (img *Image) ReadAt(p []byte, off int64) error {
	n, err := img.Backend.ReadAt(p, off)
	if err != nil {
		return fmt.Errorf("read at %d: %w", off, err)
	}
	if n != len(p) {
		return fmt.Errorf("short read at %d: got %d of %d bytes", off, n, len(p))
	}
	return nil
}

// WriteBlock writes exactly BlockSize bytes to block index i. A short write
// is a fatal I/O error.
func (img *Image) WriteBlock(i uint32, b []byte) error {
	if len(b) != BlockSize {
		return fmt.Errorf("write block %d: payload is %d bytes, want %d", i, len(b), BlockSize)
	}
	return img.WriteAt(b, int64(i)*BlockSize)
}

// WriteAt writes exactly len(p) bytes at byte offset off. A short write is
// fatal.
func (img *Image) WriteAt(p []byte, off int64) error {
	w, err := img.Backend.Writable()
	if err != nil {
		return err
	}
	n, err := w.WriteAt(p, off)
	if err != nil {
		return fmt.Errorf("write at %d: %w", off, err)
	}
	if n != len(p) {
		return fmt.Errorf("short write at %d: wrote %d of %d bytes", off, n, len(p))
	}
	return nil
}

// Validate checks that the backing file is exactly the expected size for a
// vsfs image.
func (img *Image) Validate() error {
	fi, err := img.Backend.Stat()
	if err != nil {
		return fmt.Errorf("stat image: %w", err)
	}
	if fi.Size() != Size {
		return fmt.Errorf("image is %d bytes, want exactly %d (%d blocks of %d bytes)", fi.Size(), Size, TotalBlocks, BlockSize)
	}
	return nil
}

// Close closes the underlying backend.
func (img *Image) Close() error {
	return img.Backend.Close()
}
