// Package file implements a backend.Storage over a plain *os.File: an
// existing, pre-formatted vsfs image.
package file

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-vsfs/vsfs-journal/backend"
)

type rawBackend struct {
	storage  *os.File
	readOnly bool
}

// New wraps an already-open *os.File as a backend.Storage.
func New(f *os.File, readOnly bool) backend.Storage {
	return rawBackend{
		storage:  f,
		readOnly: readOnly,
	}
}

// OpenFromPath opens an existing vsfs image by path. The image must already
// exist and be formatted by the external mkfs precursor; this package never
// creates or formats one.
func OpenFromPath(pathName string, readOnly bool) (backend.Storage, error) {
	if pathName == "" {
		return nil, errors.New("must pass image file name")
	}

	if _, err := os.Stat(pathName); os.IsNotExist(err) {
		return nil, fmt.Errorf("image %s does not exist; run the mkfs tool first", pathName)
	}

	openMode := os.O_RDONLY
	if !readOnly {
		openMode |= os.O_RDWR
	}

	f, err := os.OpenFile(pathName, openMode, 0o600)
	if err != nil {
		return nil, fmt.Errorf("could not open image %s with mode %v: %w", pathName, openMode, err)
	}

	return rawBackend{
		storage:  f,
		readOnly: readOnly,
	}, nil
}

// backend.Storage interface guard
var _ backend.Storage = rawBackend{}

func (f rawBackend) Sys() (*os.File, error) {
	return f.storage, nil
}

func (f rawBackend) Writable() (backend.WritableFile, error) {
	if f.readOnly {
		return nil, backend.ErrIncorrectOpenMode
	}
	return f.storage, nil
}

func (f rawBackend) Stat() (os.FileInfo, error) {
	return f.storage.Stat()
}

func (f rawBackend) Close() error {
	return f.storage.Close()
}

func (f rawBackend) ReadAt(p []byte, off int64) (n int, err error) {
	return f.storage.ReadAt(p, off)
}
