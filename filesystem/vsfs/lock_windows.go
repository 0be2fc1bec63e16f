//go:build windows

package vsfs

import (
	"errors"

	"github.com/go-vsfs/vsfs-journal/backend"
)

// Lock is unsupported on this platform: Acquire always returns an error,
// so no image can be locked here.
type Lock struct{}

func Acquire(b backend.Storage) (*Lock, error) {
	return nil, errors.New("vsfs: advisory image locking is not supported on this platform")
}

func (l *Lock) Release() error {
	return nil
}
