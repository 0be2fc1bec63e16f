//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris
// +build aix darwin dragonfly freebsd linux netbsd openbsd solaris

package vsfs

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/go-vsfs/vsfs-journal/backend"
)

// Lock is the external mutual-exclusion convention: exactly one invocation
// of Stage or Replay may operate on a given image at a time. It is an
// advisory flock(2) on the image file descriptor, held for the lifetime of
// one invocation. Two stagers racing without this lock (e.g. across a
// non-flock-aware caller) can still silently lose a transaction; this is
// not an internal locking scheme, just the external convention made
// concrete.
type Lock struct {
	fd int
}

// Acquire takes an exclusive, non-blocking advisory lock on the image's
// file descriptor. It returns an error immediately if another invocation
// already holds it, rather than blocking.
func Acquire(b backend.Storage) (*Lock, error) {
	f, err := b.Sys()
	if err != nil {
		return nil, fmt.Errorf("lock image: %w", err)
	}
	fd := int(f.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return nil, fmt.Errorf("lock image: another invocation holds it: %w", err)
	}
	return &Lock{fd: fd}, nil
}

// Release drops the lock.
func (l *Lock) Release() error {
	if err := unix.Flock(l.fd, unix.LOCK_UN); err != nil {
		return fmt.Errorf("unlock image: %w", err)
	}
	return nil
}
