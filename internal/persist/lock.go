// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package persist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another run holds the topic directory.
var ErrLocked = errors.New("output directory is in use by another run")

// DirLock keeps two runs from writing the same topic directory at once.
type DirLock struct {
	flock  *flock.Flock
	locked bool
}

// Lock takes the lock file at path without blocking. It returns ErrLocked
// when another process holds it.
func Lock(path string) (*DirLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	return &DirLock{flock: fl, locked: true}, nil
}

// Unlock releases the lock. Calling it again is a no-op.
func (l *DirLock) Unlock() error {
	if l == nil || !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("releasing lock: %w", err)
	}
	return nil
}
