package fio

import (
	"github.com/gofrs/flock"
)

// FileLocker guards exclusive ownership of the WAL file across processes;
// the Engine assumes exclusive access to wal_file (§6.4), enforced here
// rather than left to convention.
type FileLocker interface {
	TryLock() (bool, error)
	Unlock() error
}

const lockSuffix = ".lock"

// NewFlock returns a FileLocker for walFile, backed by a sibling
// "<walFile>.lock" file so the lock survives WAL truncation/recreation on
// Clear.
func NewFlock(walFile string) *flock.Flock {
	return flock.New(walFile + lockSuffix)
}
