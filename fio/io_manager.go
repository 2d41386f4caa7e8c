// Package fio abstracts the file operations the WAL needs: append-mode
// read/write, an OS-level durability barrier, size, and truncation (used to
// drop a torn trailing record). Kept as its own package, as in the teacher
// repo. The WAL holds its file through the IOManager interface, but wal.Open
// always constructs a FileIO; no option selects another implementation.
package fio

// IOManager is the file abstraction the WAL is built on.
type IOManager interface {
	Read([]byte, int64) (int, error)
	Write([]byte) (int, error)
	Sync() error
	Close() error
	Size() (int64, error)
	Truncate(size int64) error
}
