package wal

import "fmt"

// ErrCorruptLog is returned from Open when a non-trailing record fails to
// decode cleanly. It is fatal: the caller must repair or discard the log
// before the engine can start (§7).
type ErrCorruptLog struct {
	Offset int64
	Err    error
}

func (e *ErrCorruptLog) Error() string {
	return fmt.Sprintf("wal: corrupt log at offset %d: %v", e.Offset, e.Err)
}

func (e *ErrCorruptLog) Unwrap() error {
	return e.Err
}

// ErrLocked is returned from Open when another process already holds the
// exclusive lock on wal_file.
var ErrLocked = fmt.Errorf("wal: file is locked by another process")

// ErrNonMonotonicSequence means a complete, well-formed record was decoded
// whose sequence number did not strictly increase over the previous record
// (I4) — corruption, not a torn tail, since the bytes decoded cleanly.
var ErrNonMonotonicSequence = fmt.Errorf("wal: sequence number did not increase")
