package wal

import (
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/kvwal/kvwal/fio"
)

// PutCallback and DeleteCallback are invoked by Replay for each decoded
// record, in file order.
type PutCallback func(key, value []byte)
type DeleteCallback func(key []byte)

// WriteAheadLog is a single-writer, many-readers-during-replay append-only
// log. All mutating operations hold mu; file byte order matches sequence
// order because of it (§4.3).
type WriteAheadLog struct {
	mu sync.Mutex

	path         string
	file         fio.IOManager
	locker       fio.FileLocker
	nextSequence uint64
	syncMode     bool
	log          hclog.Logger
	scratch      []byte // reused under mu across Append calls
}

// Options configures Open.
type Options struct {
	// SyncMode forces an OS-level disk barrier (fsync) after every Append
	// when true. When false, Append returns after the write syscall and
	// durability is best-effort until the OS flushes (§4.3).
	SyncMode bool
	// BufferSize is the initial capacity of the scratch buffer Append
	// reuses to compose each record (§6.3 wal_buffer_size); records larger
	// than this simply allocate, same as if BufferSize were 0.
	BufferSize int
	Logger     hclog.Logger
}

// Open opens (creating if necessary) the WAL at path, acquires an exclusive
// cross-process lock on it, and replays it to learn the next sequence
// number. onPut/onDelete are invoked for every record found, in file order,
// to let the caller (the Engine) rebuild its in-memory state before
// accepting new writes.
func Open(path string, opts Options, onPut PutCallback, onDelete DeleteCallback) (*WriteAheadLog, error) {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	locker := fio.NewFlock(path)
	locked, err := locker.TryLock()
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ErrLocked
	}

	f, err := fio.NewFileIO(path)
	if err != nil {
		_ = locker.Unlock()
		return nil, err
	}

	w := &WriteAheadLog{
		path:     path,
		file:     f,
		locker:   locker,
		syncMode: opts.SyncMode,
		log:      logger,
		scratch:  make([]byte, 0, opts.BufferSize),
	}

	maxSeq, err := w.replay(onPut, onDelete)
	if err != nil {
		_ = f.Close()
		_ = locker.Unlock()
		return nil, err
	}
	w.nextSequence = maxSeq + 1

	logger.Info("wal recovered", "path", path, "next_sequence", w.nextSequence)
	return w, nil
}

// Append assigns the next sequence number, composes the record, writes it in
// one call (retrying the remainder on a short write), optionally forces a
// disk barrier, and returns the assigned sequence. On any I/O error nothing
// observable to callers has advanced: the caller must not mutate the map.
func (w *WriteAheadLog) Append(op Op, key, value []byte) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	seq := w.nextSequence
	rec := Record{
		Sequence:    seq,
		TimestampMs: uint64(time.Now().UnixMilli()),
		Op:          op,
		Key:         key,
		Value:       value,
	}
	data := EncodeInto(w.scratch, rec)
	w.scratch = data

	if err := writeFull(w.file, data); err != nil {
		return 0, err
	}

	if w.syncMode {
		if err := w.file.Sync(); err != nil {
			return 0, err
		}
	}

	w.nextSequence++
	return seq, nil
}

func writeFull(f fio.IOManager, data []byte) error {
	written := 0
	for written < len(data) {
		n, err := f.Write(data[written:])
		if err != nil {
			return err
		}
		written += n
	}
	return nil
}

// replay reads the file from offset 0, decoding records and invoking the
// matching callback. A torn trailing record is discarded silently and the
// file is truncated to drop it, so the next Append lands directly after the
// last complete record. A corrupt non-trailing record aborts with
// ErrCorruptLog. Returns the highest sequence number seen (0 if empty).
func (w *WriteAheadLog) replay(onPut PutCallback, onDelete DeleteCallback) (uint64, error) {
	size, err := w.file.Size()
	if err != nil {
		return 0, err
	}
	if size == 0 {
		return 0, nil
	}

	data := make([]byte, size)
	if _, err := w.file.Read(data, 0); err != nil {
		return 0, err
	}

	var (
		offset    int64
		maxSeq    uint64
		lastSeq   uint64
		sawRecord bool
	)

	for offset < size {
		rec, consumed, err := Decode(data[offset:])
		if err == ErrTornTail {
			w.log.Warn("discarding torn trailing wal record", "offset", offset, "remaining_bytes", size-offset)
			break
		}
		if err != nil {
			return 0, &ErrCorruptLog{Offset: offset, Err: err}
		}
		if sawRecord && rec.Sequence <= lastSeq {
			return 0, &ErrCorruptLog{Offset: offset, Err: ErrNonMonotonicSequence}
		}

		switch rec.Op {
		case OpPut:
			onPut(rec.Key, rec.Value)
		case OpDelete:
			onDelete(rec.Key)
		}

		if rec.Sequence > maxSeq {
			maxSeq = rec.Sequence
		}
		lastSeq = rec.Sequence
		sawRecord = true
		offset += consumed
	}

	if offset < size {
		if err := w.file.Truncate(offset); err != nil {
			return 0, err
		}
	}

	return maxSeq, nil
}

// Clear closes the file, deletes it, resets the sequence counter to 0, and
// recreates an empty file. The caller (Engine) must hold no references to
// in-memory data derived from the prior log before calling this.
func (w *WriteAheadLog) Clear() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.file.Close(); err != nil {
		return err
	}
	if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
		return err
	}

	f, err := fio.NewFileIO(w.path)
	if err != nil {
		return err
	}
	w.file = f
	w.nextSequence = 0
	return nil
}

// Size returns the current byte length of the log file.
func (w *WriteAheadLog) Size() (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	size, err := w.file.Size()
	if err != nil {
		return 0, err
	}
	return uint64(size), nil
}

// Close releases the underlying file and the cross-process lock.
func (w *WriteAheadLog) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	err := w.file.Close()
	if unlockErr := w.locker.Unlock(); unlockErr != nil && err == nil {
		err = unlockErr
	}
	return err
}
