package kvwal

import (
	"github.com/kvwal/kvwal/shardmap"
	"github.com/kvwal/kvwal/wal"
)

// Engine composes a ShardedMap and a WriteAheadLog behind the strict
// WAL-first ordering rule of §4.4: every mutation is durably appended
// before it is applied to the map, so a mutation never becomes visible
// before it is durable.
type Engine struct {
	opts *options
	m    *shardmap.ShardedMap
	w    *wal.WriteAheadLog
}

// Open creates the ShardedMap empty, then rebuilds it from the WAL at
// walFile before accepting any writes (§4.4 Recovery). If the WAL contains
// a non-trailing corrupt record, Open fails and the Engine refuses to
// start.
func Open(opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	m := shardmap.New(o.numSegments, o.initialBucketSize)

	onPut := func(key, value []byte) { m.Insert(key, value) }
	onDelete := func(key []byte) { m.Remove(key) }

	w, err := wal.Open(o.walFile, wal.Options{
		SyncMode:   o.syncWal,
		BufferSize: o.walBufferSize,
		Logger:     o.logger,
	}, onPut, onDelete)
	if err != nil {
		return nil, err
	}

	return &Engine{opts: o, m: m, w: w}, nil
}

func (e *Engine) validateKey(key []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	if len(key) > e.opts.maxKeySize {
		return ErrKeyTooLarge
	}
	return nil
}

func (e *Engine) validateValue(value []byte) error {
	if len(value) > e.opts.maxValueSize {
		return ErrValueTooLarge
	}
	return nil
}

// Put durably appends a PUT record, then applies it to the map, per the
// ordering rule PUT(k,v): wal.append -> ok -> map.insert -> reply OK; on a
// WAL error the map is left unchanged and the error is returned.
func (e *Engine) Put(key, value []byte) error {
	if err := e.validateKey(key); err != nil {
		return err
	}
	if err := e.validateValue(value); err != nil {
		return err
	}

	if _, err := e.w.Append(wal.OpPut, key, value); err != nil {
		e.opts.logger.Error("wal append failed", "op", "put", "error", err)
		return &WalError{Err: err}
	}

	e.m.Insert(key, value)
	return nil
}

// Get returns a copy of the value stored under key, or ErrNotFound.
func (e *Engine) Get(key []byte) ([]byte, error) {
	if err := e.validateKey(key); err != nil {
		return nil, err
	}
	v, ok := e.m.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

// Delete durably appends a DELETE record (even for an absent key — the
// sequence is still consumed) then removes the key from the map if
// present. Returns ErrNotFound if the key was absent, nil on success, or a
// *WalError if the append failed (map left unchanged).
func (e *Engine) Delete(key []byte) error {
	if err := e.validateKey(key); err != nil {
		return err
	}

	if _, err := e.w.Append(wal.OpDelete, key, nil); err != nil {
		e.opts.logger.Error("wal append failed", "op", "delete", "error", err)
		return &WalError{Err: err}
	}

	if !e.m.Remove(key) {
		return ErrNotFound
	}
	return nil
}

// Exists reports whether key is present, without copying its value.
func (e *Engine) Exists(key []byte) bool {
	if err := e.validateKey(key); err != nil {
		return false
	}
	return e.m.Contains(key)
}

// Size returns the exact count of distinct keys currently present.
func (e *Engine) Size() int {
	return e.m.Size()
}

// Flush empties the map, then clears the WAL (resetting its sequence counter
// to 0). If clearing the WAL fails, the error is returned with the map
// already emptied, while the log file may still hold its records.
func (e *Engine) Flush() error {
	e.m.Clear()
	return e.w.Clear()
}

// Stats reports the ShardedMap distribution plus the current WAL size, for
// the STATS operation and the periodic status reporter.
type Stats struct {
	shardmap.Stats
	WalSizeBytes uint64
}

func (e *Engine) Stats() (Stats, error) {
	walSize, err := e.w.Size()
	if err != nil {
		return Stats{}, err
	}
	return Stats{Stats: e.m.StatsSnapshot(), WalSizeBytes: walSize}, nil
}

// ForEach visits every (key, value) pair currently in the map exactly once,
// with the same per-shard (not global) consistency as shardmap.ForEach. It
// is the only way to enumerate keys — there is no index or range scan
// (Non-goals, §1) — and is meant for operator tooling (kvctl dump), not the
// hot path.
func (e *Engine) ForEach(visit func(key, value []byte)) {
	e.m.ForEach(visit)
}

// Close releases the WAL's file handle and cross-process lock. It does not
// touch the in-memory map; the Engine must not be used after Close.
func (e *Engine) Close() error {
	return e.w.Close()
}
