// Package wal implements the append-only, self-describing log the engine
// durably records every mutation to before it touches the in-memory map.
// The record layout is the fixed-offset binary frame of spec §6.1; it is
// deliberately not the teacher's varint-header codec (cqkv/codec), since the
// frame here must be positionally decodable without a separate length
// negotiation, per the torn-tail replay rule in §4.3.
package wal

import (
	"encoding/binary"
	"errors"
)

// Op identifies the kind of mutation a Record describes.
type Op uint8

const (
	OpPut    Op = 0
	OpDelete Op = 1
)

// fixedHeaderSize is the number of bytes before the key: sequence(8) +
// timestamp_ms(8) + op(1) + key_len(8).
const fixedHeaderSize = 8 + 8 + 1 + 8

// Record is the logical content of one WAL frame.
type Record struct {
	Sequence    uint64
	TimestampMs uint64
	Op          Op
	Key         []byte
	Value       []byte // zero-length for OpDelete
}

// ErrTornTail means the buffer contains fewer bytes than the record it
// starts to describe — the tolerated, silently-discarded case at EOF.
var ErrTornTail = errors.New("wal: torn trailing record")

// ErrUnknownOp means a complete record decoded with an op byte outside
// {PUT, DELETE} — corruption that is fatal unless it is the torn tail,
// which decode cannot distinguish; the caller (Replay) only ever reaches
// this for non-trailing records, since a torn tail short-circuits on
// ErrTornTail first.
var ErrUnknownOp = errors.New("wal: unknown op code")

// Encode renders rec as the fixed-offset binary frame of §6.1.
func Encode(rec Record) []byte {
	return EncodeInto(nil, rec)
}

// EncodeInto renders rec into scratch if it has enough capacity, growing it
// otherwise, and returns the slice actually used. This lets Append reuse a
// single scratch buffer (the wal_buffer_size config knob of §6.3) across
// calls instead of allocating one record at a time.
func EncodeInto(scratch []byte, rec Record) []byte {
	total := fixedHeaderSize + len(rec.Key) + 8 + len(rec.Value)

	var buf []byte
	if cap(scratch) >= total {
		buf = scratch[:total]
	} else {
		buf = make([]byte, total)
	}

	binary.LittleEndian.PutUint64(buf[0:8], rec.Sequence)
	binary.LittleEndian.PutUint64(buf[8:16], rec.TimestampMs)
	buf[16] = byte(rec.Op)
	binary.LittleEndian.PutUint64(buf[17:25], uint64(len(rec.Key)))
	copy(buf[25:25+len(rec.Key)], rec.Key)

	valueLenOff := 25 + len(rec.Key)
	binary.LittleEndian.PutUint64(buf[valueLenOff:valueLenOff+8], uint64(len(rec.Value)))
	copy(buf[valueLenOff+8:], rec.Value)

	return buf
}

// Decode reads one record from the head of buf. It returns the number of
// bytes consumed, or ErrTornTail if buf is too short to contain a complete
// record (the caller discards these bytes silently, per §4.3), or
// ErrUnknownOp if a complete record carries an invalid op byte (fatal
// corruption, per §7 CorruptLog).
func Decode(buf []byte) (Record, int64, error) {
	if len(buf) < fixedHeaderSize {
		return Record{}, 0, ErrTornTail
	}

	seq := binary.LittleEndian.Uint64(buf[0:8])
	ts := binary.LittleEndian.Uint64(buf[8:16])
	op := Op(buf[16])
	keyLen := binary.LittleEndian.Uint64(buf[17:25])

	// A key/value length this large cannot be real for this store (bounded
	// by MaxKeySize/MaxValueSize well below 2^63); treat as a torn/garbage
	// header rather than trying to allocate it.
	if keyLen > uint64(len(buf)) {
		return Record{}, 0, ErrTornTail
	}

	keyEnd := fixedHeaderSize + int64(keyLen)
	valueLenEnd := keyEnd + 8
	if int64(len(buf)) < valueLenEnd {
		return Record{}, 0, ErrTornTail
	}

	valueLen := binary.LittleEndian.Uint64(buf[keyEnd:valueLenEnd])
	if valueLen > uint64(len(buf)) {
		return Record{}, 0, ErrTornTail
	}

	total := valueLenEnd + int64(valueLen)
	if int64(len(buf)) < total {
		return Record{}, 0, ErrTornTail
	}

	if op != OpPut && op != OpDelete {
		return Record{}, 0, ErrUnknownOp
	}

	key := make([]byte, keyLen)
	copy(key, buf[fixedHeaderSize:keyEnd])
	value := make([]byte, valueLen)
	copy(value, buf[valueLenEnd:total])

	return Record{
		Sequence:    seq,
		TimestampMs: ts,
		Op:          op,
		Key:         key,
		Value:       value,
	}, total, nil
}
