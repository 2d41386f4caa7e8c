package kvwal

import "github.com/hashicorp/go-hclog"

// options holds the recognized configuration keys of spec §6.3, plus a
// logger. Values outside accepted ranges are rejected by Open, never
// silently clamped.
type options struct {
	numSegments        int
	initialBucketSize  int
	walFile            string
	walBufferSize      int
	syncWal            bool
	maxKeySize         int
	maxValueSize       int
	logger             hclog.Logger
}

// Option configures Open, following the teacher's functional-options
// convention (cqkv/options.go).
type Option func(*options)

func defaultOptions() *options {
	return &options{
		numSegments:       64,
		initialBucketSize: 16,
		walFile:           "kv_store.wal",
		walBufferSize:     8192,
		syncWal:           true,
		maxKeySize:        1024,
		maxValueSize:      65536,
		logger:            hclog.NewNullLogger(),
	}
}

// WithNumSegments sets the shard count of the ShardedMap. Must be >= 1.
func WithNumSegments(n int) Option {
	return func(o *options) { o.numSegments = n }
}

// WithInitialBucketSize sets the advisory per-shard capacity hint.
func WithInitialBucketSize(n int) Option {
	return func(o *options) { o.initialBucketSize = n }
}

// WithWalFile sets the path of the write-ahead log.
func WithWalFile(path string) Option {
	return func(o *options) { o.walFile = path }
}

// WithWalBufferSize sets the initial capacity of the scratch buffer reused
// to compose each WAL record.
func WithWalBufferSize(n int) Option {
	return func(o *options) { o.walBufferSize = n }
}

// WithSyncWal controls whether every Append forces an fsync before
// returning (true, the default) or returns after the write syscall (false).
func WithSyncWal(sync bool) Option {
	return func(o *options) { o.syncWal = sync }
}

// WithMaxKeySize bounds accepted key length.
func WithMaxKeySize(n int) Option {
	return func(o *options) { o.maxKeySize = n }
}

// WithMaxValueSize bounds accepted value length.
func WithMaxValueSize(n int) Option {
	return func(o *options) { o.maxValueSize = n }
}

// WithLogger overrides the structured logger used for recovery and
// durability diagnostics.
func WithLogger(l hclog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// validate rejects out-of-range values per §6.3 — no silent clamping.
func (o *options) validate() error {
	if o.numSegments < 1 {
		return addPrefix("num_segments must be >= 1")
	}
	if o.initialBucketSize < 0 {
		return addPrefix("initial_bucket_size must be >= 0")
	}
	if o.maxKeySize < 1 {
		return addPrefix("max_key_size must be >= 1")
	}
	if o.maxValueSize < 0 {
		return addPrefix("max_value_size must be >= 0")
	}
	if o.walFile == "" {
		return addPrefix("wal_file must not be empty")
	}
	if o.walBufferSize < 0 {
		return addPrefix("wal_buffer_size must be >= 0")
	}
	return nil
}
