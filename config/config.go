// Package config loads the recognized configuration keys of spec §6.3 from
// a YAML file, with environment-variable overrides, validating bounds at
// load time rather than clamping silently. Modeled on the viper-based
// loader in the pack's FinKV reference (config/config.go): same
// Init/Get/WatchConfig shape, narrowed to this store's flat key set.
package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config mirrors the recognized keys of spec §6.3 one-to-one, plus the
// ambient-only fields that never affect core durability/concurrency
// semantics (ListenAddr, MetricsAddr, LogLevel).
type Config struct {
	NumSegments        int    `mapstructure:"num_segments"`
	InitialBucketSize   int    `mapstructure:"initial_bucket_size"`
	WalFile             string `mapstructure:"wal_file"`
	WalBufferSize       int    `mapstructure:"wal_buffer_size"`
	SyncWal             bool   `mapstructure:"sync_wal"`
	MaxKeySize          int    `mapstructure:"max_key_size"`
	MaxValueSize        int    `mapstructure:"max_value_size"`

	ListenAddr  string `mapstructure:"listen_addr"`
	MetricsAddr string `mapstructure:"metrics_addr"`
	LogLevel    string `mapstructure:"log_level"`
}

// Defaults matches the literal defaults table in spec §6.3.
func Defaults() Config {
	return Config{
		NumSegments:       64,
		InitialBucketSize: 16,
		WalFile:           "kv_store.wal",
		WalBufferSize:     8192,
		SyncWal:           true,
		MaxKeySize:        1024,
		MaxValueSize:      65536,
		ListenAddr:        ":7799",
		MetricsAddr:       ":9090",
		LogLevel:          "info",
	}
}

// Validate rejects out-of-range values; it never clamps them (§6.3).
func (c Config) Validate() error {
	if c.NumSegments < 1 {
		return fmt.Errorf("config: num_segments must be >= 1, got %d", c.NumSegments)
	}
	if c.InitialBucketSize < 0 {
		return fmt.Errorf("config: initial_bucket_size must be >= 0, got %d", c.InitialBucketSize)
	}
	if c.WalFile == "" {
		return fmt.Errorf("config: wal_file must not be empty")
	}
	if c.WalBufferSize < 0 {
		return fmt.Errorf("config: wal_buffer_size must be >= 0, got %d", c.WalBufferSize)
	}
	if c.MaxKeySize < 1 {
		return fmt.Errorf("config: max_key_size must be >= 1, got %d", c.MaxKeySize)
	}
	if c.MaxValueSize < 0 {
		return fmt.Errorf("config: max_value_size must be >= 0, got %d", c.MaxValueSize)
	}
	return nil
}

var (
	mu   sync.RWMutex
	conf Config
)

// Get returns the most recently loaded Config. Safe for concurrent use with
// a live-reload watcher installed by Load.
func Get() Config {
	mu.RLock()
	defer mu.RUnlock()
	return conf
}

// Load reads path (YAML) over the defaults, validates the result, and
// installs it as the value Get returns. If watch is true, changes to path
// are picked up live; onChange (optional) is invoked after each reload.
// Only operational knobs are expected to change at runtime — num_segments,
// max_key_size, and max_value_size are read once at Engine construction
// and a reload does not retroactively resize an already-open Engine.
func Load(path string, watch bool, onChange func(Config)) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	d := Defaults()
	v.SetDefault("num_segments", d.NumSegments)
	v.SetDefault("initial_bucket_size", d.InitialBucketSize)
	v.SetDefault("wal_file", d.WalFile)
	v.SetDefault("wal_buffer_size", d.WalBufferSize)
	v.SetDefault("sync_wal", d.SyncWal)
	v.SetDefault("max_key_size", d.MaxKeySize)
	v.SetDefault("max_value_size", d.MaxValueSize)
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("metrics_addr", d.MetricsAddr)
	v.SetDefault("log_level", d.LogLevel)

	v.SetEnvPrefix("KVWAL")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	loaded, err := decode(v)
	if err != nil {
		return Config{}, err
	}

	mu.Lock()
	conf = loaded
	mu.Unlock()

	if watch {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			reloaded, err := decode(v)
			if err != nil {
				return
			}
			mu.Lock()
			conf = reloaded
			mu.Unlock()
			if onChange != nil {
				onChange(reloaded)
			}
		})
	}

	return loaded, nil
}

func decode(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
