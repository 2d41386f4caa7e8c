package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "kvwal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadAppliesDefaultsForMissingKeys(t *testing.T) {
	path := writeConfig(t, "wal_file: custom.wal\n")

	c, err := Load(path, false, nil)
	require.NoError(t, err)

	assert.Equal(t, "custom.wal", c.WalFile)
	assert.Equal(t, 64, c.NumSegments)
	assert.Equal(t, true, c.SyncWal)
	assert.Equal(t, 1024, c.MaxKeySize)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
num_segments: 128
sync_wal: false
max_key_size: 256
max_value_size: 1024
`)

	c, err := Load(path, false, nil)
	require.NoError(t, err)

	assert.Equal(t, 128, c.NumSegments)
	assert.False(t, c.SyncWal)
	assert.Equal(t, 256, c.MaxKeySize)
	assert.Equal(t, 1024, c.MaxValueSize)
}

func TestLoadRejectsInvalidNumSegments(t *testing.T) {
	path := writeConfig(t, "num_segments: 0\n")

	_, err := Load(path, false, nil)
	assert.Error(t, err)
}

func TestLoadRejectsEmptyWalFile(t *testing.T) {
	path := writeConfig(t, "wal_file: \"\"\n")

	_, err := Load(path, false, nil)
	assert.Error(t, err)
}

func TestGetReturnsLastLoaded(t *testing.T) {
	path := writeConfig(t, "wal_file: another.wal\n")

	_, err := Load(path, false, nil)
	require.NoError(t, err)

	assert.Equal(t, "another.wal", Get().WalFile)
}
