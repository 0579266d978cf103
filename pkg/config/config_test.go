package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	flushmanager "github.com/sushant-115/gojodb-bufferpool/core/write_engine/flush_manager"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bufmgr.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logger:
  level: debug
buffer_pool:
  pool_size: 8
  replacer: clock
store:
  kind: disk
  path: /tmp/pages.db
snapshot:
  rate_bytes_per_sec: 1024
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format, "unset keys keep their defaults")
	assert.Equal(t, 8, cfg.BufferPool.PoolSize)
	assert.Equal(t, "clock", cfg.BufferPool.Replacer)
	assert.Equal(t, StoreKindDisk, cfg.Store.Kind)
	assert.Equal(t, "/tmp/pages.db", cfg.Store.Path)
	assert.Equal(t, 4096, cfg.Store.PageSize)
	assert.Equal(t, int64(1024), cfg.Snapshot.RateBytesPerSec)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":        "buffer_pool:\n  pool_sz: 3\n",
		"zero pool":          "buffer_pool:\n  pool_size: 0\n",
		"bad replacer":       "buffer_pool:\n  replacer: random\n",
		"disk without path":  "store:\n  kind: disk\n",
		"unknown store kind": "store:\n  kind: s3\n",
		"tiny page":          "store:\n  page_size: 8\n",
		"direct io in mem":   "store:\n  direct_io: true\n",
		"negative rate":      "snapshot:\n  rate_bytes_per_sec: -1\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			assert.Error(t, err)
		})
	}

	_, err := Parse([]byte("buffer_pool:\n  pool_size: -2\n"))
	assert.ErrorIs(t, err, flushmanager.ErrInvalidArgument)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_SampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "bufmgr.yaml"))
	require.NoError(t, err)
	assert.Equal(t, StoreKindDisk, cfg.Store.Kind)
	assert.Equal(t, 64, cfg.BufferPool.PoolSize)
	assert.True(t, cfg.Snapshot.Verify)
}
