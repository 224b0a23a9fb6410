package server_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ropesync/internal/server"
)

func TestBuildFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bundle.js")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	mtime := time.UnixMilli(1_700_000_000_123)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	build, err := server.BuildFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(mtime.UnixMilli(), 10), build)

	later := mtime.Add(time.Second)
	require.NoError(t, os.Chtimes(path, later, later))
	next, err := server.BuildFromFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, build, next)
}

func TestBuildFromFile_Missing(t *testing.T) {
	t.Parallel()

	_, err := server.BuildFromFile(filepath.Join(t.TempDir(), "nope"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := server.DefaultConfig()
	assert.Equal(t, "dev", cfg.Build)
	assert.Equal(t, server.DefaultQueueSize, cfg.QueueSize)
	assert.Equal(t, server.DefaultWriteTimeout, cfg.WriteTimeout)
	assert.Equal(t, server.DefaultPingInterval, cfg.PingInterval)
	assert.Equal(t, int64(server.DefaultMaxMessageSize), cfg.MaxMessageSize)
}
