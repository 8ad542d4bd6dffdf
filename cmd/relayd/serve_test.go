package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"impractical.co/relay/config"
	"impractical.co/relay/filesystem"
	"impractical.co/relay/memory"
)

func TestNewStorer(t *testing.T) {
	ctx := context.Background()

	s, err := newStorer(ctx, config.StorageConfig{Backend: config.BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &memory.Storer{}, s)

	dir := filepath.Join(t.TempDir(), "files")
	s, err = newStorer(ctx, config.StorageConfig{Backend: config.BackendFilesystem, Dir: dir})
	require.NoError(t, err)
	require.IsType(t, &filesystem.Storer{}, s)
	assert.DirExists(t, dir)

	_, err = newStorer(ctx, config.StorageConfig{Backend: "tape"})
	assert.Error(t, err)
}

func TestServeFlags(t *testing.T) {
	cmd := serveCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--backend", "memory", "--addr", "127.0.0.1:0"}))
	cfg, err := config.Load(cmd.Flags())
	require.NoError(t, err)
	assert.Equal(t, config.BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, "127.0.0.1:0", cfg.Addr)
}
