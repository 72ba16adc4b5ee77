package asyncfs_test

import (
	"context"
	"testing"

	"github.com/filetree/vfscore/backend/memfs"
	"github.com/filetree/vfscore/fs"
	"github.com/filetree/vfscore/vfs/asyncfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThroughShadowServesReads(t *testing.T) {
	ctx := context.Background()
	backend, err := memfs.New(ctx, "remote")
	require.NoError(t, err)

	bridge := asyncfs.New(backend)
	_, err = bridge.CreateFile(ctx, "/a.txt", 0o644, 0, 0)
	require.NoError(t, err)

	got, err := bridge.Stat(ctx, "/a.txt")
	require.NoError(t, err)
	assert.True(t, got.IsRegular())
}

func TestSyncDisabledWithoutShadow(t *testing.T) {
	ctx := context.Background()
	backend, err := memfs.New(ctx, "remote")
	require.NoError(t, err)

	bridge := asyncfs.New(backend, asyncfs.DisableShadowCache())
	_, err = bridge.CreateFile(ctx, "/a.txt", 0o644, 0, 0)
	require.NoError(t, err)

	err = bridge.Sync(ctx, "/a.txt", []byte("x"), fs.SetAttrs{})
	assert.True(t, fs.Is(err, fs.ENOTSUP))
}

func TestUnlinkInvalidatesShadow(t *testing.T) {
	ctx := context.Background()
	backend, err := memfs.New(ctx, "remote")
	require.NoError(t, err)

	bridge := asyncfs.New(backend)
	_, err = bridge.CreateFile(ctx, "/a.txt", 0o644, 0, 0)
	require.NoError(t, err)
	_, err = bridge.Stat(ctx, "/a.txt") // populate shadow
	require.NoError(t, err)

	require.NoError(t, bridge.Unlink(ctx, "/a.txt"))
	assert.False(t, bridge.Exists(ctx, "/a.txt"))
}
