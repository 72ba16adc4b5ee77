package mount_test

import (
	"context"
	"testing"

	"github.com/filetree/vfscore/backend/memfs"
	"github.com/filetree/vfscore/fs"
	"github.com/filetree/vfscore/vfs/mount"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMountPicksLongestPrefix(t *testing.T) {
	ctx := context.Background()
	root, err := memfs.New(ctx, "root")
	require.NoError(t, err)
	data, err := memfs.New(ctx, "data")
	require.NoError(t, err)

	table := mount.New()
	table.Mount("/", root)
	table.Mount("/mnt/data", data)

	backend, within, prefix, err := table.ResolveMount("/mnt/data/file.txt")
	require.NoError(t, err)
	assert.Equal(t, data, backend)
	assert.Equal(t, "/file.txt", within)
	assert.Equal(t, "/mnt/data", prefix)

	backend, within, prefix, err = table.ResolveMount("/other/file.txt")
	require.NoError(t, err)
	assert.Equal(t, root, backend)
	assert.Equal(t, "/other/file.txt", within)
	assert.Equal(t, "/", prefix)
}

func TestUmountFallsBackToShorterPrefix(t *testing.T) {
	ctx := context.Background()
	root, err := memfs.New(ctx, "root")
	require.NoError(t, err)
	data, err := memfs.New(ctx, "data")
	require.NoError(t, err)

	table := mount.New()
	table.Mount("/", root)
	table.Mount("/mnt/data", data)
	table.Umount("/mnt/data")

	backend, _, _, err := table.ResolveMount("/mnt/data/file.txt")
	require.NoError(t, err)
	assert.Equal(t, root, backend)
}

func TestRealpathResolvesSymlink(t *testing.T) {
	ctx := context.Background()
	root, err := memfs.New(ctx, "root")
	require.NoError(t, err)
	_, err = root.CreateFile(ctx, "/target.txt", 0o644, 0, 0)
	require.NoError(t, err)
	_, err = root.Symlink(ctx, "/target.txt", "/link.txt", 0, 0)
	require.NoError(t, err)

	table := mount.New()
	table.Mount("/", root)

	real, err := table.Realpath(ctx, "/link.txt")
	require.NoError(t, err)
	assert.Equal(t, "/target.txt", real)
}

func TestResolveUnmountedPathIsEnoent(t *testing.T) {
	table := mount.New()
	_, _, _, err := table.ResolveMount("/anywhere")
	assert.True(t, fs.Is(err, fs.ENOENT))
}
