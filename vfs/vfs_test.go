package vfs_test

import (
	"context"
	"testing"

	"github.com/filetree/vfscore/backend/memfs"
	"github.com/filetree/vfscore/fs"
	"github.com/filetree/vfscore/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVFS(t *testing.T) *vfs.VFS {
	t.Helper()
	root, err := memfs.New(context.Background(), "root")
	require.NoError(t, err)
	v := vfs.New(vfs.Config{})
	v.Mount("/", root)
	return v
}

func TestOpenWriteReadClose(t *testing.T) {
	ctx := context.Background()
	v := newTestVFS(t)

	fd, err := v.Open(ctx, "/a.txt", fs.O_RDWR|fs.O_CREAT)
	require.NoError(t, err)
	require.NoError(t, v.Close(ctx, fd, false))

	stats, err := v.Stat(ctx, "/a.txt")
	require.NoError(t, err)
	assert.True(t, stats.IsRegular())
}

func TestMkdirRecursiveCreatesMissingSegments(t *testing.T) {
	ctx := context.Background()
	v := newTestVFS(t)

	_, err := v.Mkdir(ctx, "/a/b/c", 0o755, 0, 0, true)
	require.NoError(t, err)

	for _, p := range []string{"/a", "/a/b", "/a/b/c"} {
		stats, err := v.Stat(ctx, p)
		require.NoError(t, err, p)
		assert.True(t, stats.IsDir(), p)
	}
}

func TestRmRecursiveRemovesTree(t *testing.T) {
	ctx := context.Background()
	v := newTestVFS(t)
	_, err := v.Mkdir(ctx, "/dir", 0o755, 0, 0, false)
	require.NoError(t, err)
	fd, err := v.Open(ctx, "/dir/file.txt", fs.O_CREAT|fs.O_WRONLY)
	require.NoError(t, err)
	require.NoError(t, v.Close(ctx, fd, false))

	require.NoError(t, v.Rm(ctx, "/dir", true, false))
	assert.False(t, v.Exists(ctx, "/dir"))
}

func TestRmForceSwallowsEnoent(t *testing.T) {
	ctx := context.Background()
	v := newTestVFS(t)
	err := v.Rm(ctx, "/nope", false, true)
	assert.NoError(t, err)
}

func TestCpRecursiveCopiesTree(t *testing.T) {
	ctx := context.Background()
	v := newTestVFS(t)
	_, err := v.Mkdir(ctx, "/src", 0o755, 0, 0, false)
	require.NoError(t, err)
	fd, err := v.Open(ctx, "/src/a.txt", fs.O_CREAT|fs.O_WRONLY)
	require.NoError(t, err)
	require.NoError(t, v.Close(ctx, fd, false))

	require.NoError(t, v.Cp(ctx, "/src", "/dst", vfs.CopyOptions{Recursive: true}))

	assert.True(t, v.Exists(ctx, "/dst/a.txt"))
}

func TestRenameAcrossMountsIsExdev(t *testing.T) {
	ctx := context.Background()
	root, err := memfs.New(ctx, "root")
	require.NoError(t, err)
	other, err := memfs.New(ctx, "other")
	require.NoError(t, err)

	v := vfs.New(vfs.Config{})
	v.Mount("/", root)
	v.Mount("/mnt", other)

	fd, err := v.Open(ctx, "/a.txt", fs.O_CREAT|fs.O_WRONLY)
	require.NoError(t, err)
	require.NoError(t, v.Close(ctx, fd, false))

	err = v.Rename(ctx, "/a.txt", "/mnt/a.txt")
	assert.True(t, fs.Is(err, fs.EXDEV))
}

func TestStatsCountCreatesAndRemoves(t *testing.T) {
	ctx := context.Background()
	v := newTestVFS(t)

	_, err := v.Mkdir(ctx, "/dir", 0o755, 0, 0, false)
	require.NoError(t, err)
	require.NoError(t, v.Rmdir(ctx, "/dir"))

	snap := v.Stats()
	assert.Equal(t, int64(1), snap.Creates)
	assert.Equal(t, int64(1), snap.Removes)
}

func TestCheckAccessRejectsUnwritableParent(t *testing.T) {
	ctx := context.Background()
	root, err := memfs.New(ctx, "root")
	require.NoError(t, err)
	_, err = root.Mkdir(ctx, "/locked", 0o555, 10, 10)
	require.NoError(t, err)

	v := vfs.New(vfs.Config{Options: fs.Options{CheckAccess: true, CallerUID: 99, CallerGID: 99}})
	v.Mount("/", root)

	_, err = v.Mkdir(ctx, "/locked/child", 0o755, 99, 99, false)
	assert.True(t, fs.Is(err, fs.EACCES))
}

func TestCheckAccessAllowsOwnerWrite(t *testing.T) {
	ctx := context.Background()
	root, err := memfs.New(ctx, "root")
	require.NoError(t, err)
	_, err = root.Mkdir(ctx, "/owned", 0o755, 42, 42)
	require.NoError(t, err)

	v := vfs.New(vfs.Config{Options: fs.Options{CheckAccess: true, CallerUID: 42, CallerGID: 42}})
	v.Mount("/", root)

	_, err = v.Mkdir(ctx, "/owned/child", 0o755, 42, 42, false)
	assert.NoError(t, err)
}

func TestSymlinkAndReadlink(t *testing.T) {
	ctx := context.Background()
	v := newTestVFS(t)

	fd, err := v.Open(ctx, "/target.txt", fs.O_CREAT|fs.O_WRONLY)
	require.NoError(t, err)
	require.NoError(t, v.Close(ctx, fd, false))

	_, err = v.Symlink(ctx, "/target.txt", "/link.txt", 0, 0)
	require.NoError(t, err)

	stats, err := v.Lstat(ctx, "/link.txt")
	require.NoError(t, err)
	assert.True(t, stats.Mode.IsSymlink())

	target, err := v.Readlink(ctx, "/link.txt")
	require.NoError(t, err)
	assert.Equal(t, "/target.txt", target)

	resolved, err := v.Stat(ctx, "/link.txt")
	require.NoError(t, err)
	assert.True(t, resolved.IsRegular())
}

func TestGlobMatchesWildcard(t *testing.T) {
	ctx := context.Background()
	v := newTestVFS(t)
	for _, name := range []string{"/a.txt", "/b.txt", "/c.md"} {
		fd, err := v.Open(ctx, name, fs.O_CREAT|fs.O_WRONLY)
		require.NoError(t, err)
		require.NoError(t, v.Close(ctx, fd, false))
	}

	matches, err := v.Glob(ctx, "/", "*.txt")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, matches)
}
