package readonlyfs_test

import (
	"context"
	"testing"

	"github.com/filetree/vfscore/backend/memfs"
	"github.com/filetree/vfscore/fs"
	"github.com/filetree/vfscore/vfs/readonlyfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteOperationsAreRejectedWithErofs(t *testing.T) {
	ctx := context.Background()
	inner, err := memfs.New(ctx, "inner")
	require.NoError(t, err)
	_, err = inner.CreateFile(ctx, "/a.txt", 0o644, 0, 0)
	require.NoError(t, err)
	_, err = inner.Write(ctx, "/a.txt", []byte("seed"), 0)
	require.NoError(t, err)

	ro := readonlyfs.New(inner)
	assert.True(t, ro.ReadOnly())

	_, err = ro.CreateFile(ctx, "/b.txt", 0o644, 0, 0)
	assert.True(t, fs.Is(err, fs.EROFS))

	err = ro.Unlink(ctx, "/a.txt")
	assert.True(t, fs.Is(err, fs.EROFS))

	_, err = ro.Write(ctx, "/a.txt", []byte("x"), 0)
	assert.True(t, fs.Is(err, fs.EROFS))
}

func TestReadOperationsPassThrough(t *testing.T) {
	ctx := context.Background()
	inner, err := memfs.New(ctx, "inner")
	require.NoError(t, err)
	_, err = inner.CreateFile(ctx, "/a.txt", 0o644, 0, 0)
	require.NoError(t, err)
	_, err = inner.Write(ctx, "/a.txt", []byte("seed"), 0)
	require.NoError(t, err)

	ro := readonlyfs.New(inner)
	buf := make([]byte, 4)
	n, err := ro.Read(ctx, "/a.txt", buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "seed", string(buf))
}
