package handle_test

import (
	"context"
	"testing"

	"github.com/filetree/vfscore/backend/memfs"
	"github.com/filetree/vfscore/fs"
	"github.com/filetree/vfscore/vfs/handle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenReadWriteClose(t *testing.T) {
	ctx := context.Background()
	backend, err := memfs.New(ctx, "scratch")
	require.NoError(t, err)
	_, err = backend.CreateFile(ctx, "/a.txt", 0o644, 0, 0)
	require.NoError(t, err)

	table := handle.NewTable()
	fd, err := table.Open(ctx, backend, "/a.txt", fs.O_RDWR)
	require.NoError(t, err)

	h, err := table.FromFD(ctx, fd)
	require.NoError(t, err)

	n, err := h.Write(ctx, []byte("hello"), 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	buf := make([]byte, 5)
	n, err = h.Read(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf))

	require.NoError(t, table.DeleteFD(ctx, fd, false))

	_, err = table.FromFD(ctx, fd)
	assert.True(t, fs.Is(err, fs.EBADF))
}

func TestDoubleCloseIsEbadf(t *testing.T) {
	ctx := context.Background()
	backend, err := memfs.New(ctx, "scratch")
	require.NoError(t, err)
	_, err = backend.CreateFile(ctx, "/a.txt", 0o644, 0, 0)
	require.NoError(t, err)

	table := handle.NewTable()
	fd, err := table.Open(ctx, backend, "/a.txt", fs.O_RDONLY)
	require.NoError(t, err)

	require.NoError(t, table.DeleteFD(ctx, fd, false))
	err = table.DeleteFD(ctx, fd, false)
	assert.True(t, fs.Is(err, fs.EBADF))
}

func TestAppendIgnoresExplicitPosition(t *testing.T) {
	ctx := context.Background()
	backend, err := memfs.New(ctx, "scratch")
	require.NoError(t, err)
	_, err = backend.CreateFile(ctx, "/a.txt", 0o644, 0, 0)
	require.NoError(t, err)
	_, err = backend.Write(ctx, "/a.txt", []byte("base"), 0)
	require.NoError(t, err)

	table := handle.NewTable()
	fd, err := table.Open(ctx, backend, "/a.txt", fs.O_WRONLY|fs.O_APPEND)
	require.NoError(t, err)
	h, err := table.FromFD(ctx, fd)
	require.NoError(t, err)

	_, err = h.Write(ctx, []byte("X"), 0) // explicit pos 0 must be ignored
	require.NoError(t, err)

	buf := make([]byte, 5)
	_, err = backend.Read(ctx, "/a.txt", buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "baseX", string(buf))
}

func TestReadOnlyHandleRejectsWrite(t *testing.T) {
	ctx := context.Background()
	backend, err := memfs.New(ctx, "scratch")
	require.NoError(t, err)
	_, err = backend.CreateFile(ctx, "/a.txt", 0o644, 0, 0)
	require.NoError(t, err)

	table := handle.NewTable()
	fd, err := table.Open(ctx, backend, "/a.txt", fs.O_RDONLY)
	require.NoError(t, err)
	h, err := table.FromFD(ctx, fd)
	require.NoError(t, err)

	_, err = h.Write(ctx, []byte("x"), 0)
	assert.True(t, fs.Is(err, fs.EACCES))
}
