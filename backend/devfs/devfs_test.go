package devfs_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/filetree/vfscore/backend/devfs"
	"github.com/filetree/vfscore/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevNullDiscardsWritesAndReadsEmpty(t *testing.T) {
	ctx := context.Background()
	f, err := devfs.New(ctx, "dev")
	require.NoError(t, err)

	n, err := f.Write(ctx, "/dev/null", []byte("discarded"), 0)
	require.NoError(t, err)
	assert.Equal(t, len("discarded"), n)

	buf := make([]byte, 8)
	n, err = f.Read(ctx, "/dev/null", buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDevZeroReadsAllZeroBytes(t *testing.T) {
	ctx := context.Background()
	f, err := devfs.New(ctx, "dev")
	require.NoError(t, err)

	buf := make([]byte, 16)
	for i := range buf {
		buf[i] = 0xff
	}
	n, err := f.Read(ctx, "/dev/zero", buf, 0)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, make([]byte, 16), buf)
}

func TestDevFullRejectsWritesWithEnospc(t *testing.T) {
	ctx := context.Background()
	f, err := devfs.New(ctx, "dev")
	require.NoError(t, err)

	_, err = f.Write(ctx, "/dev/full", []byte("x"), 0)
	require.Error(t, err)
	assert.True(t, fs.Is(err, fs.ENOSPC))
}

func TestDevRandomStreamReadNeverReturnsEof(t *testing.T) {
	ctx := context.Background()
	f, err := devfs.New(ctx, "dev")
	require.NoError(t, err)

	r, err := f.StreamRead(ctx, "/dev/random")
	require.NoError(t, err)
	defer r.Close()

	buf := make([]byte, 32)
	n, err := io.ReadFull(r, buf)
	require.NoError(t, err)
	assert.Equal(t, 32, n)
}

func TestDevNullStreamReadReturnsEofImmediately(t *testing.T) {
	ctx := context.Background()
	f, err := devfs.New(ctx, "dev")
	require.NoError(t, err)

	r, err := f.StreamRead(ctx, "/dev/null")
	require.NoError(t, err)
	defer r.Close()

	n, err := io.Copy(&bytes.Buffer{}, r)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestRegularPathsPassThroughToMemfs(t *testing.T) {
	ctx := context.Background()
	f, err := devfs.New(ctx, "dev")
	require.NoError(t, err)

	names, err := f.Readdir(ctx, "/dev")
	require.NoError(t, err)
	assert.Len(t, names, 4)
}
