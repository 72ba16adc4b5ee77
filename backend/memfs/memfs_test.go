package memfs_test

import (
	"context"
	"testing"

	"github.com/filetree/vfscore/backend/memfs"
	"github.com/stretchr/testify/require"
)

func TestNewProducesUsableFilesystem(t *testing.T) {
	ctx := context.Background()
	f, err := memfs.New(ctx, "scratch")
	require.NoError(t, err)

	_, err = f.CreateFile(ctx, "/hello.txt", 0o644, 0, 0)
	require.NoError(t, err)

	_, err = f.Write(ctx, "/hello.txt", []byte("hi"), 0)
	require.NoError(t, err)

	buf := make([]byte, 2)
	n, err := f.Read(ctx, "/hello.txt", buf, 0)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, "hi", string(buf))
}
