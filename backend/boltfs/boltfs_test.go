package boltfs_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/filetree/vfscore/backend/boltfs"
	"github.com/filetree/vfscore/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "vfs.db")

	f, err := boltfs.Open(ctx, "durable", dbPath)
	require.NoError(t, err)

	_, err = f.CreateFile(ctx, "/a.txt", 0o644, 0, 0)
	require.NoError(t, err)
	n, err := f.Write(ctx, "/a.txt", []byte("hello"), 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	require.NoError(t, f.Close())

	reopened, err := boltfs.Open(ctx, "durable", dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	buf := make([]byte, 5)
	n, err = reopened.Read(ctx, "/a.txt", buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
}

func TestRejectsUnknownPathAfterReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "vfs.db")

	f, err := boltfs.Open(ctx, "durable", dbPath)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	reopened, err := boltfs.Open(ctx, "durable", dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	_, err = reopened.Stat(ctx, "/missing.txt")
	assert.True(t, fs.Is(err, fs.ENOENT))
}
