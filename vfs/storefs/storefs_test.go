package storefs

import (
	"context"
	"testing"

	"github.com/filetree/vfscore/fs"
	"github.com/filetree/vfscore/fs/kvstore/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFS(t *testing.T, opts ...Option) *FS {
	t.Helper()
	f, err := New(context.Background(), "testfs", memstore.New(), opts...)
	require.NoError(t, err)
	return f
}

func TestRootExistsAfterNew(t *testing.T) {
	f := newTestFS(t)
	stats, err := f.Stat(context.Background(), "/")
	require.NoError(t, err)
	assert.True(t, stats.IsDir())
}

// TestWriteReadRoundTrip is the Go shape of spec.md property 1: a write
// followed by a read of the same range returns the bytes just written.
func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newTestFS(t)
	_, err := f.CreateFile(ctx, "/a.txt", 0o644, 0, 0)
	require.NoError(t, err)

	n, err := f.Write(ctx, "/a.txt", []byte("hello"), 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	buf := make([]byte, 5)
	n, err = f.Read(ctx, "/a.txt", buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf))

	stats, err := f.Stat(ctx, "/a.txt")
	require.NoError(t, err)
	assert.EqualValues(t, 5, stats.Size)
}

func TestMkdirThenCreateFileInside(t *testing.T) {
	ctx := context.Background()
	f := newTestFS(t)
	_, err := f.Mkdir(ctx, "/dir", 0o755, 0, 0)
	require.NoError(t, err)

	_, err = f.CreateFile(ctx, "/dir/file.txt", 0o644, 0, 0)
	require.NoError(t, err)

	names, err := f.Readdir(ctx, "/dir")
	require.NoError(t, err)
	assert.Equal(t, []string{"file.txt"}, names)
}

func TestCreateFileDuplicateIsEexist(t *testing.T) {
	ctx := context.Background()
	f := newTestFS(t)
	_, err := f.CreateFile(ctx, "/a.txt", 0o644, 0, 0)
	require.NoError(t, err)
	_, err = f.CreateFile(ctx, "/a.txt", 0o644, 0, 0)
	require.True(t, fs.Is(err, fs.EEXIST))
}

func TestRmdirRejectsNonEmpty(t *testing.T) {
	ctx := context.Background()
	f := newTestFS(t)
	_, err := f.Mkdir(ctx, "/dir", 0o755, 0, 0)
	require.NoError(t, err)
	_, err = f.CreateFile(ctx, "/dir/file.txt", 0o644, 0, 0)
	require.NoError(t, err)

	err = f.Rmdir(ctx, "/dir")
	assert.True(t, fs.Is(err, fs.ENOTEMPTY))
}

// TestRenameAtomicMove is the Go shape of spec.md property 5: after a
// successful rename, the old path is gone and the new path resolves to the
// same ino.
func TestRenameAtomicMove(t *testing.T) {
	ctx := context.Background()
	f := newTestFS(t)
	before, err := f.CreateFile(ctx, "/a.txt", 0o644, 0, 0)
	require.NoError(t, err)

	require.NoError(t, f.Rename(ctx, "/a.txt", "/b.txt"))

	_, err = f.Stat(ctx, "/a.txt")
	assert.True(t, fs.Is(err, fs.ENOENT))

	after, err := f.Stat(ctx, "/b.txt")
	require.NoError(t, err)
	assert.Equal(t, before.Ino, after.Ino)
}

// TestRenameDirectoryIntoOwnDescendantIsRejected is the Go shape of spec.md's
// "moving a directory into itself or a descendant" edge case.
func TestRenameDirectoryIntoOwnDescendantIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newTestFS(t)
	_, err := f.Mkdir(ctx, "/parent", 0o755, 0, 0)
	require.NoError(t, err)
	_, err = f.Mkdir(ctx, "/parent/child", 0o755, 0, 0)
	require.NoError(t, err)

	err = f.Rename(ctx, "/parent", "/parent/child/moved")
	assert.True(t, fs.Is(err, fs.EBUSY))
}

// TestLinkSharesDataUntilLastUnlink is the Go shape of spec.md property 8:
// two hard links to the same inode share mutations, and the data only
// disappears once nlink drops to zero.
func TestLinkSharesDataUntilLastUnlink(t *testing.T) {
	ctx := context.Background()
	f := newTestFS(t)
	created, err := f.CreateFile(ctx, "/a.txt", 0o644, 0, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, created.Nlink)

	require.NoError(t, f.Link(ctx, "/a.txt", "/b.txt"))

	statsA, err := f.Stat(ctx, "/a.txt")
	require.NoError(t, err)
	assert.EqualValues(t, 2, statsA.Nlink)

	_, err = f.Write(ctx, "/a.txt", []byte("shared"), 0)
	require.NoError(t, err)

	buf := make([]byte, 6)
	_, err = f.Read(ctx, "/b.txt", buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "shared", string(buf))

	require.NoError(t, f.Unlink(ctx, "/a.txt"))
	_, err = f.Stat(ctx, "/b.txt")
	require.NoError(t, err, "b.txt must survive a.txt's unlink while nlink > 0")

	require.NoError(t, f.Unlink(ctx, "/b.txt"))
}

func TestSymlinkReadlink(t *testing.T) {
	ctx := context.Background()
	f := newTestFS(t)
	_, err := f.CreateFile(ctx, "/target.txt", 0o644, 0, 0)
	require.NoError(t, err)
	_, err = f.Symlink(ctx, "/target.txt", "/link", 0, 0)
	require.NoError(t, err)

	got, err := f.Readlink(ctx, "/link")
	require.NoError(t, err)
	assert.Equal(t, "/target.txt", got)

	_, err = f.Readlink(ctx, "/target.txt")
	assert.True(t, fs.Is(err, fs.EINVAL))
}

func TestExistsSwallowsLookupErrors(t *testing.T) {
	ctx := context.Background()
	f := newTestFS(t)
	assert.False(t, f.Exists(ctx, "/nope"))
	assert.True(t, f.Exists(ctx, "/"))
}

func TestTruncateGrowsWithZeroFill(t *testing.T) {
	ctx := context.Background()
	f := newTestFS(t)
	_, err := f.CreateFile(ctx, "/a.txt", 0o644, 0, 0)
	require.NoError(t, err)
	_, err = f.Write(ctx, "/a.txt", []byte("hi"), 0)
	require.NoError(t, err)

	require.NoError(t, f.Truncate(ctx, "/a.txt", 5))

	buf := make([]byte, 5)
	n, err := f.Read(ctx, "/a.txt", buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []byte{'h', 'i', 0, 0, 0}, buf)
}

func TestCaseFoldLookup(t *testing.T) {
	ctx := context.Background()
	f := newTestFS(t, WithCaseFold(fs.CaseFoldLower))
	_, err := f.CreateFile(ctx, "/Readme.TXT", 0o644, 0, 0)
	require.NoError(t, err)

	_, err = f.Stat(ctx, "/README.txt")
	require.NoError(t, err, "case-folded lookup should find the same entry")
}

func TestStreamWriteReplacesWholeFile(t *testing.T) {
	ctx := context.Background()
	f := newTestFS(t)
	_, err := f.CreateFile(ctx, "/a.txt", 0o644, 0, 0)
	require.NoError(t, err)

	w, err := f.StreamWrite(ctx, "/a.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("streamed"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := f.StreamRead(ctx, "/a.txt")
	require.NoError(t, err)
	defer r.Close()
	buf := make([]byte, 8)
	_, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "streamed", string(buf))
}

func TestInodeFlagsAndVersionRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newTestFS(t)
	_, err := f.CreateFile(ctx, "/a.txt", 0o644, 0, 0)
	require.NoError(t, err)

	require.NoError(t, f.SetInodeFlags(ctx, "/a.txt", fs.FlagImmutable))
	flags, err := f.GetInodeFlags(ctx, "/a.txt")
	require.NoError(t, err)
	assert.True(t, flags.Has(fs.FlagImmutable))

	_, err = f.Write(ctx, "/a.txt", []byte("x"), 0)
	assert.True(t, fs.Is(err, fs.EPERM), "writing an immutable file must fail")

	require.NoError(t, f.SetVersion(ctx, "/a.txt", 42))
	v, err := f.GetVersion(ctx, "/a.txt")
	require.NoError(t, err)
	assert.EqualValues(t, 42, v)
}

func TestXattrRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newTestFS(t)
	_, err := f.CreateFile(ctx, "/a.txt", 0o644, 0, 0)
	require.NoError(t, err)

	require.NoError(t, f.SetXattr(ctx, "/a.txt", map[string]string{"user.tag": "v1"}))
	got, err := f.GetXattr(ctx, "/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "v1", got["user.tag"])
}
