// Package readonlyfs implements the read-only mixin (component F): it wraps
// an fs.Filesystem and rejects every mutating operation with EROFS while
// passing reads straight through. Grounded on rclone's backend/union
// package, which wraps N backends behind one fs.Fs and selectively
// forwards or blocks operations depending on policy; here the "policy" is
// simply "never mutate".
package readonlyfs

import (
	"context"
	"io"

	"github.com/filetree/vfscore/fs"
)

// FS wraps an underlying fs.Filesystem, rejecting mutation.
type FS struct {
	inner fs.Filesystem
}

// New wraps inner as read-only.
func New(inner fs.Filesystem) *FS {
	return &FS{inner: inner}
}

func (f *FS) Name() string          { return f.inner.Name() }
func (f *FS) UUID() string          { return f.inner.UUID() }
func (f *FS) Label() string         { return f.inner.Label() }
func (f *FS) ReadOnly() bool        { return true }
func (f *FS) NoAtime() bool         { return f.inner.NoAtime() }
func (f *FS) CaseFold() fs.CaseFold { return f.inner.CaseFold() }

func errReadOnly(syscall, path string) error {
	return fs.NewError(fs.EROFS, syscall, path, nil)
}

// SetLabel is rejected: the label is metadata about the mount, but
// mutating it through a read-only view would be surprising and spec.md §5
// files it under "whatever the wrapped operation itself would do" — for a
// mixin whose entire point is blocking writes, that means EROFS too.
func (f *FS) SetLabel(label string) error { return errReadOnly("setLabel", "") }

func (f *FS) Rename(ctx context.Context, oldPath, newPath string) error {
	return errReadOnly("rename", oldPath)
}

func (f *FS) Stat(ctx context.Context, path string) (fs.Stats, error) {
	return f.inner.Stat(ctx, path)
}

func (f *FS) Touch(ctx context.Context, path string, attrs fs.SetAttrs) error {
	return errReadOnly("touch", path)
}

func (f *FS) CreateFile(ctx context.Context, path string, mode fs.FileMode, uid, gid uint32) (fs.Stats, error) {
	return fs.Stats{}, errReadOnly("createFile", path)
}

func (f *FS) Unlink(ctx context.Context, path string) error {
	return errReadOnly("unlink", path)
}

func (f *FS) Rmdir(ctx context.Context, path string) error {
	return errReadOnly("rmdir", path)
}

func (f *FS) Mkdir(ctx context.Context, path string, mode fs.FileMode, uid, gid uint32) (fs.Stats, error) {
	return fs.Stats{}, errReadOnly("mkdir", path)
}

func (f *FS) Readdir(ctx context.Context, path string) ([]string, error) {
	return f.inner.Readdir(ctx, path)
}

func (f *FS) Exists(ctx context.Context, path string) bool {
	return f.inner.Exists(ctx, path)
}

func (f *FS) Link(ctx context.Context, existing, newPath string) error {
	return errReadOnly("link", newPath)
}

func (f *FS) Symlink(ctx context.Context, target, linkPath string, uid, gid uint32) (fs.Stats, error) {
	return fs.Stats{}, errReadOnly("symlink", linkPath)
}

func (f *FS) Readlink(ctx context.Context, path string) (string, error) {
	return f.inner.Readlink(ctx, path)
}

func (f *FS) Sync(ctx context.Context, path string, data []byte, attrs fs.SetAttrs) error {
	return errReadOnly("sync", path)
}

func (f *FS) Read(ctx context.Context, path string, buf []byte, offset int64) (int, error) {
	return f.inner.Read(ctx, path, buf, offset)
}

func (f *FS) Write(ctx context.Context, path string, buf []byte, offset int64) (int, error) {
	return 0, errReadOnly("write", path)
}

func (f *FS) Truncate(ctx context.Context, path string, size uint32) error {
	return errReadOnly("truncate", path)
}

func (f *FS) StreamRead(ctx context.Context, path string) (io.ReadCloser, error) {
	return f.inner.StreamRead(ctx, path)
}

func (f *FS) StreamWrite(ctx context.Context, path string) (io.WriteCloser, error) {
	return nil, errReadOnly("streamWrite", path)
}

// GetXattr forwards to the inner filesystem if it supports xattrs;
// SetXattr is rejected the same as any other mutation.
func (f *FS) GetXattr(ctx context.Context, path string) (map[string]string, error) {
	if x, ok := f.inner.(fs.Xattrer); ok {
		return x.GetXattr(ctx, path)
	}
	return nil, fs.NewError(fs.ENOTSUP, "getXattr", path, nil)
}

func (f *FS) SetXattr(ctx context.Context, path string, attrs map[string]string) error {
	return errReadOnly("setXattr", path)
}

var _ fs.Filesystem = (*FS)(nil)
var _ fs.Xattrer = (*FS)(nil)
