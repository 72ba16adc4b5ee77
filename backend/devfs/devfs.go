// Package devfs supplements backend/memfs with the four fixed-semantics
// device nodes spec.md §8's testable properties exercise: /dev/null,
// /dev/zero, /dev/full, /dev/random. It is present only when a caller
// mounts it (vfs.New does not add it on its own), mirroring how a real /dev is a deliberate
// addition to a root filesystem rather than something every mount gets.
// Grounded on rclone's backend/local special-casing of os.DevNull-shaped
// paths, generalized to four device kinds instead of one.
package devfs

import (
	"context"
	"crypto/rand"
	"io"

	"github.com/filetree/vfscore/backend/memfs"
	"github.com/filetree/vfscore/fs"
)

// kind identifies which fixed device semantics a path exercises.
type kind int

const (
	kindNull kind = iota
	kindZero
	kindFull
	kindRandom
)

var devicePaths = map[string]kind{
	"/dev/null":   kindNull,
	"/dev/zero":   kindZero,
	"/dev/full":   kindFull,
	"/dev/random": kindRandom,
}

// FS wraps an in-memory backend, special-casing reads and writes to the
// four device paths while delegating everything else — stat, readdir,
// rename, xattrs — to the underlying memfs entries created for them at
// construction time, so `ls /dev` and `stat /dev/null` behave normally.
type FS struct {
	fs.Filesystem
}

// New builds a devfs-populated fs.Filesystem: a plain memfs with /dev and
// the four device nodes pre-created as zero-length character-special
// files. A VFS without device nodes simply does not mount this backend.
func New(ctx context.Context, name string) (*FS, error) {
	inner, err := memfs.New(ctx, name)
	if err != nil {
		return nil, err
	}
	if _, err := inner.Mkdir(ctx, "/dev", 0o755, 0, 0); err != nil {
		return nil, err
	}
	for path := range devicePaths {
		mode := fs.S_IFCHR | 0o666
		if _, err := inner.CreateFile(ctx, path, mode, 0, 0); err != nil {
			return nil, err
		}
		// CreateFile always makes a regular file; set the char-device type.
		if err := inner.Touch(ctx, path, fs.SetAttrs{Mode: &mode}); err != nil {
			return nil, err
		}
	}
	return &FS{Filesystem: inner}, nil
}

func (f *FS) Read(ctx context.Context, path string, buf []byte, offset int64) (int, error) {
	k, ok := devicePaths[path]
	if !ok {
		return f.Filesystem.Read(ctx, path, buf, offset)
	}
	switch k {
	case kindNull:
		return 0, nil
	case kindZero, kindFull:
		for i := range buf {
			buf[i] = 0
		}
		return len(buf), nil
	case kindRandom:
		return rand.Read(buf)
	}
	return 0, fs.NewError(fs.EIO, "read", path, nil)
}

func (f *FS) Write(ctx context.Context, path string, buf []byte, offset int64) (int, error) {
	k, ok := devicePaths[path]
	if !ok {
		return f.Filesystem.Write(ctx, path, buf, offset)
	}
	switch k {
	case kindNull, kindZero, kindRandom:
		return len(buf), nil
	case kindFull:
		return 0, fs.NewError(fs.ENOSPC, "write", path, nil)
	}
	return 0, fs.NewError(fs.EIO, "write", path, nil)
}

func (f *FS) Truncate(ctx context.Context, path string, size uint32) error {
	if _, ok := devicePaths[path]; ok {
		return nil
	}
	return f.Filesystem.Truncate(ctx, path, size)
}

type devReader struct {
	k   kind
	n   int
	max int
}

func (r *devReader) Read(p []byte) (int, error) {
	switch r.k {
	case kindNull:
		return 0, io.EOF
	case kindZero, kindFull:
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	case kindRandom:
		return rand.Read(p)
	}
	return 0, io.EOF
}

func (r *devReader) Close() error { return nil }

type devWriter struct{ k kind }

func (w *devWriter) Write(p []byte) (int, error) {
	if w.k == kindFull {
		return 0, fs.NewError(fs.ENOSPC, "write", "", nil)
	}
	return len(p), nil
}

func (w *devWriter) Close() error { return nil }

func (f *FS) StreamRead(ctx context.Context, path string) (io.ReadCloser, error) {
	if k, ok := devicePaths[path]; ok {
		return &devReader{k: k}, nil
	}
	return f.Filesystem.StreamRead(ctx, path)
}

func (f *FS) StreamWrite(ctx context.Context, path string) (io.WriteCloser, error) {
	if k, ok := devicePaths[path]; ok {
		return &devWriter{k: k}, nil
	}
	return f.Filesystem.StreamWrite(ctx, path)
}

var _ fs.Filesystem = (*FS)(nil)
