package fs

import (
	"context"
	"io"
)

// CaseFold selects how a mounted filesystem canonicalizes path components
// for lookup.
type CaseFold int

const (
	CaseFoldNone CaseFold = iota
	CaseFoldLower
	CaseFoldUpper
)

// Filesystem is the capability set every backend implements some subset of.
// It is the explicit interface the design notes call for in place of a
// duck-typed "any object with these methods" surface: mixins (vfs/vfslock,
// vfs/readonlyfs, vfs/asyncfs) are decorators that wrap one Filesystem and
// return another.
type Filesystem interface {
	// Name is the instance name the backend was constructed with.
	Name() string
	// UUID is a stable identifier minted once at construction.
	UUID() string
	// Label is the mutable filesystem label (see vfs/ioctl).
	Label() string
	SetLabel(label string) error

	Rename(ctx context.Context, oldPath, newPath string) error
	Stat(ctx context.Context, path string) (Stats, error)
	Touch(ctx context.Context, path string, attrs SetAttrs) error
	CreateFile(ctx context.Context, path string, mode FileMode, uid, gid uint32) (Stats, error)
	Unlink(ctx context.Context, path string) error
	Rmdir(ctx context.Context, path string) error
	Mkdir(ctx context.Context, path string, mode FileMode, uid, gid uint32) (Stats, error)
	Readdir(ctx context.Context, path string) ([]string, error)
	Exists(ctx context.Context, path string) bool
	Link(ctx context.Context, existing, newPath string) error
	Symlink(ctx context.Context, target, linkPath string, uid, gid uint32) (Stats, error)
	Readlink(ctx context.Context, path string) (string, error)
	Sync(ctx context.Context, path string, data []byte, attrs SetAttrs) error

	Read(ctx context.Context, path string, buf []byte, offset int64) (int, error)
	Write(ctx context.Context, path string, buf []byte, offset int64) (int, error)
	Truncate(ctx context.Context, path string, size uint32) error

	StreamRead(ctx context.Context, path string) (io.ReadCloser, error)
	StreamWrite(ctx context.Context, path string) (io.WriteCloser, error)

	// Attributes a backend may declare, as spec.md §6 lists.
	ReadOnly() bool
	NoAtime() bool
	CaseFold() CaseFold
}

// Xattrer is implemented by filesystems that support extended attributes
// (vfs/ioctl's GetXattr/SetXattr commands). Not every backend need support
// it; type-asserting for it is the Go-idiomatic stand-in for the "optional
// capability" pattern spec.md's backends use structurally.
type Xattrer interface {
	GetXattr(ctx context.Context, path string) (map[string]string, error)
	SetXattr(ctx context.Context, path string, attrs map[string]string) error
}

// InodeFlagger is implemented by filesystems that support the ioctl
// get/set-flags and get/set-version commands.
type InodeFlagger interface {
	GetInodeFlags(ctx context.Context, path string) (InodeFlags, error)
	SetInodeFlags(ctx context.Context, path string, flags InodeFlags) error
	GetVersion(ctx context.Context, path string) (uint32, error)
	SetVersion(ctx context.Context, path string, version uint32) error
}
