package fs

import (
	"errors"
	"fmt"
)

// Errno is a stable, matchable error code. The numeric values are not
// significant outside this package; only the symbol (and its String/Error
// form) is part of the contract.
type Errno int

// The error code surface. Every syscall-shaped operation either succeeds
// or returns one of these, wrapped in an *Error.
const (
	_ Errno = iota
	ENOENT
	EEXIST
	EACCES
	EBADF
	EBUSY
	EPERM
	EROFS
	EINVAL
	EIO
	ENOTDIR
	EISDIR
	ENOTEMPTY
	EXDEV
	ENOSPC
	ENOSYS
	ENOTSUP
	EFBIG
	EDEADLK
	ENODATA
)

var errnoText = map[Errno]string{
	ENOENT:    "no such file or directory",
	EEXIST:    "file exists",
	EACCES:    "permission denied",
	EBADF:     "bad file descriptor",
	EBUSY:     "device or resource busy",
	EPERM:     "operation not permitted",
	EROFS:     "read-only file system",
	EINVAL:    "invalid argument",
	EIO:       "input/output error",
	ENOTDIR:   "not a directory",
	EISDIR:    "is a directory",
	ENOTEMPTY: "directory not empty",
	EXDEV:     "cross-device link",
	ENOSPC:    "no space left on device",
	ENOSYS:    "function not implemented",
	ENOTSUP:   "operation not supported",
	EFBIG:     "file too large",
	EDEADLK:   "resource deadlock avoided",
	ENODATA:   "no data available",
}

// Error implements the error interface so a bare Errno can be compared
// with errors.Is against itself.
func (e Errno) Error() string {
	if s, ok := errnoText[e]; ok {
		return s
	}
	return fmt.Sprintf("unknown error %d", int(e))
}

// Error is the structured value every core operation raises on failure. It
// carries the stable code, the user-visible path, the syscall name that
// detected the failure, and an optional chained cause.
type Error struct {
	Errno   Errno
	Path    string
	Syscall string
	Err     error
}

// NewError builds an *Error, capturing the detecting syscall name and the
// user-visible path at the point of detection.
func NewError(errno Errno, syscall, path string, cause error) *Error {
	return &Error{Errno: errno, Path: path, Syscall: syscall, Err: cause}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Syscall, e.Path, e.Errno.Error())
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the chained cause to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, fs.ENOENT) work directly against a wrapped *Error,
// without callers needing to type-assert and compare Errno by hand.
func (e *Error) Is(target error) bool {
	if other, ok := target.(*Error); ok {
		return e.Errno == other.Errno
	}
	if errno, ok := target.(Errno); ok {
		return e.Errno == errno
	}
	return false
}

// WithPath returns a copy of err with Path replaced, used by the VFS facade
// to swap a backend-relative path for the path the caller actually passed.
func WithPath(err error, path string) error {
	var fsErr *Error
	if errors.As(err, &fsErr) {
		cp := *fsErr
		cp.Path = path
		return &cp
	}
	return err
}

// Code extracts the Errno from err, if any, and reports whether one was
// found. Used by recovery policy (e.g. rm({force:true}) swallowing ENOENT).
func Code(err error) (Errno, bool) {
	var fsErr *Error
	if errors.As(err, &fsErr) {
		return fsErr.Errno, true
	}
	if errno, ok := err.(Errno); ok {
		return errno, true
	}
	return 0, false
}

// Is reports whether err's code matches errno, looking through any chain.
func Is(err error, errno Errno) bool {
	code, ok := Code(err)
	return ok && code == errno
}
