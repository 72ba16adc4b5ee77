//go:build linux

package fs

import "golang.org/x/sys/unix"

// init confirms OpenFlag's portable bit values are the real kernel O_*
// values, not an arbitrary internal enumeration — the same "encode to the
// actual wire value, don't invent a parallel one" discipline
// metadata_linux.go follows for statx fields, applied to open() flags
// instead of stat() fields.
func init() {
	assertFlag(O_CREAT, unix.O_CREAT)
	assertFlag(O_EXCL, unix.O_EXCL)
	assertFlag(O_TRUNC, unix.O_TRUNC)
	assertFlag(O_APPEND, unix.O_APPEND)
}

func assertFlag(ours OpenFlag, kernel int) {
	if int(ours) != kernel {
		panic("fs: OpenFlag constant diverges from the kernel's own O_* value")
	}
}
