// Package ioctl implements the control path (component J): a single
// ioctl(path, command, args...) entry point whose command numbers are
// drawn from a fixed table modeled on Linux's FS_IOC_* values. Grounded on
// jacobsa/fuse's ops.go dispatch-by-opcode pattern (a fixed numeric
// command table routed through a type switch), adapted from FUSE's kernel
// opcode space to the small ext2-attribute-flavored command set spec.md
// §4.J actually calls for.
package ioctl

import (
	"context"

	"github.com/filetree/vfscore/fs"
)

// Command is one of the fixed ioctl command numbers. Values are Linux's
// 32-bit request numbers: FS_IOC32_* for flags and version, FS_IOC_FSGETXATTR,
// FS_IOC_GETFSLABEL/SETFSLABEL, FS_IOC_GETFSUUID and FS_IOC_GETFSSYSFSPATH.
type Command uint32

const (
	FS_IOC_GETFLAGS     Command = 0x80046601
	FS_IOC_SETFLAGS     Command = 0x40046602
	FS_IOC_GETVERSION   Command = 0x80047601
	FS_IOC_SETVERSION   Command = 0x40047602
	FS_IOC_GETXATTR     Command = 0x801c581f
	FS_IOC_GETLABEL     Command = 0x81009431
	FS_IOC_SETLABEL     Command = 0x41009432
	FS_IOC_GETUUID      Command = 0x80111500
	FS_IOC_GETSYSFSPATH Command = 0x80811501
)

// Xattr is the fixed-layout extended-attribute struct FS_IOC_GETXATTR
// returns, derived from inode state rather than a free-form map, matching
// spec.md §4.J's "fixed-layout" phrasing.
type Xattr struct {
	Flags   fs.InodeFlags
	Version uint32
}

// Ioctl dispatches command against path on backend. Unsupported commands,
// or commands the backend doesn't implement the supporting interface for,
// raise ENOTSUP.
func Ioctl(ctx context.Context, backend fs.Filesystem, path string, command Command, args ...any) (any, error) {
	switch command {
	case FS_IOC_GETFLAGS:
		flagger, ok := backend.(fs.InodeFlagger)
		if !ok {
			return nil, fs.NewError(fs.ENOTSUP, "ioctl", path, nil)
		}
		return flagger.GetInodeFlags(ctx, path)

	case FS_IOC_SETFLAGS:
		flagger, ok := backend.(fs.InodeFlagger)
		if !ok {
			return nil, fs.NewError(fs.ENOTSUP, "ioctl", path, nil)
		}
		flags, ok := args[0].(fs.InodeFlags)
		if !ok {
			return nil, fs.NewError(fs.EINVAL, "ioctl", path, nil)
		}
		return nil, flagger.SetInodeFlags(ctx, path, flags)

	case FS_IOC_GETVERSION:
		flagger, ok := backend.(fs.InodeFlagger)
		if !ok {
			return nil, fs.NewError(fs.ENOTSUP, "ioctl", path, nil)
		}
		return flagger.GetVersion(ctx, path)

	case FS_IOC_SETVERSION:
		flagger, ok := backend.(fs.InodeFlagger)
		if !ok {
			return nil, fs.NewError(fs.ENOTSUP, "ioctl", path, nil)
		}
		version, ok := args[0].(uint32)
		if !ok {
			return nil, fs.NewError(fs.EINVAL, "ioctl", path, nil)
		}
		return nil, flagger.SetVersion(ctx, path, version)

	case FS_IOC_GETXATTR:
		flagger, ok := backend.(fs.InodeFlagger)
		if !ok {
			return nil, fs.NewError(fs.ENOTSUP, "ioctl", path, nil)
		}
		flags, err := flagger.GetInodeFlags(ctx, path)
		if err != nil {
			return nil, err
		}
		version, err := flagger.GetVersion(ctx, path)
		if err != nil {
			return nil, err
		}
		return Xattr{Flags: flags, Version: version}, nil

	case FS_IOC_GETLABEL:
		return backend.Label(), nil

	case FS_IOC_SETLABEL:
		label, ok := args[0].(string)
		if !ok {
			return nil, fs.NewError(fs.EINVAL, "ioctl", path, nil)
		}
		return nil, backend.SetLabel(label)

	case FS_IOC_GETUUID:
		return backend.UUID(), nil

	case FS_IOC_GETSYSFSPATH:
		return "/sys/fs/" + backend.Name() + "/" + backend.UUID(), nil

	default:
		return nil, fs.NewError(fs.ENOTSUP, "ioctl", path, nil)
	}
}
