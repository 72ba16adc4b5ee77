package storefs

import (
	"context"

	"github.com/filetree/vfscore/fs"
	"github.com/filetree/vfscore/fs/kvstore"
)

// GetXattr and SetXattr implement fs.Xattrer over an in-memory, per-ino map
// rather than a store-persisted field. spec.md §9's Open Question on xattr
// write lifetime is left "a no-op that may be elaborated later"; there is no
// real file descriptor backing a virtual object for pkg/xattr-style syscalls
// to target, so this is hand-rolled rather than grounded on a library — see
// DESIGN.md. Values do not survive process restart, only the filesystem's
// own lifetime.
func (f *FS) GetXattr(ctx context.Context, path string) (map[string]string, error) {
	ino, err := f.resolveIno(ctx, path)
	if err != nil {
		return nil, err
	}
	f.xattrMu.Lock()
	defer f.xattrMu.Unlock()
	src := f.xattrs[ino]
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out, nil
}

func (f *FS) SetXattr(ctx context.Context, path string, attrs map[string]string) error {
	ino, err := f.resolveIno(ctx, path)
	if err != nil {
		return err
	}
	f.xattrMu.Lock()
	defer f.xattrMu.Unlock()
	if f.xattrs[ino] == nil {
		f.xattrs[ino] = make(map[string]string, len(attrs))
	}
	for k, v := range attrs {
		f.xattrs[ino][k] = v
	}
	return nil
}

func (f *FS) resolveIno(ctx context.Context, path string) (uint64, error) {
	var ino uint64
	err := f.withTx(ctx, func(tx kvstore.Tx) error {
		n, _, err := f.lookup(tx, path)
		if err != nil {
			return err
		}
		ino = n.Ino
		return nil
	})
	return ino, err
}

// GetInodeFlags, SetInodeFlags, GetVersion, SetVersion implement
// fs.InodeFlagger directly over the store-persisted inode header, unlike
// xattrs: Flags and Version are genuine fields of the on-disk record
// (fs/inode.Inode), not an engine-side convenience map.
func (f *FS) GetInodeFlags(ctx context.Context, path string) (fs.InodeFlags, error) {
	var flags fs.InodeFlags
	err := f.withTx(ctx, func(tx kvstore.Tx) error {
		n, _, err := f.lookup(tx, path)
		if err != nil {
			return err
		}
		flags = n.Flags
		return nil
	})
	return flags, err
}

func (f *FS) SetInodeFlags(ctx context.Context, path string, flags fs.InodeFlags) error {
	return f.withTx(ctx, func(tx kvstore.Tx) error {
		n, payload, err := f.lookup(tx, path)
		if err != nil {
			return err
		}
		n.Flags = flags
		n.Version++
		return f.putNode(tx, n, payload)
	})
}

func (f *FS) GetVersion(ctx context.Context, path string) (uint32, error) {
	var version uint32
	err := f.withTx(ctx, func(tx kvstore.Tx) error {
		n, _, err := f.lookup(tx, path)
		if err != nil {
			return err
		}
		version = n.Version
		return nil
	})
	return version, err
}

func (f *FS) SetVersion(ctx context.Context, path string, version uint32) error {
	return f.withTx(ctx, func(tx kvstore.Tx) error {
		n, payload, err := f.lookup(tx, path)
		if err != nil {
			return err
		}
		n.Version = version
		return f.putNode(tx, n, payload)
	})
}
