package storefs

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"

	"github.com/filetree/vfscore/fs"
	"github.com/filetree/vfscore/fs/inode"
	"github.com/filetree/vfscore/fs/kvstore"
)

// Stat resolves path and returns its attributes.
func (f *FS) Stat(ctx context.Context, path string) (fs.Stats, error) {
	var stats fs.Stats
	err := f.withTx(ctx, func(tx kvstore.Tx) error {
		n, _, err := f.lookup(tx, path)
		if err != nil {
			return err
		}
		stats = n.ToStats()
		return nil
	})
	return stats, err
}

// Exists reports whether path resolves to anything, swallowing ENOENT and
// its structural cousins (ENOTDIR on an intermediate segment) per spec.md
// §7's recovery policy.
func (f *FS) Exists(ctx context.Context, path string) bool {
	_, err := f.Stat(ctx, path)
	return err == nil
}

// Touch applies attrs to path's inode.
func (f *FS) Touch(ctx context.Context, path string, attrs fs.SetAttrs) error {
	return f.withTx(ctx, func(tx kvstore.Tx) error {
		n, payload, err := f.lookup(tx, path)
		if err != nil {
			return err
		}
		n.Update(attrs)
		return f.putNode(tx, n, payload)
	})
}

func (f *FS) createEntry(ctx context.Context, path string, mode fs.FileMode, uid, gid uint32, payload []byte) (fs.Stats, error) {
	parentPath, name := splitParent(path)
	if name == "" {
		return fs.Stats{}, fs.NewError(fs.EEXIST, "create", path, nil)
	}
	var result fs.Stats
	err := f.withTx(ctx, func(tx kvstore.Tx) error {
		parent, parentPayload, err := f.lookup(tx, parentPath)
		if err != nil {
			return err
		}
		if !parent.Mode.IsDir() {
			return fs.NewError(fs.ENOTDIR, "create", path, nil)
		}
		list, err := decodeListing(parentPayload)
		if err != nil {
			return err
		}
		if _, exists := lookupFolded(list, foldCase(name, f.caseFold), f.caseFold); exists {
			return fs.NewError(fs.EEXIST, "create", path, nil)
		}
		child, err := f.allocateInode(tx)
		if err != nil {
			return err
		}
		child.Mode = mode
		child.UID = uid
		child.GID = gid
		child.Size = uint32(len(payload))
		if err := f.putNode(tx, child, payload); err != nil {
			return err
		}
		list[name] = child.Ino
		parent.Touch(true)
		if err := f.putNode(tx, parent, encodeListing(list)); err != nil {
			return err
		}
		result = child.ToStats()
		return nil
	})
	return result, err
}

// CreateFile creates a new regular file.
func (f *FS) CreateFile(ctx context.Context, path string, mode fs.FileMode, uid, gid uint32) (fs.Stats, error) {
	return f.createEntry(ctx, path, fs.S_IFREG|mode.Perm(), uid, gid, nil)
}

// Mkdir creates a new, empty directory.
func (f *FS) Mkdir(ctx context.Context, path string, mode fs.FileMode, uid, gid uint32) (fs.Stats, error) {
	return f.createEntry(ctx, path, fs.S_IFDIR|(mode&^fs.S_IFMT), uid, gid, encodeListing(listing{}))
}

// Symlink creates a symbolic link whose payload is the (unresolved) target.
func (f *FS) Symlink(ctx context.Context, target, linkPath string, uid, gid uint32) (fs.Stats, error) {
	return f.createEntry(ctx, linkPath, fs.S_IFLNK|0o777, uid, gid, []byte(target))
}

// Readlink returns a symlink's target.
func (f *FS) Readlink(ctx context.Context, path string) (string, error) {
	var target string
	err := f.withTx(ctx, func(tx kvstore.Tx) error {
		n, payload, err := f.lookup(tx, path)
		if err != nil {
			return err
		}
		if !n.Mode.IsSymlink() {
			return fs.NewError(fs.EINVAL, "readlink", path, nil)
		}
		target = string(payload)
		return nil
	})
	return target, err
}

// removeEntry implements the shared core of Unlink and Rmdir: locate the
// parent and child, apply the type-specific checks, decrement nlink, and
// free the inode when nlink reaches zero (spec.md §4.C).
func (f *FS) removeEntry(ctx context.Context, path string, wantDir bool) error {
	parentPath, name := splitParent(path)
	if name == "" {
		return fs.NewError(fs.EPERM, "remove", path, nil)
	}
	return f.withTx(ctx, func(tx kvstore.Tx) error {
		parent, parentPayload, err := f.lookup(tx, parentPath)
		if err != nil {
			return err
		}
		list, err := decodeListing(parentPayload)
		if err != nil {
			return err
		}
		folded := foldCase(name, f.caseFold)
		childIno, ok := lookupFolded(list, folded, f.caseFold)
		if !ok {
			return fs.NewError(fs.ENOENT, "remove", path, nil)
		}
		child, childPayload, err := f.getInode(tx, childIno)
		if err != nil {
			return err
		}
		if wantDir {
			if !child.Mode.IsDir() {
				return fs.NewError(fs.ENOTDIR, "rmdir", path, nil)
			}
			childList, err := decodeListing(childPayload)
			if err != nil {
				return err
			}
			if len(childList) != 0 {
				return fs.NewError(fs.ENOTEMPTY, "rmdir", path, nil)
			}
		} else if child.Mode.IsDir() {
			return fs.NewError(fs.EISDIR, "unlink", path, nil)
		}
		// delete the matched entry (not necessarily == name, under case fold)
		for entryName := range list {
			if foldCase(entryName, f.caseFold) == folded {
				delete(list, entryName)
				break
			}
		}
		child.Nlink--
		if child.Nlink == 0 {
			if err := tx.Remove(child.Ino); err != nil {
				return err
			}
		} else {
			if err := f.putNode(tx, child, childPayload); err != nil {
				return err
			}
		}
		parent.Touch(true)
		return f.putNode(tx, parent, encodeListing(list))
	})
}

// Unlink removes a directory entry referring to a non-directory.
func (f *FS) Unlink(ctx context.Context, path string) error {
	return f.removeEntry(ctx, path, false)
}

// Rmdir removes an empty directory.
func (f *FS) Rmdir(ctx context.Context, path string) error {
	return f.removeEntry(ctx, path, true)
}

// Link adds a new name for an existing (non-directory) inode, incrementing
// its nlink.
func (f *FS) Link(ctx context.Context, existing, newPath string) error {
	parentPath, name := splitParent(newPath)
	if name == "" {
		return fs.NewError(fs.EEXIST, "link", newPath, nil)
	}
	return f.withTx(ctx, func(tx kvstore.Tx) error {
		target, targetPayload, err := f.lookup(tx, existing)
		if err != nil {
			return err
		}
		if target.Mode.IsDir() {
			return fs.NewError(fs.EPERM, "link", existing, nil)
		}
		parent, parentPayload, err := f.lookup(tx, parentPath)
		if err != nil {
			return err
		}
		list, err := decodeListing(parentPayload)
		if err != nil {
			return err
		}
		if _, exists := lookupFolded(list, foldCase(name, f.caseFold), f.caseFold); exists {
			return fs.NewError(fs.EEXIST, "link", newPath, nil)
		}
		target.Nlink++
		if err := f.putNode(tx, target, targetPayload); err != nil {
			return err
		}
		list[name] = target.Ino
		parent.Touch(true)
		return f.putNode(tx, parent, encodeListing(list))
	})
}

// isSelfOrDescendant reports whether path is ancestor itself or lies below
// it, using a "/"-sentinel string-prefix test (spec.md §4.C rename algo).
func isSelfOrDescendant(ancestor, path string) bool {
	a, _ := cleanPath(ancestor)
	p, _ := cleanPath(path)
	if a == p {
		return true
	}
	if a == "/" {
		return true
	}
	return strings.HasPrefix(p, a+"/")
}

// Rename moves oldPath to newPath, forbidding a directory move into itself
// or one of its own descendants, and allowing an existing regular-file
// target to be clobbered (never a directory target).
func (f *FS) Rename(ctx context.Context, oldPath, newPath string) error {
	oldParentPath, oldName := splitParent(oldPath)
	newParentPath, newName := splitParent(newPath)
	if oldName == "" || newName == "" {
		return fs.NewError(fs.EBUSY, "rename", oldPath, nil)
	}
	if isSelfOrDescendant(oldPath, newPath) {
		return fs.NewError(fs.EBUSY, "rename", oldPath, nil)
	}
	return f.withTx(ctx, func(tx kvstore.Tx) error {
		oldParent, oldParentPayload, err := f.lookup(tx, oldParentPath)
		if err != nil {
			return err
		}
		oldList, err := decodeListing(oldParentPayload)
		if err != nil {
			return err
		}
		oldFolded := foldCase(oldName, f.caseFold)
		srcIno, ok := lookupFolded(oldList, oldFolded, f.caseFold)
		if !ok {
			return fs.NewError(fs.ENOENT, "rename", oldPath, nil)
		}

		samePath := oldParentPath == newParentPath
		var newParent *inode.Inode
		var newParentPayload []byte
		var newList listing
		if samePath {
			newParent, newParentPayload, newList = oldParent, oldParentPayload, oldList
		} else {
			newParent, newParentPayload, err = f.lookup(tx, newParentPath)
			if err != nil {
				return err
			}
			newList, err = decodeListing(newParentPayload)
			if err != nil {
				return err
			}
		}

		newFolded := foldCase(newName, f.caseFold)
		if dstIno, exists := lookupFolded(newList, newFolded, f.caseFold); exists {
			dstNode, dstPayload, err := f.getInode(tx, dstIno)
			if err != nil {
				return err
			}
			if dstNode.Mode.IsDir() {
				return fs.NewError(fs.EPERM, "rename", newPath, nil)
			}
			dstNode.Nlink--
			if dstNode.Nlink == 0 {
				if err := tx.Remove(dstNode.Ino); err != nil {
					return err
				}
			} else if err := f.putNode(tx, dstNode, dstPayload); err != nil {
				return err
			}
			for entryName := range newList {
				if foldCase(entryName, f.caseFold) == newFolded {
					delete(newList, entryName)
					break
				}
			}
		}

		for entryName := range oldList {
			if foldCase(entryName, f.caseFold) == oldFolded {
				delete(oldList, entryName)
				break
			}
		}
		newList[newName] = srcIno

		oldParent.Touch(true)
		newParent.Touch(true)
		if samePath {
			return f.putNode(tx, oldParent, encodeListing(oldList))
		}
		if err := f.putNode(tx, oldParent, encodeListing(oldList)); err != nil {
			return err
		}
		return f.putNode(tx, newParent, encodeListing(newList))
	})
}

// Read copies up to len(buf) bytes from path's payload starting at offset
// into buf, clamping to the current size for regular files (but not
// devices, whose payload semantics a concrete backend like backend/devfs
// overrides), and bumps atime unless NoAtime is set.
func (f *FS) Read(ctx context.Context, path string, buf []byte, offset int64) (int, error) {
	var n int
	err := f.withTx(ctx, func(tx kvstore.Tx) error {
		node, payload, err := f.lookup(tx, path)
		if err != nil {
			return err
		}
		if offset < 0 {
			return fs.NewError(fs.EINVAL, "read", path, nil)
		}
		end := int64(len(payload))
		if node.Mode.IsRegular() && offset > end {
			offset = end
		}
		if offset >= int64(len(payload)) {
			n = 0
		} else {
			n = copy(buf, payload[offset:])
		}
		if !f.noAtime && !node.Flags.Has(fs.FlagNoAtime) {
			node.Touch(false)
			return f.putNode(tx, node, payload)
		}
		return nil
	})
	return n, err
}

// Write copies buf into path's payload at offset, extending the payload
// (and the inode's Size) if necessary, and bumps mtime/ctime.
func (f *FS) Write(ctx context.Context, path string, buf []byte, offset int64) (int, error) {
	var n int
	err := f.withTx(ctx, func(tx kvstore.Tx) error {
		node, payload, err := f.lookup(tx, path)
		if err != nil {
			return err
		}
		if node.Flags.Has(fs.FlagImmutable) {
			return fs.NewError(fs.EPERM, "write", path, nil)
		}
		if offset < 0 {
			return fs.NewError(fs.EINVAL, "write", path, nil)
		}
		needed := offset + int64(len(buf))
		if needed > int64(^uint32(0)) {
			return fs.NewError(fs.EFBIG, "write", path, nil)
		}
		if needed > int64(len(payload)) {
			grown := make([]byte, needed)
			copy(grown, payload)
			payload = grown
		}
		n = copy(payload[offset:], buf)
		node.Size = uint32(len(payload))
		node.Touch(true)
		return f.putNode(tx, node, payload)
	})
	return n, err
}

// Truncate resizes path's payload to size, zero-filling on growth.
func (f *FS) Truncate(ctx context.Context, path string, size uint32) error {
	return f.withTx(ctx, func(tx kvstore.Tx) error {
		node, payload, err := f.lookup(tx, path)
		if err != nil {
			return err
		}
		if node.Flags.Has(fs.FlagImmutable) {
			return fs.NewError(fs.EPERM, "truncate", path, nil)
		}
		resized := make([]byte, size)
		copy(resized, payload)
		node.Size = size
		node.Touch(true)
		return f.putNode(tx, node, resized)
	})
}

// Sync persists data (if non-nil) and any changed attrs on path's inode in
// a single transaction (spec.md §4.C).
func (f *FS) Sync(ctx context.Context, path string, data []byte, attrs fs.SetAttrs) error {
	return f.withTx(ctx, func(tx kvstore.Tx) error {
		node, payload, err := f.lookup(tx, path)
		if err != nil {
			return err
		}
		if data != nil {
			payload = data
			node.Size = uint32(len(payload))
			node.Touch(true)
		}
		node.Update(attrs)
		return f.putNode(tx, node, payload)
	})
}

// Readdir returns a directory's entry names, sorted for deterministic
// iteration (spec.md notes external order is not observable, so a stable
// order is a convenience, not a guarantee callers may rely on structurally).
func (f *FS) Readdir(ctx context.Context, path string) ([]string, error) {
	var names []string
	err := f.withTx(ctx, func(tx kvstore.Tx) error {
		n, payload, err := f.lookup(tx, path)
		if err != nil {
			return err
		}
		if !n.Mode.IsDir() {
			return fs.NewError(fs.ENOTDIR, "readdir", path, nil)
		}
		list, err := decodeListing(payload)
		if err != nil {
			return err
		}
		names = make([]string, 0, len(list))
		for name := range list {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil
	})
	return names, err
}

// nopReadCloser adapts a bytes.Reader to io.ReadCloser without pulling in
// io.NopCloser's wrapper type name into call sites.
type nopReadCloser struct{ *bytes.Reader }

func (nopReadCloser) Close() error { return nil }

// StreamRead returns the whole file's current contents as a ReadCloser. The
// engine has no notion of partial/incremental payload storage, so this is
// necessarily a whole-buffer snapshot rather than a true streaming read.
func (f *FS) StreamRead(ctx context.Context, path string) (io.ReadCloser, error) {
	var payload []byte
	err := f.withTx(ctx, func(tx kvstore.Tx) error {
		n, p, err := f.lookup(tx, path)
		if err != nil {
			return err
		}
		if !n.Mode.IsRegular() {
			return fs.NewError(fs.EINVAL, "streamRead", path, nil)
		}
		payload = append([]byte(nil), p...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nopReadCloser{bytes.NewReader(payload)}, nil
}

// streamWriter buffers writes in memory and commits them as one Sync call
// on Close, the natural shape for a store whose Write already replaces
// whole byte ranges rather than appending to an open descriptor.
type streamWriter struct {
	fs   *FS
	ctx  context.Context
	path string
	buf  bytes.Buffer
}

func (w *streamWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *streamWriter) Close() error {
	return w.fs.Sync(w.ctx, w.path, w.buf.Bytes(), fs.SetAttrs{})
}

// StreamWrite returns a WriteCloser that replaces path's contents wholesale
// when closed.
func (f *FS) StreamWrite(ctx context.Context, path string) (io.WriteCloser, error) {
	if !f.Exists(ctx, path) {
		return nil, fs.NewError(fs.ENOENT, "streamWrite", path, nil)
	}
	return &streamWriter{fs: f, ctx: ctx, path: path}, nil
}
