// Package vfs implements the user-facing facade (component I): the single
// surface applications call into, sitting on top of the mount table
// (vfs/mount), the FIFO serialization mixin (vfs/vfslock), the handle
// table (vfs/handle), and whatever fs.Filesystem backends are mounted.
// Grounded on rclone's top-level vfs package (known only from its test
// files in this retrieval pack) and on backend/union's dispatch-by-policy
// style for recursive tree operations; recursive cp fans out over
// golang.org/x/sync/errgroup the same way backend/level3 parallelizes
// descent over its constituent filesystems, while recursive rm runs
// sequentially.
package vfs

import (
	"context"
	"io"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/filetree/vfscore/fs"
	"github.com/filetree/vfscore/vfs/handle"
	"github.com/filetree/vfscore/vfs/mount"
	"github.com/filetree/vfscore/vfs/vfscommon"
	"github.com/filetree/vfscore/vfs/vfslock"
)

// Config is the facade's initialization-time configuration surface
// (spec.md §6), built directly on fs.Options. The facade reads CheckAccess,
// CallerUID/CallerGID and LockTimeout from it; CaseFold, AddDevices,
// DisableAsyncCache and RemoteTimeout are not read here (those behaviors
// are configured on the backends and mixins that are mounted).
type Config struct {
	fs.Options
}

// VFS is the top-level entry point applications use.
type VFS struct {
	cfg     Config
	mounts  *mount.Table
	handles *handle.Table
	events  vfscommon.Broadcaster
	stats   vfscommon.Stats

	locksMu sync.Mutex
	locks   map[string]*vfslock.Lock
}

// New builds a VFS over an initially empty mount table.
func New(cfg Config) *VFS {
	return &VFS{
		cfg:     Config{Options: cfg.Options.WithDefaults()},
		mounts:  mount.New(),
		handles: handle.NewTable(),
		locks:   make(map[string]*vfslock.Lock),
	}
}

// Stats returns a snapshot of the running operation counters.
func (v *VFS) Stats() vfscommon.Snapshot { return v.stats.Snapshot() }

// Mount registers backend at prefix.
func (v *VFS) Mount(prefix string, backend fs.Filesystem) { v.mounts.Mount(prefix, backend) }

// Umount removes the mount at prefix.
func (v *VFS) Umount(prefix string) { v.mounts.Umount(prefix) }

// Subscribe registers w to receive future change events.
func (v *VFS) Subscribe(w vfscommon.Watcher) { v.events.Subscribe(w) }

func (v *VFS) lockFor(prefix string) *vfslock.Lock {
	v.locksMu.Lock()
	defer v.locksMu.Unlock()
	l, ok := v.locks[prefix]
	if !ok {
		l = vfslock.New(vfslock.WithTimeout(v.cfg.LockTimeout))
		v.locks[prefix] = l
	}
	return l
}

// resolve implements the facade entry-point preamble spec.md §4.I lists:
// normalize, resolve symlinks (unless lstat-like), pick the mount.
func (v *VFS) resolve(ctx context.Context, path string, followSymlink bool) (backend fs.Filesystem, within, prefix, userPath string, err error) {
	userPath = vfscommon.CleanAbs(path)
	target := userPath
	if followSymlink {
		target, err = v.mounts.Realpath(ctx, userPath)
		if err != nil {
			v.stats.AddError()
			return nil, "", "", userPath, fs.WithPath(err, userPath)
		}
	}
	backend, within, prefix, err = v.mounts.ResolveMount(target)
	if err != nil {
		v.stats.AddError()
		return nil, "", "", userPath, fs.WithPath(err, userPath)
	}
	return backend, within, prefix, userPath, nil
}

func (v *VFS) withLock(ctx context.Context, prefix string, fn func() error) error {
	lock := v.lockFor(prefix)
	release, err := lock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

const (
	opCreate = fsnotify.Create
	opWrite  = fsnotify.Write
	opRemove = fsnotify.Remove
)

// checkAccess implements spec.md §4.I step 4: when CheckAccess is enabled,
// evaluate POSIX owner/group/other permission bits against the
// configured caller identity before delegating. Uid 0 bypasses every
// check, matching the kernel's own superuser override.
func (v *VFS) checkAccess(stats fs.Stats, want fs.FileMode) error {
	if !v.cfg.CheckAccess || v.cfg.CallerUID == 0 {
		return nil
	}
	perm := stats.Mode.Perm()
	var shift uint
	switch {
	case stats.UID == v.cfg.CallerUID:
		shift = 6
	case stats.GID == v.cfg.CallerGID:
		shift = 3
	default:
		shift = 0
	}
	granted := fs.FileMode(uint32(perm)>>shift) & 0o7
	if granted&want != want {
		return fs.NewError(fs.EACCES, "access", "", nil)
	}
	return nil
}

// checkParentWritable requires W_OK on path's parent directory, the check
// spec.md §4.I implies for unlink/rmdir (removing a name mutates the
// directory it lives in, not the entry being removed).
func (v *VFS) checkParentWritable(ctx context.Context, userPath string) error {
	if !v.cfg.CheckAccess {
		return nil
	}
	parentPath := path.Dir(vfscommon.CleanAbs(userPath))
	parentBackend, within, _, _, err := v.resolve(ctx, parentPath, true)
	if err != nil {
		return err
	}
	parentStats, err := parentBackend.Stat(ctx, within)
	if err != nil {
		return fs.WithPath(err, parentPath)
	}
	return v.checkAccess(parentStats, fs.W_OK)
}

func (v *VFS) publish(path string, op fsnotify.Op) {
	switch op {
	case opCreate:
		v.stats.AddCreate()
	case opWrite:
		v.stats.AddWrite()
	case opRemove:
		v.stats.AddRemove()
	}
	v.events.Publish(vfscommon.Event{Path: path, Op: op, Time: time.Now()})
}

// Stat returns path's attributes, with symlinks followed.
func (v *VFS) Stat(ctx context.Context, path string) (fs.Stats, error) {
	backend, within, _, userPath, err := v.resolve(ctx, path, true)
	if err != nil {
		return fs.Stats{}, err
	}
	stats, err := backend.Stat(ctx, within)
	return stats, fs.WithPath(err, userPath)
}

// Lstat is Stat without following a final symlink component.
func (v *VFS) Lstat(ctx context.Context, path string) (fs.Stats, error) {
	backend, within, _, userPath, err := v.resolve(ctx, path, false)
	if err != nil {
		return fs.Stats{}, err
	}
	stats, err := backend.Stat(ctx, within)
	return stats, fs.WithPath(err, userPath)
}

// Exists reports whether path resolves to anything, recovering ENOENT
// locally per spec.md §7's recovery policy.
func (v *VFS) Exists(ctx context.Context, path string) bool {
	backend, within, _, _, err := v.resolve(ctx, path, true)
	if err != nil {
		return false
	}
	return backend.Exists(ctx, within)
}

// Open resolves path, performs the optional creation dance, and returns a
// fresh fd on the facade's handle table.
func (v *VFS) Open(ctx context.Context, path string, flags fs.OpenFlag) (int, error) {
	backend, within, prefix, userPath, err := v.resolve(ctx, path, true)
	if err != nil {
		if flags.Has(fs.O_CREAT) && fs.Is(err, fs.ENOENT) {
			backend, within, prefix, err = v.mounts.ResolveMount(userPath)
		}
		if err != nil {
			return 0, err
		}
	}
	if existing, statErr := backend.Stat(ctx, within); statErr == nil {
		want := fs.FileMode(0)
		if flags.Readable() {
			want |= fs.R_OK
		}
		if flags.Writable() {
			want |= fs.W_OK
		}
		if err := v.checkAccess(existing, want); err != nil {
			return 0, fs.WithPath(err, userPath)
		}
	}
	var fd int
	err = v.withLock(ctx, prefix, func() error {
		fd, err = v.handles.Open(ctx, backend, within, flags)
		return err
	})
	if err != nil {
		return 0, fs.WithPath(err, userPath)
	}
	if flags.Writable() {
		v.publish(userPath, opWrite)
	} else if flags.Readable() {
		v.stats.AddRead()
	}
	return fd, nil
}

// Close closes fd, syncing it first; with force set, a failed sync does not
// stop the close.
func (v *VFS) Close(ctx context.Context, fd int, force bool) error {
	return v.handles.DeleteFD(ctx, fd, force)
}

// Read reads from fd at pos (pos<0 means the handle's current position).
func (v *VFS) Read(ctx context.Context, fd int, buf []byte, pos int64) (int, error) {
	h, err := v.handles.FromFD(ctx, fd)
	if err != nil {
		return 0, err
	}
	n, err := h.Read(ctx, buf, pos)
	if err == nil {
		v.stats.AddRead()
	}
	return n, err
}

// Write writes to fd at pos, publishing a write event on success.
func (v *VFS) Write(ctx context.Context, fd int, buf []byte, pos int64) (int, error) {
	h, err := v.handles.FromFD(ctx, fd)
	if err != nil {
		return 0, err
	}
	n, err := h.Write(ctx, buf, pos)
	if err == nil {
		v.stats.AddWrite()
	}
	return n, err
}

// TruncateFD truncates the file behind fd to size.
func (v *VFS) TruncateFD(ctx context.Context, fd int, size uint32) error {
	h, err := v.handles.FromFD(ctx, fd)
	if err != nil {
		return err
	}
	return h.Truncate(ctx, size)
}

// Mkdir creates path. With Recursive set, missing parent segments are
// created in order, inheriting setuid/setgid from their immediate parent
// where those bits are set — spec.md §4.I's high-complexity recursive
// mkdir algorithm.
func (v *VFS) Mkdir(ctx context.Context, path string, mode fs.FileMode, uid, gid uint32, recursive bool) (fs.Stats, error) {
	if !recursive {
		backend, within, prefix, userPath, err := v.resolve(ctx, path, false)
		if err != nil {
			return fs.Stats{}, err
		}
		if err := v.checkParentWritable(ctx, path); err != nil {
			return fs.Stats{}, err
		}
		var stats fs.Stats
		err = v.withLock(ctx, prefix, func() error {
			stats, err = backend.Mkdir(ctx, within, mode, uid, gid)
			return err
		})
		if err == nil {
			v.publish(userPath, opCreate)
		}
		return stats, fs.WithPath(err, userPath)
	}
	return v.mkdirAll(ctx, path, mode, uid, gid)
}

func (v *VFS) mkdirAll(ctx context.Context, path string, mode fs.FileMode, uid, gid uint32) (fs.Stats, error) {
	clean := vfscommon.CleanAbs(path)
	segs := strings.Split(strings.Trim(clean, "/"), "/")
	cur := "/"
	var stats fs.Stats
	var inheritedSetid fs.FileMode
	for _, seg := range segs {
		if seg == "" {
			continue
		}
		cur = vfscommon.CleanAbs(cur + "/" + seg)
		existing, err := v.Stat(ctx, cur)
		if err == nil {
			stats = existing
			inheritedSetid = existing.Mode & (fs.S_ISUID | fs.S_ISGID)
			continue
		}
		if !fs.Is(err, fs.ENOENT) {
			return fs.Stats{}, err
		}
		segMode := mode | inheritedSetid
		stats, err = v.Mkdir(ctx, cur, segMode, uid, gid, false)
		if err != nil {
			return fs.Stats{}, err
		}
		inheritedSetid = stats.Mode & (fs.S_ISUID | fs.S_ISGID)
	}
	return stats, nil
}

// Rmdir removes an empty directory.
func (v *VFS) Rmdir(ctx context.Context, path string) error {
	backend, within, prefix, userPath, err := v.resolve(ctx, path, false)
	if err != nil {
		return err
	}
	if err := v.checkParentWritable(ctx, path); err != nil {
		return err
	}
	err = v.withLock(ctx, prefix, func() error { return backend.Rmdir(ctx, within) })
	if err == nil {
		v.publish(userPath, opRemove)
	}
	return fs.WithPath(err, userPath)
}

// Unlink removes a non-directory entry.
func (v *VFS) Unlink(ctx context.Context, path string) error {
	backend, within, prefix, userPath, err := v.resolve(ctx, path, false)
	if err != nil {
		return err
	}
	if err := v.checkParentWritable(ctx, path); err != nil {
		return err
	}
	err = v.withLock(ctx, prefix, func() error { return backend.Unlink(ctx, within) })
	if err == nil {
		v.publish(userPath, opRemove)
	}
	return fs.WithPath(err, userPath)
}

// Rm removes path, dispatching by file type. Recursive descends into
// directories; Force swallows ENOENT, matching spec.md §4.I / §7.
func (v *VFS) Rm(ctx context.Context, path string, recursive, force bool) error {
	stats, err := v.Lstat(ctx, path)
	if err != nil {
		if force && fs.Is(err, fs.ENOENT) {
			return nil
		}
		return err
	}
	if stats.IsDir() {
		if recursive {
			names, err := v.Readdir(ctx, path, false)
			if err != nil {
				if force && fs.Is(err, fs.ENOENT) {
					return nil
				}
				return err
			}
			for _, name := range names {
				if err := v.Rm(ctx, joinPath(path, name), true, force); err != nil {
					return err
				}
			}
		}
		err := v.Rmdir(ctx, path)
		if force && fs.Is(err, fs.ENOENT) {
			return nil
		}
		return err
	}
	err = v.Unlink(ctx, path)
	if force && fs.Is(err, fs.ENOENT) {
		return nil
	}
	return err
}

// Rename moves oldPath to newPath. Cross-mount renames fail EXDEV, per
// spec.md §4.D.
func (v *VFS) Rename(ctx context.Context, oldPath, newPath string) error {
	oldBackend, oldWithin, oldPrefix, userOld, err := v.resolve(ctx, oldPath, false)
	if err != nil {
		return err
	}
	userNew := vfscommon.CleanAbs(newPath)
	newBackend, newWithin, _, err := v.mounts.ResolveMount(userNew)
	if err != nil {
		return fs.WithPath(err, userNew)
	}
	if newBackend != oldBackend {
		return fs.NewError(fs.EXDEV, "rename", userNew, nil)
	}
	err = v.withLock(ctx, oldPrefix, func() error {
		return oldBackend.Rename(ctx, oldWithin, newWithin)
	})
	if err == nil {
		v.publish(userOld, opRemove)
		v.publish(userNew, opCreate)
	}
	return fs.WithPath(err, userOld)
}

// Link creates newPath as a hard link to existing.
func (v *VFS) Link(ctx context.Context, existing, newPath string) error {
	backend, within, prefix, userExisting, err := v.resolve(ctx, existing, true)
	if err != nil {
		return err
	}
	userNew := vfscommon.CleanAbs(newPath)
	newBackend, newWithin, _, err := v.mounts.ResolveMount(userNew)
	if err != nil {
		return fs.WithPath(err, userNew)
	}
	if newBackend != backend {
		return fs.NewError(fs.EXDEV, "link", userNew, nil)
	}
	err = v.withLock(ctx, prefix, func() error { return backend.Link(ctx, within, newWithin) })
	if err == nil {
		v.publish(userNew, opCreate)
	}
	return fs.WithPath(err, userExisting)
}

// Readdir lists path's entry names. Recursive walks subdirectories
// depth-first, yielding paths relative to path itself.
func (v *VFS) Readdir(ctx context.Context, path string, recursive bool) ([]string, error) {
	backend, within, _, userPath, err := v.resolve(ctx, path, true)
	if err != nil {
		return nil, err
	}
	names, err := backend.Readdir(ctx, within)
	if err != nil {
		return nil, fs.WithPath(err, userPath)
	}
	if !recursive {
		return names, nil
	}
	var all []string
	for _, name := range names {
		all = append(all, name)
		stats, err := v.Stat(ctx, joinPath(path, name))
		if err != nil {
			return nil, err
		}
		if stats.IsDir() {
			children, err := v.Readdir(ctx, joinPath(path, name), true)
			if err != nil {
				return nil, err
			}
			for _, child := range children {
				all = append(all, name+"/"+child)
			}
		}
	}
	return all, nil
}

// CopyOptions configures Cp.
type CopyOptions struct {
	Recursive           bool
	ErrorOnExist        bool
	PreserveTimestamps  bool
}

// Cp copies src to dst, dispatching by file type and recursing into
// directories (spec.md §4.I). Sibling files within one directory are
// copied concurrently via errgroup, matching how backend/level3
// parallelizes descent over independent children.
func (v *VFS) Cp(ctx context.Context, src, dst string, opts CopyOptions) error {
	stats, err := v.Stat(ctx, src)
	if err != nil {
		return err
	}
	if opts.ErrorOnExist && v.Exists(ctx, dst) {
		return fs.NewError(fs.EEXIST, "cp", dst, nil)
	}
	if stats.IsDir() {
		if !opts.Recursive {
			return fs.NewError(fs.EISDIR, "cp", src, nil)
		}
		if _, err := v.Mkdir(ctx, dst, stats.Mode.Perm(), stats.UID, stats.GID, false); err != nil && !fs.Is(err, fs.EEXIST) {
			return err
		}
		names, err := v.Readdir(ctx, src, false)
		if err != nil {
			return err
		}
		g, gctx := errgroup.WithContext(ctx)
		for _, name := range names {
			name := name
			g.Go(func() error {
				return v.Cp(gctx, joinPath(src, name), joinPath(dst, name), opts)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	} else {
		if err := v.copyFile(ctx, src, dst, stats); err != nil {
			return err
		}
	}
	if opts.PreserveTimestamps {
		mtime := stats.Mtime
		atime := stats.Atime
		return v.Touch(ctx, dst, fs.SetAttrs{Mtime: &mtime, Atime: &atime})
	}
	return nil
}

func (v *VFS) copyFile(ctx context.Context, src, dst string, stats fs.Stats) error {
	if !v.Exists(ctx, dst) {
		if _, err := v.createFile(ctx, dst, stats.Mode.Perm(), stats.UID, stats.GID); err != nil {
			return err
		}
	}
	srcBackend, srcWithin, _, userSrc, err := v.resolve(ctx, src, true)
	if err != nil {
		return err
	}
	dstBackend, dstWithin, _, userDst, err := v.resolve(ctx, dst, true)
	if err != nil {
		return err
	}
	r, err := srcBackend.StreamRead(ctx, srcWithin)
	if err != nil {
		return fs.WithPath(err, userSrc)
	}
	defer r.Close()
	w, err := dstBackend.StreamWrite(ctx, dstWithin)
	if err != nil {
		return fs.WithPath(err, userDst)
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (v *VFS) createFile(ctx context.Context, path string, mode fs.FileMode, uid, gid uint32) (fs.Stats, error) {
	backend, within, prefix, userPath, err := v.resolve(ctx, path, false)
	if err != nil {
		return fs.Stats{}, err
	}
	if err := v.checkParentWritable(ctx, path); err != nil {
		return fs.Stats{}, err
	}
	var stats fs.Stats
	err = v.withLock(ctx, prefix, func() error {
		stats, err = backend.CreateFile(ctx, within, mode, uid, gid)
		return err
	})
	if err == nil {
		v.publish(userPath, opCreate)
	}
	return stats, fs.WithPath(err, userPath)
}

// Symlink creates path as a symbolic link pointing at target.
func (v *VFS) Symlink(ctx context.Context, target, path string, uid, gid uint32) (fs.Stats, error) {
	backend, within, prefix, userPath, err := v.resolve(ctx, path, false)
	if err != nil {
		return fs.Stats{}, err
	}
	if err := v.checkParentWritable(ctx, path); err != nil {
		return fs.Stats{}, err
	}
	var stats fs.Stats
	err = v.withLock(ctx, prefix, func() error {
		stats, err = backend.Symlink(ctx, target, within, uid, gid)
		return err
	})
	if err == nil {
		v.publish(userPath, opCreate)
	}
	return stats, fs.WithPath(err, userPath)
}

// Readlink returns the target of the symlink at path, without following it.
func (v *VFS) Readlink(ctx context.Context, path string) (string, error) {
	backend, within, _, userPath, err := v.resolve(ctx, path, false)
	if err != nil {
		return "", err
	}
	target, err := backend.Readlink(ctx, within)
	return target, fs.WithPath(err, userPath)
}

// Touch applies attrs to path.
func (v *VFS) Touch(ctx context.Context, path string, attrs fs.SetAttrs) error {
	backend, within, prefix, userPath, err := v.resolve(ctx, path, true)
	if err != nil {
		return err
	}
	err = v.withLock(ctx, prefix, func() error { return backend.Touch(ctx, within, attrs) })
	if err == nil {
		v.publish(userPath, opWrite)
	}
	return fs.WithPath(err, userPath)
}

// Glob expands pattern into matching paths under cwd, converting it to a
// regular expression per spec.md §4.I's translation rule (**→.*, *→[^/]*,
// ?→., other metacharacters escaped) rather than hand-rolling a matcher.
func (v *VFS) Glob(ctx context.Context, cwd, pattern string) ([]string, error) {
	re, err := globToRegexp(pattern)
	if err != nil {
		return nil, fs.NewError(fs.EINVAL, "glob", pattern, err)
	}
	entries, err := v.Readdir(ctx, cwd, true)
	if err != nil {
		return nil, err
	}
	var matches []string
	for _, entry := range entries {
		if re.MatchString(entry) {
			matches = append(matches, entry)
		}
	}
	return matches, nil
}

func globToRegexp(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(runes[i])))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

func joinPath(dir, name string) string {
	return vfscommon.CleanAbs(dir + "/" + name)
}
