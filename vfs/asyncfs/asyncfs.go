// Package asyncfs implements the async/sync bridge mixin (component G):
// some backends (remote ones, chiefly vfs/remotefs) are fundamentally
// asynchronous, so this mixin serves the synchronous fs.Filesystem surface
// against a write-through shadow cache, falling through to the async
// backend on a miss. Grounded on rclone's backend/cache package, whose
// Memory storage (storage_memory.go) wraps patrickmn/go-cache as exactly
// this kind of write-through layer in front of a slower backing store —
// generalized here from "cache of chunks" to "cache of whole small files",
// which is what an in-process shadow of a virtual filesystem amounts to.
package asyncfs

import (
	"context"
	"io"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/filetree/vfscore/fs"
)

// shadowEntry is what the cache stores per path: a stat snapshot plus
// (for regular files) the whole payload, written through on every mutation.
type shadowEntry struct {
	stats   fs.Stats
	payload []byte
}

// Option configures an FS at construction.
type Option func(*FS)

// DisableShadowCache forces the shadow to be absent: sync operations then
// raise ENOTSUP instead of silently serving stale or absent data, matching
// spec.md §4.G's disableAsyncCache option.
func DisableShadowCache() Option {
	return func(f *FS) { f.shadow = nil }
}

// WithExpiration overrides the shadow cache's per-entry TTL.
func WithExpiration(d time.Duration) Option {
	return func(f *FS) { f.expiration = d }
}

// FS bridges an asynchronous backend to the synchronous fs.Filesystem
// contract via a write-through shadow cache.
type FS struct {
	async      fs.Filesystem
	shadow     *cache.Cache
	expiration time.Duration
}

// New wraps async, building a shadow cache unless DisableShadowCache was
// passed.
func New(async fs.Filesystem, opts ...Option) *FS {
	f := &FS{async: async, expiration: 5 * time.Minute}
	f.shadow = cache.New(f.expiration, f.expiration*2)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FS) Name() string          { return f.async.Name() }
func (f *FS) UUID() string          { return f.async.UUID() }
func (f *FS) Label() string         { return f.async.Label() }
func (f *FS) SetLabel(l string) error { return f.async.SetLabel(l) }
func (f *FS) ReadOnly() bool         { return f.async.ReadOnly() }
func (f *FS) NoAtime() bool          { return f.async.NoAtime() }
func (f *FS) CaseFold() fs.CaseFold  { return f.async.CaseFold() }

func (f *FS) notSupported(syscall, path string) error {
	return fs.NewError(fs.ENOTSUP, syscall, path, nil)
}

func (f *FS) invalidate(path string) {
	if f.shadow != nil {
		f.shadow.Delete(path)
	}
}

func (f *FS) storeShadow(path string, stats fs.Stats, payload []byte) {
	if f.shadow == nil {
		return
	}
	f.shadow.Set(path, shadowEntry{stats: stats, payload: payload}, f.expiration)
}

func (f *FS) lookupShadow(path string) (shadowEntry, bool) {
	if f.shadow == nil {
		return shadowEntry{}, false
	}
	v, ok := f.shadow.Get(path)
	if !ok {
		return shadowEntry{}, false
	}
	return v.(shadowEntry), true
}

// Stat consults the shadow first, falling through to the async backend on
// a miss and populating the shadow with what it finds.
func (f *FS) Stat(ctx context.Context, path string) (fs.Stats, error) {
	if entry, ok := f.lookupShadow(path); ok {
		return entry.stats, nil
	}
	stats, err := f.async.Stat(ctx, path)
	if err != nil {
		return stats, err
	}
	f.storeShadow(path, stats, nil)
	return stats, nil
}

func (f *FS) Exists(ctx context.Context, path string) bool {
	if _, ok := f.lookupShadow(path); ok {
		return true
	}
	return f.async.Exists(ctx, path)
}

func (f *FS) Read(ctx context.Context, path string, buf []byte, offset int64) (int, error) {
	if entry, ok := f.lookupShadow(path); ok && entry.payload != nil {
		if offset >= int64(len(entry.payload)) {
			return 0, nil
		}
		return copy(buf, entry.payload[offset:]), nil
	}
	n, err := f.async.Read(ctx, path, buf, offset)
	if err != nil {
		return n, err
	}
	return n, nil
}

// Write goes to both the async backend (the source of truth) and the
// shadow (write-through), exactly as spec.md §4.G specifies.
func (f *FS) Write(ctx context.Context, path string, buf []byte, offset int64) (int, error) {
	n, err := f.async.Write(ctx, path, buf, offset)
	if err != nil {
		return n, err
	}
	stats, statErr := f.async.Stat(ctx, path)
	if statErr == nil && stats.IsRegular() {
		payload := make([]byte, stats.Size)
		if _, rerr := f.async.Read(ctx, path, payload, 0); rerr == nil {
			f.storeShadow(path, stats, payload)
			return n, nil
		}
	}
	if statErr == nil {
		f.storeShadow(path, stats, nil)
	} else {
		f.invalidate(path)
	}
	return n, nil
}

func (f *FS) Rename(ctx context.Context, oldPath, newPath string) error {
	if err := f.async.Rename(ctx, oldPath, newPath); err != nil {
		return err
	}
	f.invalidate(oldPath)
	f.invalidate(newPath)
	return nil
}

func (f *FS) Touch(ctx context.Context, path string, attrs fs.SetAttrs) error {
	if err := f.async.Touch(ctx, path, attrs); err != nil {
		return err
	}
	f.invalidate(path)
	return nil
}

func (f *FS) CreateFile(ctx context.Context, path string, mode fs.FileMode, uid, gid uint32) (fs.Stats, error) {
	stats, err := f.async.CreateFile(ctx, path, mode, uid, gid)
	if err != nil {
		return stats, err
	}
	f.storeShadow(path, stats, nil)
	return stats, nil
}

func (f *FS) Unlink(ctx context.Context, path string) error {
	if err := f.async.Unlink(ctx, path); err != nil {
		return err
	}
	f.invalidate(path)
	return nil
}

func (f *FS) Rmdir(ctx context.Context, path string) error {
	if err := f.async.Rmdir(ctx, path); err != nil {
		return err
	}
	f.invalidate(path)
	return nil
}

func (f *FS) Mkdir(ctx context.Context, path string, mode fs.FileMode, uid, gid uint32) (fs.Stats, error) {
	stats, err := f.async.Mkdir(ctx, path, mode, uid, gid)
	if err != nil {
		return stats, err
	}
	f.storeShadow(path, stats, nil)
	return stats, nil
}

func (f *FS) Readdir(ctx context.Context, path string) ([]string, error) {
	return f.async.Readdir(ctx, path)
}

func (f *FS) Link(ctx context.Context, existing, newPath string) error {
	if err := f.async.Link(ctx, existing, newPath); err != nil {
		return err
	}
	f.invalidate(existing)
	f.invalidate(newPath)
	return nil
}

func (f *FS) Symlink(ctx context.Context, target, linkPath string, uid, gid uint32) (fs.Stats, error) {
	return f.async.Symlink(ctx, target, linkPath, uid, gid)
}

func (f *FS) Readlink(ctx context.Context, path string) (string, error) {
	return f.async.Readlink(ctx, path)
}

// Sync, if the shadow cache has been disabled, raises ENOTSUP rather than
// silently doing nothing, per spec.md §4.G.
func (f *FS) Sync(ctx context.Context, path string, data []byte, attrs fs.SetAttrs) error {
	if f.shadow == nil {
		return f.notSupported("sync", path)
	}
	if err := f.async.Sync(ctx, path, data, attrs); err != nil {
		return err
	}
	f.invalidate(path)
	return nil
}

func (f *FS) Truncate(ctx context.Context, path string, size uint32) error {
	if err := f.async.Truncate(ctx, path, size); err != nil {
		return err
	}
	f.invalidate(path)
	return nil
}

func (f *FS) StreamRead(ctx context.Context, path string) (io.ReadCloser, error) {
	return f.async.StreamRead(ctx, path)
}

func (f *FS) StreamWrite(ctx context.Context, path string) (io.WriteCloser, error) {
	return f.async.StreamWrite(ctx, path)
}

var _ fs.Filesystem = (*FS)(nil)
