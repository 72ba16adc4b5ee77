// Package mount implements the mount table and path resolution pipeline
// (component D): mount(prefix, fs), umount(prefix), resolveMount(path),
// and realpath(path) with symlink chasing. Grounded on rclone's
// backend/union package, which also maintains a set of named roots and
// picks one by longest-prefix policy on every operation; here the prefixes
// are literal mount points rather than union-policy upstreams.
package mount

import (
	"context"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/filetree/vfscore/fs"
	"github.com/filetree/vfscore/vfs/vfscommon"
)

// maxSymlinkDepth bounds realpath's recursion, the cycle detection spec.md
// §4.D calls for ("by depth bound").
const maxSymlinkDepth = 40

// resolved is the cached result of resolveMount for one path.
type resolved struct {
	fs         fs.Filesystem
	pathWithin string
	prefix     string
}

// Table is the process-wide mount table. resolveMount results are cached
// in an LRU (hashicorp/golang-lru/v2) keyed on the queried path, since
// mounts change rarely relative to how often paths are resolved — the
// cache is invalidated wholesale on every Mount/Umount.
type Table struct {
	mu     sync.RWMutex
	mounts map[string]fs.Filesystem
	cache  *lru.Cache[string, resolved]
}

// New builds an empty mount table with a resolution cache sized for
// vfscommon.DefaultPathCacheSize entries.
func New() *Table {
	cache, _ := lru.New[string, resolved](vfscommon.DefaultPathCacheSize)
	return &Table{mounts: make(map[string]fs.Filesystem), cache: cache}
}

// Mount registers backend at prefix, replacing any existing mount there.
func (t *Table) Mount(prefix string, backend fs.Filesystem) {
	prefix = vfscommon.CleanAbs(prefix)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mounts[prefix] = backend
	t.cache.Purge()
}

// Umount removes the mount at prefix. Unmounting an unmounted prefix is a
// no-op, matching the "does not exist" recovery-policy shape used
// elsewhere (spec.md §7).
func (t *Table) Umount(prefix string) {
	prefix = vfscommon.CleanAbs(prefix)
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.mounts, prefix)
	t.cache.Purge()
}

// ResolveMount picks the mount whose prefix is the longest match for path —
// equal to it, or a directory-prefix of it — and returns the backend, the
// path relative to that mount, and the matched prefix itself.
func (t *Table) ResolveMount(path string) (backend fs.Filesystem, pathWithin, prefix string, err error) {
	clean := vfscommon.CleanAbs(path)

	if cached, ok := t.cache.Get(clean); ok {
		return cached.fs, cached.pathWithin, cached.prefix, nil
	}

	t.mu.RLock()
	prefixes := make([]string, 0, len(t.mounts))
	for p := range t.mounts {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })

	for _, p := range prefixes {
		if p == clean || p == "/" || strings.HasPrefix(clean, p+"/") {
			backend = t.mounts[p]
			t.mu.RUnlock()
			within := vfscommon.RelativeTo(p, clean)
			t.cache.Add(clean, resolved{fs: backend, pathWithin: within, prefix: p})
			return backend, within, p, nil
		}
	}
	t.mu.RUnlock()
	return nil, "", "", fs.NewError(fs.ENOENT, "resolveMount", path, nil)
}

// Realpath canonicalizes path, resolving every symlink along the way, the
// way POSIX realpath(3) does: resolve the parent first, join the
// basename, stat the result, and if it's a symlink, read its target and
// recurse relative to the parent directory.
func (t *Table) Realpath(ctx context.Context, path string) (string, error) {
	return t.realpath(ctx, path, 0)
}

func (t *Table) realpath(ctx context.Context, path string, depth int) (string, error) {
	if depth > maxSymlinkDepth {
		return "", fs.NewError(fs.EIO, "realpath", path, nil)
	}
	clean := vfscommon.CleanAbs(path)
	if clean == "/" {
		return "/", nil
	}

	parent, base := splitLast(clean)
	resolvedParent := parent
	if parent != "/" {
		var err error
		resolvedParent, err = t.realpath(ctx, parent, depth+1)
		if err != nil {
			return "", err
		}
	}
	full := vfscommon.CleanAbs(resolvedParent + "/" + base)

	backend, within, _, err := t.ResolveMount(full)
	if err != nil {
		return "", err
	}
	stats, err := backend.Stat(ctx, within)
	if err != nil {
		return "", fs.WithPath(err, full)
	}
	if !stats.IsSymlink() {
		return full, nil
	}
	target, err := backend.Readlink(ctx, within)
	if err != nil {
		return "", fs.WithPath(err, full)
	}
	if !strings.HasPrefix(target, "/") {
		target = vfscommon.CleanAbs(resolvedParent + "/" + target)
	}
	return t.realpath(ctx, target, depth+1)
}

func splitLast(clean string) (parent, base string) {
	idx := strings.LastIndex(clean, "/")
	if idx <= 0 {
		return "/", clean[idx+1:]
	}
	return clean[:idx], clean[idx+1:]
}
