// Package vfscommon holds the small, shared pieces every other vfs/*
// package depends on: mount-relative path helpers, default tunables, and
// the change-notification plumbing built on fsnotify's Op bitmask
// (component L). Keeping these in one leaf package avoids the import
// cycles that would otherwise appear between vfs/mount, vfs/handle and the
// facade package, mirroring how rclone's vfs/vfscommon package exists
// purely to be imported by its siblings without looping back to them.
package vfscommon

import (
	stdpath "path"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPathCacheSize bounds vfs/mount's resolved-path LRU, named the way
// rclone's vfscommon.Options documents its own DirCacheTime/ReadAhead
// defaults.
const DefaultPathCacheSize = 4096

// SplitMount splits an absolute VFS path into the longest mount prefix
// candidate segments, most specific first, i.e. in longest-prefix order
// (spec.md §4.D's "longest matching prefix" rule). vfs/mount's resolver
// does not call it; it sorts its own mount keys by length instead.
func SplitMount(path string) []string {
	clean := CleanAbs(path)
	if clean == "/" {
		return []string{"/"}
	}
	parts := strings.Split(strings.Trim(clean, "/"), "/")
	out := make([]string, 0, len(parts)+1)
	for i := len(parts); i >= 0; i-- {
		if i == 0 {
			out = append(out, "/")
			continue
		}
		out = append(out, "/"+strings.Join(parts[:i], "/"))
	}
	return out
}

// CleanAbs canonicalizes path to an absolute, slash-separated, non-trailing
// (except root) form with "." and ".." segments collapsed, the same
// normalization every vfs/* package applies before comparing or hashing a
// path.
func CleanAbs(path string) string {
	return stdpath.Clean("/" + path)
}

// RelativeTo strips mountPoint from path, returning the path the mounted
// backend itself should resolve. Both arguments must already be clean.
func RelativeTo(mountPoint, path string) string {
	if mountPoint == "/" {
		return path
	}
	rel := strings.TrimPrefix(path, mountPoint)
	if rel == "" {
		return "/"
	}
	return rel
}

// Event is a change notification raised by a mutating vfs operation.
// Reusing fsnotify.Op as the bitmask (rather than inventing a parallel
// enum) means any code already written against fsnotify's Create/Write/
// Remove/Rename/Chmod constants works unchanged against internally raised
// events, exactly the kind of library reuse the teacher favors.
type Event struct {
	Path string
	Op   fsnotify.Op
	Time time.Time
}

// Watcher receives Events published by a mounted filesystem. Implementing
// this as a plain one-method callback interface (rather than requiring
// fsnotify's OS-level inotify/kqueue backend) lets an in-process VFS raise its own
// synthetic events without touching the real filesystem.
type Watcher interface {
	Notify(Event)
}

// Broadcaster fans a single Event out to every registered Watcher. It has
// no locking of its own: Subscribe and Publish are not safe to call
// concurrently. The vfs facade calls Publish after releasing its per-mount
// vfs/vfslock hold, so that lock does not serialize Publish calls.
type Broadcaster struct {
	watchers []Watcher
}

// Subscribe registers w to receive future events.
func (b *Broadcaster) Subscribe(w Watcher) {
	b.watchers = append(b.watchers, w)
}

// Publish raises ev to every subscriber.
func (b *Broadcaster) Publish(ev Event) {
	for _, w := range b.watchers {
		w.Notify(ev)
	}
}
