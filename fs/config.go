package fs

import "time"

// Options is the construction-time configuration surface (spec.md §6). It
// is a concrete, statically typed struct rather than a reflective "this
// value matches one of these type tags" validator: a backend that can't
// honor an option simply ignores it, and the zero value of Options is
// always a legal configuration (checkAccess off, no case folding, no
// devices, async cache enabled).
type Options struct {
	// CheckAccess enables POSIX permission checks in the VFS facade.
	CheckAccess bool
	// CaseFold names a path-case policy. vfs.New does not read it; case
	// folding takes effect only through storefs.WithCaseFold on a backend.
	CaseFold CaseFold
	// AddDevices names the /dev/{null,zero,full,random} device nodes.
	// vfs.New does not read it; the nodes exist only where a backend/devfs
	// instance is mounted.
	AddDevices bool
	// DisableAsyncCache names the shadow-cache toggle of the async/sync
	// bridge. vfs.New does not read it; the shadow is removed only by
	// passing asyncfs.DisableShadowCache to asyncfs.New.
	DisableAsyncCache bool
	// LockTimeout is the per-hold deadlock-detection timeout for
	// vfs/vfslock; zero means the package default (5s).
	LockTimeout time.Duration
	// RemoteTimeout is filled with DefaultRemoteTimeout (1s) by WithDefaults
	// when zero. Nothing passes it on to vfs/remotefs; a remotefs.FS takes
	// its request timeout from remotefs.New's own argument.
	RemoteTimeout time.Duration
	// CallerUID and CallerGID identify the process on whose behalf
	// CheckAccess's permission checks are evaluated. Zero (root) bypasses
	// all checks, matching POSIX's own uid-0 override.
	CallerUID uint32
	CallerGID uint32
}

// DefaultLockTimeout is vfs/vfslock's default per-ticket deadlock timer.
const DefaultLockTimeout = 5 * time.Second

// DefaultRemoteTimeout is vfs/remotefs's default per-request timeout.
const DefaultRemoteTimeout = 1 * time.Second

// WithDefaults returns a copy of o with zero-value timeouts filled in.
func (o Options) WithDefaults() Options {
	if o.LockTimeout == 0 {
		o.LockTimeout = DefaultLockTimeout
	}
	if o.RemoteTimeout == 0 {
		o.RemoteTimeout = DefaultRemoteTimeout
	}
	return o
}
