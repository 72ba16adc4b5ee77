package handle

import (
	"context"
	"sync"

	"github.com/filetree/vfscore/fs"
)

// Table is the process-wide (or, in an embedder that wants per-session
// isolation, per-context) descriptor table mapping integer fds to open
// Handles. Mutated only during open/close, as spec.md §5 notes.
type Table struct {
	mu   sync.Mutex
	next int
	open map[int]*Handle
}

// NewTable returns an empty descriptor table. fd 0 is never issued so a
// zero Table value's map lookups can't be confused with "no fd".
func NewTable() *Table {
	return &Table{next: 1, open: make(map[int]*Handle)}
}

// Open resolves path against backend, builds a Handle, and returns its
// fresh fd.
func (t *Table) Open(ctx context.Context, backend fs.Filesystem, internalPath string, flags fs.OpenFlag) (int, error) {
	stats, err := backend.Stat(ctx, internalPath)
	if err != nil {
		if flags.Has(fs.O_CREAT) && fs.Is(err, fs.ENOENT) {
			stats, err = backend.CreateFile(ctx, internalPath, 0o644, 0, 0)
		}
		if err != nil {
			return 0, err
		}
	} else if flags.Has(fs.O_CREAT) && flags.Has(fs.O_EXCL) {
		return 0, fs.NewError(fs.EEXIST, "open", internalPath, nil)
	}
	if flags.Has(fs.O_TRUNC) && flags.Writable() {
		if err := backend.Truncate(ctx, internalPath, 0); err != nil {
			return 0, err
		}
		stats.Size = 0
	}

	h := newHandle(backend, internalPath, flags, stats)
	t.mu.Lock()
	defer t.mu.Unlock()
	fd := t.next
	t.next++
	t.open[fd] = h
	return fd, nil
}

// FromFD resolves fd to its Handle, raising EBADF for an unknown or already
// closed descriptor.
func (t *Table) FromFD(ctx context.Context, fd int) (*Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.open[fd]
	if !ok {
		return nil, fs.NewError(fs.EBADF, "fromFD", "", nil)
	}
	return h, nil
}

// DeleteFD closes and forgets fd. Deleting an fd that was already deleted
// (or never existed) is EBADF, matching spec.md's "closing twice → EBADF".
func (t *Table) DeleteFD(ctx context.Context, fd int, force bool) error {
	t.mu.Lock()
	h, ok := t.open[fd]
	if !ok {
		t.mu.Unlock()
		return fs.NewError(fs.EBADF, "close", "", nil)
	}
	delete(t.open, fd)
	t.mu.Unlock()
	return h.Close(ctx, force)
}
