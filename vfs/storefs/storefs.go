// Package storefs implements the store-backed filesystem engine (component
// C): a hierarchical namespace with inodes, directory listings, and hard
// links realized on top of a flat, transactional fs/kvstore.Store. This is
// the hard core the rest of the VFS design sits on top of, grounded on
// rclone's backend/cache package (a real filesystem-shaped cache realized
// over a transactional bbolt store) generalized from "cache of a remote" to
// "the only copy there is".
package storefs

import (
	"context"
	"sync"

	"github.com/filetree/vfscore/fs"
	"github.com/filetree/vfscore/fs/inode"
	"github.com/filetree/vfscore/fs/kvstore"
	"github.com/google/uuid"
)

// maxInodeAllocTries bounds the rejection-sampling loop createFile/mkdir/
// symlink use to pick a fresh, collision-free ino (spec.md §4.C).
const maxInodeAllocTries = 5

// FS is the store-backed engine. It implements fs.Filesystem directly; it
// is not itself concurrency-safe across operations — vfs/vfslock wraps one
// FS per mount to serialize multi-step operations, exactly as spec.md §4.E
// describes.
type FS struct {
	name  string
	id    string
	store kvstore.Store

	noAtime  bool
	caseFold fs.CaseFold

	labelMu sync.Mutex
	label   string

	xattrMu sync.Mutex
	xattrs  map[uint64]map[string]string
}

// Option configures an FS at construction, following the functional-options
// style grounded on backend/seafile/pacer.go's per-resource constructor.
type Option func(*FS)

// WithNoAtime disables atime updates on reads.
func WithNoAtime() Option { return func(f *FS) { f.noAtime = true } }

// WithCaseFold canonicalizes path components to a single case for lookup.
func WithCaseFold(mode fs.CaseFold) Option { return func(f *FS) { f.caseFold = mode } }

// New builds a store-backed filesystem named name over store, bootstrapping
// the root inode if the store doesn't already have one (spec.md §4.C "Root
// bootstrap").
func New(ctx context.Context, name string, store kvstore.Store, opts ...Option) (*FS, error) {
	f := &FS{
		name:   name,
		id:     uuid.NewString(),
		store:  store,
		xattrs: make(map[uint64]map[string]string),
	}
	for _, opt := range opts {
		opt(f)
	}
	tx, err := store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	_, _, err = f.getInode(tx, inode.RootIno)
	if err != nil {
		if !fs.Is(err, fs.ENOENT) {
			_ = tx.Abort()
			return nil, err
		}
		root := inode.NewRoot()
		rec, encErr := encodeRecord(root, encodeListing(listing{}))
		if encErr != nil {
			_ = tx.Abort()
			return nil, encErr
		}
		if _, err := tx.Put(root.Ino, rec, false); err != nil {
			_ = tx.Abort()
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return f, nil
}

// Name, UUID, Label, SetLabel satisfy fs.Filesystem's identity surface.
func (f *FS) Name() string { return f.name }
func (f *FS) UUID() string { return f.id }

func (f *FS) Label() string {
	f.labelMu.Lock()
	defer f.labelMu.Unlock()
	return f.label
}

func (f *FS) SetLabel(label string) error {
	f.labelMu.Lock()
	defer f.labelMu.Unlock()
	f.label = label
	return nil
}

func (f *FS) ReadOnly() bool       { return false }
func (f *FS) NoAtime() bool        { return f.noAtime }
func (f *FS) CaseFold() fs.CaseFold { return f.caseFold }

// --- internal lookup plumbing -------------------------------------------------

func (f *FS) getInode(tx kvstore.Tx, ino uint64) (*inode.Inode, []byte, error) {
	data, ok, err := tx.Get(ino)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fs.NewError(fs.ENOENT, "getInode", "", nil)
	}
	return decodeRecord(data)
}

// lookup walks from root to the named path, applying the case-fold policy
// to each segment, and guards against pathological cycles with a depth
// bound (spec.md §4.C: "a visited-set ... guards against pathological
// cycles").
func (f *FS) lookup(tx kvstore.Tx, path string) (n *inode.Inode, payload []byte, err error) {
	clean, trailingSlash := cleanPath(path)
	if clean == "/" {
		n, payload, err = f.getInode(tx, inode.RootIno)
		if err != nil {
			return nil, nil, err
		}
		return n, payload, nil
	}
	segs := segments(clean)
	if len(segs) > 1024 {
		return nil, nil, fs.NewError(fs.EIO, "lookup", path, nil)
	}
	curIno := inode.RootIno
	var cur *inode.Inode
	var curPayload []byte
	for i, seg := range segs {
		cur, curPayload, err = f.getInode(tx, curIno)
		if err != nil {
			return nil, nil, fs.WithPath(err, path)
		}
		if !cur.Mode.IsDir() {
			return nil, nil, fs.NewError(fs.ENOTDIR, "lookup", path, nil)
		}
		list, lerr := decodeListing(curPayload)
		if lerr != nil {
			return nil, nil, lerr
		}
		seg = foldCase(seg, f.caseFold)
		childIno, ok := lookupFolded(list, seg, f.caseFold)
		if !ok {
			return nil, nil, fs.NewError(fs.ENOENT, "lookup", path, nil)
		}
		curIno = childIno
		if i == len(segs)-1 {
			cur, curPayload, err = f.getInode(tx, curIno)
			if err != nil {
				return nil, nil, err
			}
			if trailingSlash && !cur.Mode.IsDir() {
				return nil, nil, fs.NewError(fs.ENOTDIR, "lookup", path, nil)
			}
		}
	}
	return cur, curPayload, nil
}

func foldCase(name string, mode fs.CaseFold) string {
	switch mode {
	case fs.CaseFoldLower:
		return toLowerASCII(name)
	case fs.CaseFoldUpper:
		return toUpperASCII(name)
	default:
		return name
	}
}

func lookupFolded(l listing, name string, mode fs.CaseFold) (uint64, bool) {
	if mode == fs.CaseFoldNone {
		ino, ok := l[name]
		return ino, ok
	}
	for entryName, ino := range l {
		if foldCase(entryName, mode) == name {
			return ino, true
		}
	}
	return 0, false
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func toUpperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

func (f *FS) withTx(ctx context.Context, fn func(tx kvstore.Tx) error) error {
	tx, err := f.store.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Abort()
		return err
	}
	return tx.Commit()
}

func (f *FS) putNode(tx kvstore.Tx, n *inode.Inode, payload []byte) error {
	rec, err := encodeRecord(n, payload)
	if err != nil {
		return err
	}
	_, err = tx.Put(n.Ino, rec, true)
	return err
}

// allocateInode rejection-samples a fresh ino, retrying up to
// maxInodeAllocTries times before signaling ENOSPC, exactly as spec.md
// §4.C's createFile/mkdir algorithm specifies.
func (f *FS) allocateInode(tx kvstore.Tx) (*inode.Inode, error) {
	var last error
	for i := 0; i < maxInodeAllocTries; i++ {
		n, err := inode.New()
		if err != nil {
			return nil, err
		}
		rec, err := encodeRecord(n, nil)
		if err != nil {
			return nil, err
		}
		ok, err := tx.Put(n.Ino, rec, false)
		if err != nil {
			return nil, err
		}
		if ok {
			return n, nil
		}
		last = fs.NewError(fs.ENOSPC, "allocateInode", "", nil)
	}
	if last == nil {
		last = fs.NewError(fs.ENOSPC, "allocateInode", "", nil)
	}
	return nil, last
}
