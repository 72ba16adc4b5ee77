// Package boltfs wires the store-backed engine (vfs/storefs) to the
// durable bbolt-backed store (fs/kvstore/boltstore), producing a
// crash-durable fs.Filesystem backend. Grounded the same way
// backend/memfs wires storefs to memstore, swapping only the Store
// implementation, which is the entire point of storefs taking
// kvstore.Store as a constructor argument rather than assuming one.
package boltfs

import (
	"context"

	"github.com/filetree/vfscore/fs"
	"github.com/filetree/vfscore/fs/kvstore/boltstore"
	"github.com/filetree/vfscore/vfs/storefs"
)

// FS is a durable fs.Filesystem backed by a bbolt database file. Close
// must be called to flush and release the underlying file.
type FS struct {
	fs.Filesystem
	store *boltstore.Store
}

// Open opens (creating if necessary) a bbolt-backed filesystem named name
// at the given database file path.
func Open(ctx context.Context, name, path string, opts ...storefs.Option) (*FS, error) {
	store, err := boltstore.Open(path)
	if err != nil {
		return nil, err
	}
	inner, err := storefs.New(ctx, name, store, opts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &FS{Filesystem: inner, store: store}, nil
}

// Close flushes and closes the underlying bbolt database file.
func (f *FS) Close() error { return f.store.Close() }

var _ fs.Filesystem = (*FS)(nil)
