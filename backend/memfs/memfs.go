// Package memfs wires the store-backed engine (vfs/storefs) to the
// in-memory transactional store (fs/kvstore/memstore), producing a
// volatile fs.Filesystem backend suitable for tests, tmpfs-like mounts, and
// the /dev device nodes backend/devfs builds on top of. Grounded on
// rclone's backend/local package as "the reference concrete backend every
// other backend is compared against", generalized from the real OS
// filesystem to the in-memory store.
package memfs

import (
	"context"

	"github.com/filetree/vfscore/fs"
	"github.com/filetree/vfscore/fs/kvstore/memstore"
	"github.com/filetree/vfscore/vfs/storefs"
)

// New constructs a volatile, in-memory fs.Filesystem named name.
func New(ctx context.Context, name string, opts ...storefs.Option) (fs.Filesystem, error) {
	return storefs.New(ctx, name, memstore.New(), opts...)
}
