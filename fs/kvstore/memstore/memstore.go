// Package memstore is the in-memory fs/kvstore.Store implementation: a
// plain map guarded by a mutex, with each transaction recording the
// pre-mutation value of every key it touches so Abort can restore it. No
// library in the retrieval pack offers undo-log transaction semantics over
// a bare map (go-cache is a TTL cache with no rollback; bbolt already
// solves this but requires a backing file) — this is why the in-memory
// variant is hand-rolled rather than built on a third-party store (see
// DESIGN.md).
package memstore

import (
	"context"
	"sync"

	"github.com/filetree/vfscore/fs/kvstore"
)

// Store is a process-local, in-memory kvstore.Store.
type Store struct {
	mu   sync.Mutex
	data map[uint64][]byte
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{data: make(map[uint64][]byte)}
}

// Begin starts a transaction. Only one transaction may be open at a time
// per Store value, matching spec.md's "serial within one transaction
// object" contract; the higher-level vfs/vfslock mixin is what actually
// prevents concurrent callers from racing to Begin.
func (s *Store) Begin(ctx context.Context) (kvstore.Tx, error) {
	return &tx{store: s, undo: make(map[uint64]*[]byte)}, nil
}

// Clear empties the whole keyspace.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[uint64][]byte)
	return nil
}

// Close is a no-op; the in-memory store holds no external resources.
func (s *Store) Close() error { return nil }

// tx is one in-flight transaction. It applies mutations to the store's map
// immediately (so later Gets within the same Tx observe earlier Puts) but
// remembers, per key, the value that was present the first time the key was
// touched, so Abort can restore exactly that.
type tx struct {
	store *Store
	undo  map[uint64]*[]byte // nil entry value => key didn't exist before
	done  bool
}

func (t *tx) recordUndo(ino uint64) {
	if _, seen := t.undo[ino]; seen {
		return
	}
	if v, ok := t.store.data[ino]; ok {
		cp := append([]byte(nil), v...)
		t.undo[ino] = &cp
	} else {
		t.undo[ino] = nil
	}
}

func (t *tx) Get(ino uint64) ([]byte, bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	v, ok := t.store.data[ino]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (t *tx) Put(ino uint64, data []byte, overwrite bool) (bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if _, exists := t.store.data[ino]; exists && !overwrite {
		return false, nil
	}
	t.recordUndo(ino)
	t.store.data[ino] = append([]byte(nil), data...)
	return true, nil
}

func (t *tx) Remove(ino uint64) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.recordUndo(ino)
	delete(t.store.data, ino)
	return nil
}

func (t *tx) Commit() error {
	t.done = true
	return nil
}

func (t *tx) Abort() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for ino, before := range t.undo {
		if before == nil {
			delete(t.store.data, ino)
		} else {
			t.store.data[ino] = *before
		}
	}
	t.done = true
	return nil
}
