// Package kvstore defines the transactional store contract (component B):
// a flat ino→bytes mapping with commit-or-abort transactions. Two
// implementations are provided — fs/kvstore/memstore (process-local,
// undo-log based) and fs/kvstore/boltstore (durable, bbolt-backed).
package kvstore

import "context"

// Store opens transactions against a single flat keyspace. Implementations
// must support one transaction at a time per Store value; whether two
// distinct Store values may run concurrent transactions against the same
// underlying backend is implementation-defined, exactly as spec.md §4.B
// leaves it.
type Store interface {
	// Begin starts a new transaction. The returned Tx must be Committed or
	// Aborted exactly once.
	Begin(ctx context.Context) (Tx, error)
	// Clear empties the entire keyspace outside of any transaction; used
	// only by the rare "empty filesystem" administrative operation.
	Clear(ctx context.Context) error
	// Close releases any resources the store holds open (file handles,
	// background goroutines).
	Close() error
}

// Tx is one transactional unit of work. Every mutating filesystem
// operation in vfs/storefs opens exactly one Tx, performs its gets/puts/
// removes, and either commits or aborts before returning.
type Tx interface {
	// Get fetches the bytes stored under ino. ok is false if absent.
	Get(ino uint64) (data []byte, ok bool, err error)
	// Put stores data under ino. If overwrite is false and ino already has
	// a value, Put returns (false, nil) rather than an error — this is how
	// the engine's rejection-sampling inode allocator detects a collision.
	Put(ino uint64, data []byte, overwrite bool) (ok bool, err error)
	// Remove deletes ino. Removing an absent key is not an error.
	Remove(ino uint64) error
	// Commit durably applies every Put/Remove issued on this Tx. Calling
	// any method on the Tx after Commit is a programming error.
	Commit() error
	// Abort discards every Put/Remove issued on this Tx, restoring the
	// pre-transaction state. Calling any method on the Tx after Abort is a
	// programming error.
	Abort() error
}

// ErrCorrupt is returned by a Store implementation that detects its backing
// medium is corrupt (a distinct failure kind from an ordinary Put
// collision, per spec.md §4.B).
type ErrCorrupt struct {
	Reason string
}

func (e *ErrCorrupt) Error() string { return "store corrupt: " + e.Reason }
