// Package boltstore is the durable fs/kvstore.Store implementation,
// wrapping go.etcd.io/bbolt. It is grounded directly on
// backend/cache/storage_persistent.go's pattern of one bucket per logical
// namespace and db.Update/db.View for commit-or-abort transactions — here
// there is exactly one bucket (dataBucket) keyed by the 8-byte big-endian
// ino, since unlike the cache backend we have no nested directory-shaped
// bucket hierarchy to walk.
package boltstore

import (
	"context"
	"encoding/binary"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/filetree/vfscore/fs/kvstore"
)

var dataBucket = []byte("ino")

// Store is a bbolt-backed, durable kvstore.Store.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) a bbolt database file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open bolt store at %q", path)
	}
	err = db.Update(func(btx *bolt.Tx) error {
		_, err := btx.CreateBucketIfNotExists(dataBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to create bolt bucket")
	}
	return &Store{db: db}, nil
}

func keyOf(ino uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], ino)
	return b[:]
}

// Begin starts a real bbolt read-write transaction, deferring Commit/
// Rollback to the returned Tx.
func (s *Store) Begin(ctx context.Context) (kvstore.Tx, error) {
	btx, err := s.db.Begin(true)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin bolt transaction")
	}
	return &tx{btx: btx, bucket: btx.Bucket(dataBucket)}, nil
}

// Clear drops and recreates the bucket, emptying the keyspace.
func (s *Store) Clear(ctx context.Context) error {
	return s.db.Update(func(btx *bolt.Tx) error {
		if err := btx.DeleteBucket(dataBucket); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		_, err := btx.CreateBucket(dataBucket)
		return err
	})
}

// Close closes the underlying bbolt database file.
func (s *Store) Close() error {
	return s.db.Close()
}

type tx struct {
	btx    *bolt.Tx
	bucket *bolt.Bucket
}

func (t *tx) Get(ino uint64) ([]byte, bool, error) {
	v := t.bucket.Get(keyOf(ino))
	if v == nil {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (t *tx) Put(ino uint64, data []byte, overwrite bool) (bool, error) {
	key := keyOf(ino)
	if !overwrite && t.bucket.Get(key) != nil {
		return false, nil
	}
	if err := t.bucket.Put(key, data); err != nil {
		return false, errors.Wrap(err, "bolt put failed")
	}
	return true, nil
}

func (t *tx) Remove(ino uint64) error {
	if err := t.bucket.Delete(keyOf(ino)); err != nil {
		return errors.Wrap(err, "bolt delete failed")
	}
	return nil
}

func (t *tx) Commit() error {
	return t.btx.Commit()
}

func (t *tx) Abort() error {
	return t.btx.Rollback()
}
