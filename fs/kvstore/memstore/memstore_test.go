package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetCommit(t *testing.T) {
	s := New()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	ok, err := tx.Put(1, []byte("hello"), false)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, tx.Commit())

	tx2, err := s.Begin(ctx)
	require.NoError(t, err)
	data, ok, err := tx2.Get(1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello", string(data))
	require.NoError(t, tx2.Commit())
}

func TestPutNoOverwriteCollision(t *testing.T) {
	s := New()
	ctx := context.Background()
	tx, _ := s.Begin(ctx)
	ok, err := tx.Put(5, []byte("a"), false)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = tx.Put(5, []byte("b"), false)
	require.NoError(t, err)
	assert.False(t, ok, "collision with overwrite=false must report false, not an error")
	require.NoError(t, tx.Commit())
}

func TestAbortRestoresPriorState(t *testing.T) {
	s := New()
	ctx := context.Background()

	tx, _ := s.Begin(ctx)
	_, _ = tx.Put(1, []byte("original"), false)
	require.NoError(t, tx.Commit())

	tx2, _ := s.Begin(ctx)
	_, err := tx2.Put(1, []byte("changed"), true)
	require.NoError(t, err)
	require.NoError(t, tx2.Remove(2)) // never existed, should be harmless
	require.NoError(t, tx2.Abort())

	tx3, _ := s.Begin(ctx)
	data, ok, err := tx3.Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "original", string(data), "abort must undo the in-flight Put")
	require.NoError(t, tx3.Commit())
}

func TestAbortUndoesNewKey(t *testing.T) {
	s := New()
	ctx := context.Background()

	tx, _ := s.Begin(ctx)
	_, _ = tx.Put(9, []byte("new"), false)
	require.NoError(t, tx.Abort())

	tx2, _ := s.Begin(ctx)
	_, ok, err := tx2.Get(9)
	require.NoError(t, err)
	assert.False(t, ok, "a key created then aborted must not persist")
	require.NoError(t, tx2.Commit())
}

func TestClear(t *testing.T) {
	s := New()
	ctx := context.Background()
	tx, _ := s.Begin(ctx)
	_, _ = tx.Put(1, []byte("x"), false)
	require.NoError(t, tx.Commit())

	require.NoError(t, s.Clear(ctx))

	tx2, _ := s.Begin(ctx)
	_, ok, _ := tx2.Get(1)
	assert.False(t, ok)
	require.NoError(t, tx2.Commit())
}
