package store

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/javanhut/strata/internal/cas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strata.db")
	db, err := Open(path)
	require.NoError(t, err)
	return db, path
}

func TestBoltCASPutGet(t *testing.T) {
	db, _ := openTestDB(t)
	defer db.Close()
	store := NewBoltCAS(db)

	data := []byte("bolt object")
	hash := cas.Sum(data)

	has, err := store.Has(hash)
	require.NoError(t, err)
	assert.False(t, has)

	_, err = store.Get(hash)
	assert.True(t, errors.Is(err, cas.ErrNotFound))

	require.NoError(t, store.Put(hash, data))
	require.NoError(t, store.Put(hash, data))

	got, err := store.Get(hash)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	err = store.Put(cas.Sum([]byte("other")), data)
	assert.ErrorIs(t, err, cas.ErrHashMismatch)
}

func TestBoltCASPersistsAcrossReopen(t *testing.T) {
	db, path := openTestDB(t)
	data := bytes.Repeat([]byte("persist "), 50)
	hash := cas.Sum(data)
	require.NoError(t, NewBoltCAS(db).Put(hash, data))
	require.NoError(t, db.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := NewBoltCAS(reopened).Get(hash)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestBoltCASWalkDelete(t *testing.T) {
	db, _ := openTestDB(t)
	defer db.Close()
	store := NewBoltCAS(db)

	a, b := cas.Sum([]byte("a")), cas.Sum([]byte("b"))
	require.NoError(t, store.Put(a, []byte("a")))
	require.NoError(t, store.Put(b, []byte("b")))

	var seen []cas.Hash
	require.NoError(t, store.Walk(func(h cas.Hash) error {
		seen = append(seen, h)
		return store.Delete(h)
	}))
	assert.ElementsMatch(t, []cas.Hash{a, b}, seen)

	has, err := store.Has(a)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestMeta(t *testing.T) {
	db, _ := openTestDB(t)
	defer db.Close()

	_, ok, err := db.GetMeta("current")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.PutMeta("current", "main"))
	v, ok, err := db.GetMeta("current")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "main", v)
}
