// Package store wraps the bbolt database that persists objects, branch refs and
// repository metadata.
package store

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// Buckets
var (
	BucketObjects = []byte("objects") // blake3 hash -> zstd(framed object)
	BucketRefs    = []byte("refs")    // branch name -> encoded branch record
	BucketMeta    = []byte("meta")    // repository metadata (current branch, ...)
)

const openTimeout = 5 * time.Second

type DB struct{ *bbolt.DB }

// Open opens (creating if needed) the database at path and ensures all buckets exist.
func Open(path string) (*DB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{BucketObjects, BucketRefs, BucketMeta} {
			if _, e := tx.CreateBucketIfNotExists(name); e != nil {
				return e
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{db}, nil
}

func (db *DB) Close() error { return db.DB.Close() }

// PutMeta stores a metadata key-value pair.
func (db *DB) PutMeta(key, value string) error {
	return db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(BucketMeta).Put([]byte(key), []byte(value))
	})
}

// GetMeta retrieves a metadata value. ok is false when the key is unset.
func (db *DB) GetMeta(key string) (value string, ok bool, err error) {
	err = db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(BucketMeta).Get([]byte(key))
		if v != nil {
			value, ok = string(v), true
		}
		return nil
	})
	return
}
