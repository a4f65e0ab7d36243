package store

import (
	"fmt"

	"github.com/javanhut/strata/internal/cas"
	"go.etcd.io/bbolt"
)

// BoltCAS implements cas.CAS and cas.Sweeper on the objects bucket.
// Values are zstd compressed; a Put is durable once the bbolt transaction commits.
type BoltCAS struct {
	db *DB
}

// NewBoltCAS returns a CAS backed by db.
func NewBoltCAS(db *DB) *BoltCAS {
	return &BoltCAS{db: db}
}

// Put implements cas.CAS.Put.
func (b *BoltCAS) Put(hash cas.Hash, data []byte) error {
	if computed := cas.Sum(data); computed != hash {
		return fmt.Errorf("%w: expected %s, got %s", cas.ErrHashMismatch, hash, computed)
	}
	compressed, err := cas.Compress(data)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(BucketObjects)
		if bucket.Get(hash[:]) != nil {
			return nil
		}
		return bucket.Put(hash[:], compressed)
	})
}

// Get implements cas.CAS.Get.
func (b *BoltCAS) Get(hash cas.Hash) ([]byte, error) {
	var raw []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(BucketObjects).Get(hash[:])
		if v == nil {
			return fmt.Errorf("%w: %s", cas.ErrNotFound, hash)
		}
		// v is only valid inside the transaction
		raw = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	data, err := cas.Decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("corrupted object %s: %w", hash, err)
	}
	if cas.Sum(data) != hash {
		return nil, fmt.Errorf("corrupted object %s: %w", hash, cas.ErrHashMismatch)
	}
	return data, nil
}

// Has implements cas.CAS.Has.
func (b *BoltCAS) Has(hash cas.Hash) (bool, error) {
	var found bool
	err := b.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(BucketObjects).Get(hash[:]) != nil
		return nil
	})
	return found, err
}

// Walk implements cas.Sweeper.Walk. Hashes are collected first so fn may write.
func (b *BoltCAS) Walk(fn func(cas.Hash) error) error {
	var hashes []cas.Hash
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(BucketObjects).ForEach(func(k, _ []byte) error {
			if len(k) != cas.HashSize {
				return nil
			}
			var h cas.Hash
			copy(h[:], k)
			hashes = append(hashes, h)
			return nil
		})
	})
	if err != nil {
		return err
	}
	for _, h := range hashes {
		if err := fn(h); err != nil {
			return err
		}
	}
	return nil
}

// Delete implements cas.Sweeper.Delete.
func (b *BoltCAS) Delete(hash cas.Hash) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(BucketObjects).Delete(hash[:])
	})
}
