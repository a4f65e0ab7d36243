package refs

import (
	"fmt"
	"time"

	"github.com/javanhut/strata/internal/cas"
	"github.com/javanhut/strata/internal/store"
	"go.etcd.io/bbolt"
)

const currentBranchKey = "current_branch"

// BoltStore keeps branches in the refs bucket and the current branch in the meta
// bucket. Every operation runs in a single bbolt transaction, which bbolt serializes
// against all other writers.
type BoltStore struct {
	db *store.DB
}

// NewBoltStore returns a Store persisted in db.
func NewBoltStore(db *store.DB) *BoltStore {
	return &BoltStore{db: db}
}

// Get implements Store.Get.
func (s *BoltStore) Get(name string) (Branch, error) {
	var b Branch
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		b, err = getBranch(tx, name)
		return err
	})
	return b, err
}

func getBranch(tx *bbolt.Tx, name string) (Branch, error) {
	data := tx.Bucket(store.BucketRefs).Get([]byte(name))
	if data == nil {
		return Branch{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return decodeBranch(name, data)
}

func putBranch(tx *bbolt.Tx, b Branch) error {
	data, err := encodeBranch(b)
	if err != nil {
		return err
	}
	return tx.Bucket(store.BucketRefs).Put([]byte(b.Name), data)
}

// List implements Store.List. bbolt iterates keys in byte order.
func (s *BoltStore) List() ([]Branch, error) {
	var branches []Branch
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(store.BucketRefs).ForEach(func(k, v []byte) error {
			b, err := decodeBranch(string(k), v)
			if err != nil {
				return err
			}
			branches = append(branches, b)
			return nil
		})
	})
	return branches, err
}

// Create implements Store.Create.
func (s *BoltStore) Create(name string, head cas.Hash) error {
	if err := ValidateBranchName(name); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(store.BucketRefs).Get([]byte(name)) != nil {
			return fmt.Errorf("%w: %s", ErrExists, name)
		}
		return putBranch(tx, Branch{Name: name, Head: head, LastUpdated: time.Now()})
	})
}

// CompareAndSwap implements Store.CompareAndSwap.
func (s *BoltStore) CompareAndSwap(name string, from, to cas.Hash) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := getBranch(tx, name)
		if err != nil {
			return err
		}
		if b.Head != from {
			return fmt.Errorf("%w: %s is at %s, expected %s", ErrStale, name, b.Head.Short(), from.Short())
		}
		b.Head = to
		b.LastUpdated = time.Now()
		return putBranch(tx, b)
	})
}

// Delete implements Store.Delete.
func (s *BoltStore) Delete(name string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		refs := tx.Bucket(store.BucketRefs)
		if refs.Get([]byte(name)) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		if string(tx.Bucket(store.BucketMeta).Get([]byte(currentBranchKey))) == name {
			return fmt.Errorf("%w: %s", ErrCheckedOut, name)
		}
		return refs.Delete([]byte(name))
	})
}

// Current implements Store.Current.
func (s *BoltStore) Current() (string, error) {
	name, ok, err := s.db.GetMeta(currentBranchKey)
	if err != nil {
		return "", err
	}
	if !ok || name == "" {
		return "", fmt.Errorf("%w: no branch checked out", ErrNotFound)
	}
	return name, nil
}

// SetCurrent implements Store.SetCurrent.
func (s *BoltStore) SetCurrent(name string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(store.BucketRefs).Get([]byte(name)) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return tx.Bucket(store.BucketMeta).Put([]byte(currentBranchKey), []byte(name))
	})
}
