// Package cas provides a content-addressable storage interface and BLAKE3 hashing utilities.
package cas

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"

	"lukechampine.com/blake3"
)

// HashSize is the width of a hash in bytes.
const HashSize = 32

var (
	ErrNotFound     = errors.New("object not found")
	ErrHashMismatch = errors.New("hash mismatch")
	ErrInvalidHash  = errors.New("invalid hash")
)

// Hash represents a BLAKE3-256 hash value.
type Hash [HashSize]byte

// String returns the hexadecimal representation of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the first 8 hex characters of the hash.
func (h Hash) Short() string {
	return hex.EncodeToString(h[:4])
}

// IsZero reports whether h is the zero hash. The zero hash never names a stored object.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// ParseHash decodes a 64 character hex string.
func ParseHash(s string) (Hash, error) {
	var h Hash
	if len(s) != hex.EncodedLen(HashSize) {
		return h, fmt.Errorf("%w: length %d", ErrInvalidHash, len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	return h, nil
}

// Sum computes the BLAKE3 hash of the given data.
func Sum(data []byte) Hash {
	return blake3.Sum256(data)
}

// CAS defines the content-addressable storage interface.
type CAS interface {
	// Put stores data keyed by its hash.
	Put(hash Hash, data []byte) error

	// Get retrieves data by its hash.
	Get(hash Hash) ([]byte, error)

	// Has checks if data exists for the given hash.
	Has(hash Hash) (bool, error)
}

// Sweeper is implemented by backends that can enumerate and remove objects.
type Sweeper interface {
	// Walk calls fn for every stored hash. Order is unspecified.
	Walk(fn func(Hash) error) error

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(hash Hash) error
}

// MemoryCAS implements CAS using in-memory storage with thread-safe access.
type MemoryCAS struct {
	mu   sync.RWMutex
	data map[Hash][]byte
}

// NewMemoryCAS creates a new in-memory CAS.
func NewMemoryCAS() *MemoryCAS {
	return &MemoryCAS{
		data: make(map[Hash][]byte),
	}
}

// Put implements CAS.Put.
func (m *MemoryCAS) Put(hash Hash, data []byte) error {
	if computed := Sum(data); computed != hash {
		return fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, hash, computed)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[hash]; exists {
		return nil
	}
	// Store a copy to avoid external mutations
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	m.data[hash] = dataCopy

	return nil
}

// Get implements CAS.Get.
func (m *MemoryCAS) Get(hash Hash) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, exists := m.data[hash]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, hash)
	}

	result := make([]byte, len(data))
	copy(result, data)
	return result, nil
}

// Has implements CAS.Has.
func (m *MemoryCAS) Has(hash Hash) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.data[hash]
	return exists, nil
}

// Walk implements Sweeper.Walk. The hash set is captured before fn runs, so fn may
// call Delete.
func (m *MemoryCAS) Walk(fn func(Hash) error) error {
	m.mu.RLock()
	hashes := make([]Hash, 0, len(m.data))
	for h := range m.data {
		hashes = append(hashes, h)
	}
	m.mu.RUnlock()

	sort.Slice(hashes, func(i, j int) bool {
		return hashes[i].String() < hashes[j].String()
	})
	for _, h := range hashes {
		if err := fn(h); err != nil {
			return err
		}
	}
	return nil
}

// Delete implements Sweeper.Delete.
func (m *MemoryCAS) Delete(hash Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, hash)
	return nil
}

// Len returns the number of objects stored in the CAS.
func (m *MemoryCAS) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
