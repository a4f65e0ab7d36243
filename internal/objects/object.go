// Package objects frames content by kind and stores it in a content-addressed backend.
//
// Every object is hashed over "<kind> <len>\x00" + content, so a blob and a tree with
// identical payload bytes never share an identity.
package objects

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	lru "github.com/hnlq715/golang-lru"
	"github.com/javanhut/strata/internal/cas"
)

// Kind identifies the type of a stored object.
type Kind uint8

const (
	KindBlob Kind = iota + 1
	KindTree
	KindCommit
)

func (k Kind) String() string {
	switch k {
	case KindBlob:
		return "blob"
	case KindTree:
		return "tree"
	case KindCommit:
		return "commit"
	default:
		return "unknown"
	}
}

func parseKind(s string) (Kind, error) {
	switch s {
	case "blob":
		return KindBlob, nil
	case "tree":
		return KindTree, nil
	case "commit":
		return KindCommit, nil
	}
	return 0, fmt.Errorf("%w: unknown object kind %q", ErrMalformed, s)
}

var (
	ErrNotFound     = cas.ErrNotFound
	ErrKindMismatch = errors.New("object kind mismatch")
	ErrMalformed    = errors.New("malformed object")
)

// DefaultCacheSize is the number of decoded objects kept in memory.
const DefaultCacheSize = 4096

// ---------------------------
// Canonical framing
// ---------------------------

func header(kind Kind, size int) []byte {
	return []byte(kind.String() + " " + strconv.Itoa(size) + "\x00")
}

// Frame returns the canonical bytes that are hashed and stored: "<kind> <len>\x00"+content.
func Frame(kind Kind, content []byte) []byte {
	h := header(kind, len(content))
	out := make([]byte, 0, len(h)+len(content))
	out = append(out, h...)
	return append(out, content...)
}

// Unframe splits canonical bytes into kind and content.
func Unframe(raw []byte) (Kind, []byte, error) {
	sep := bytes.IndexByte(raw, 0x00)
	if sep < 0 {
		return 0, nil, fmt.Errorf("%w: missing NUL after header", ErrMalformed)
	}
	kindStr, sizeStr, ok := bytes.Cut(raw[:sep], []byte{' '})
	if !ok {
		return 0, nil, fmt.Errorf("%w: invalid header %q", ErrMalformed, raw[:sep])
	}
	kind, err := parseKind(string(kindStr))
	if err != nil {
		return 0, nil, err
	}
	size, err := strconv.Atoi(string(sizeStr))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: invalid size %q", ErrMalformed, sizeStr)
	}
	content := raw[sep+1:]
	if size != len(content) {
		return 0, nil, fmt.Errorf("%w: header size %d, have %d bytes", ErrMalformed, size, len(content))
	}
	return kind, content, nil
}

// HashOf returns the identity an object of the given kind and content would have.
func HashOf(kind Kind, content []byte) cas.Hash {
	return cas.Sum(Frame(kind, content))
}

// ---------------------------
// Store
// ---------------------------

type cached struct {
	kind    Kind
	content []byte
}

// ObjectStore is the typed, deduplicating front of a cas.CAS backend.
// It is safe for concurrent use.
type ObjectStore struct {
	backend cas.CAS
	cache   *lru.Cache
	writes  atomic.Int64
}

// NewObjectStore wraps backend. cacheSize <= 0 disables the decode cache.
func NewObjectStore(backend cas.CAS, cacheSize int) (*ObjectStore, error) {
	s := &ObjectStore{backend: backend}
	if cacheSize > 0 {
		c, err := lru.New(cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create object cache: %w", err)
		}
		s.cache = c
	}
	return s, nil
}

// Backend returns the underlying CAS.
func (s *ObjectStore) Backend() cas.CAS {
	return s.backend
}

// Put stores content under kind and returns its hash. Storing content that already
// exists performs no backend write.
func (s *ObjectStore) Put(kind Kind, content []byte) (cas.Hash, error) {
	framed := Frame(kind, content)
	hash := cas.Sum(framed)

	exists, err := s.backend.Has(hash)
	if err != nil {
		return cas.Hash{}, fmt.Errorf("check %s %s: %w", kind, hash, err)
	}
	if exists {
		return hash, nil
	}
	if err := s.backend.Put(hash, framed); err != nil {
		return cas.Hash{}, fmt.Errorf("store %s %s: %w", kind, hash, err)
	}
	s.writes.Add(1)
	return hash, nil
}

// Get returns the content of the object, which must be of the given kind.
func (s *ObjectStore) Get(kind Kind, hash cas.Hash) ([]byte, error) {
	obj, err := s.load(hash)
	if err != nil {
		return nil, err
	}
	if obj.kind != kind {
		return nil, fmt.Errorf("%w: %s is a %s, not a %s", ErrKindMismatch, hash, obj.kind, kind)
	}
	return bytes.Clone(obj.content), nil
}

// Has reports whether any object with this hash exists.
func (s *ObjectStore) Has(hash cas.Hash) (bool, error) {
	if s.cache != nil {
		if _, ok := s.cache.Get(hash); ok {
			return true, nil
		}
	}
	return s.backend.Has(hash)
}

// Kind returns the kind of a stored object.
func (s *ObjectStore) Kind(hash cas.Hash) (Kind, error) {
	obj, err := s.load(hash)
	if err != nil {
		return 0, err
	}
	return obj.kind, nil
}

// PutBlob stores file content.
func (s *ObjectStore) PutBlob(content []byte) (cas.Hash, error) {
	return s.Put(KindBlob, content)
}

// GetBlob reads file content.
func (s *ObjectStore) GetBlob(hash cas.Hash) ([]byte, error) {
	return s.Get(KindBlob, hash)
}

// Forget drops hash from the decode cache. Used after objects are swept.
func (s *ObjectStore) Forget(hash cas.Hash) {
	if s.cache != nil {
		s.cache.Remove(hash)
	}
}

// Writes returns how many objects this store has written to its backend.
func (s *ObjectStore) Writes() int64 {
	return s.writes.Load()
}

func (s *ObjectStore) load(hash cas.Hash) (cached, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(hash); ok {
			return v.(cached), nil
		}
	}
	raw, err := s.backend.Get(hash)
	if err != nil {
		return cached{}, err
	}
	kind, content, err := Unframe(raw)
	if err != nil {
		return cached{}, fmt.Errorf("object %s: %w", hash, err)
	}
	obj := cached{kind: kind, content: content}
	if s.cache != nil {
		s.cache.Add(hash, obj)
	}
	return obj, nil
}
