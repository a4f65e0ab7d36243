// Package repository is the library API of strata: a content-addressed object store,
// a commit DAG, branches moved by compare-and-swap, rollback and three-way merge.
//
// A Repository is safe for concurrent use. Operations on different branches never
// block each other; two writers racing on the same branch are told apart by the
// branch head they observed, and the loser receives ErrConcurrentModification.
package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/javanhut/strata/internal/cas"
	"github.com/javanhut/strata/internal/commit"
	"github.com/javanhut/strata/internal/diffmerge"
	"github.com/javanhut/strata/internal/history"
	"github.com/javanhut/strata/internal/logging"
	"github.com/javanhut/strata/internal/objects"
	"github.com/javanhut/strata/internal/refs"
)

// DefaultRetryMaxElapsed bounds RetryOnConflict when Options leave it unset.
const DefaultRetryMaxElapsed = 5 * time.Second

// Snapshot is a set of files keyed by slash-separated relative path.
type Snapshot map[string][]byte

// CommitRecord is a commit and its hash.
type CommitRecord struct {
	Hash      cas.Hash
	TreeHash  cas.Hash
	Parents   []cas.Hash
	Author    string
	Timestamp time.Time
	Message   string
}

func newRecord(hash cas.Hash, c *commit.CommitObject) CommitRecord {
	return CommitRecord{
		Hash:      hash,
		TreeHash:  c.TreeHash,
		Parents:   c.Parents,
		Author:    c.Author,
		Timestamp: c.Timestamp,
		Message:   c.Message,
	}
}

// IsMerge reports whether the commit has two parents.
func (r CommitRecord) IsMerge() bool {
	return len(r.Parents) == commit.MaxParents
}

// Options configure a Repository. Zero values select in-memory storage.
type Options struct {
	// Backend stores objects. Defaults to a cas.MemoryCAS.
	Backend cas.CAS
	// Refs stores branches. Defaults to a refs.MemoryStore.
	Refs refs.Store
	// CacheSize is the number of decoded objects kept in memory; negative disables.
	CacheSize int
	// Author is used when an operation is given no author.
	Author string
	// RetryMaxElapsed bounds RetryOnConflict.
	RetryMaxElapsed time.Duration
	// Clock stamps new commits. Defaults to time.Now.
	Clock func() time.Time
	// Closer is closed by Repository.Close.
	Closer io.Closer
}

// Repository owns an object store and a branch set.
type Repository struct {
	objects  *objects.ObjectStore
	refs     refs.Store
	trees    *commit.TreeBuilder
	commits  *commit.CommitBuilder
	reader   *commit.CommitReader
	walker   *history.Walker
	merger   *diffmerge.Merger
	sweeper  cas.Sweeper // nil when the backend cannot enumerate objects
	author   string
	retryMax time.Duration
	clock    func() time.Time
	closer   io.Closer

	// gcLock excludes garbage collection from every mutation. Mutators take the
	// read side so they never block each other.
	gcLock sync.RWMutex
}

// New creates a Repository over the given storage.
func New(opts Options) (*Repository, error) {
	backend := opts.Backend
	if backend == nil {
		backend = cas.NewMemoryCAS()
	}
	refStore := opts.Refs
	if refStore == nil {
		refStore = refs.NewMemoryStore()
	}
	cacheSize := opts.CacheSize
	if cacheSize == 0 {
		cacheSize = objects.DefaultCacheSize
	}
	store, err := objects.NewObjectStore(backend, cacheSize)
	if err != nil {
		return nil, err
	}

	r := &Repository{
		objects:  store,
		refs:     refStore,
		trees:    commit.NewTreeBuilder(store),
		commits:  commit.NewCommitBuilder(store),
		reader:   commit.NewCommitReader(store),
		merger:   diffmerge.NewMerger(store),
		author:   opts.Author,
		retryMax: opts.RetryMaxElapsed,
		clock:    opts.Clock,
		closer:   opts.Closer,
	}
	r.walker = history.NewWalker(r.reader)
	if sw, ok := backend.(cas.Sweeper); ok {
		r.sweeper = sw
	}
	if r.retryMax <= 0 {
		r.retryMax = DefaultRetryMaxElapsed
	}
	if r.clock == nil {
		r.clock = time.Now
	}
	return r, nil
}

// Close releases the underlying storage.
func (r *Repository) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Objects exposes the object store.
func (r *Repository) Objects() *objects.ObjectStore {
	return r.objects
}

func (r *Repository) log(ctx context.Context, op string) logging.Logger {
	return logging.FromContext(ctx).WithField(logging.OpFieldKey, op)
}

// resolveAuthor picks the explicit author, then the configured default.
func (r *Repository) resolveAuthor(author string) (string, error) {
	if author != "" {
		return author, nil
	}
	if r.author != "" {
		return r.author, nil
	}
	return "", fmt.Errorf("%w: no author given and none configured", ErrInvalidArgument)
}

// headTree returns the tree of a branch head, the empty tree for an empty branch.
func (r *Repository) headTree(head cas.Hash) (cas.Hash, *commit.TreeObject, error) {
	if head.IsZero() {
		return commit.HashTree(commit.EmptyTree), commit.EmptyTree, nil
	}
	c, err := r.reader.ReadCommit(head)
	if err != nil {
		return cas.Hash{}, nil, translate(err)
	}
	tree, err := r.reader.ReadTree(c.TreeHash)
	if err != nil {
		return cas.Hash{}, nil, translate(err)
	}
	return c.TreeHash, tree, nil
}

// requireCommit checks that hash names a stored commit.
func (r *Repository) requireCommit(hash cas.Hash) (*commit.CommitObject, error) {
	if hash.IsZero() {
		return nil, fmt.Errorf("%w: zero commit hash", ErrInvalidReference)
	}
	c, err := r.reader.ReadCommit(hash)
	if err != nil {
		if errors.Is(err, objects.ErrNotFound) || errors.Is(err, objects.ErrKindMismatch) {
			return nil, fmt.Errorf("%w: %s is not a commit: %w", ErrInvalidReference, hash, err)
		}
		return nil, err
	}
	return c, nil
}

// swapHead moves a branch by compare-and-swap.
func (r *Repository) swapHead(branch string, from, to cas.Hash) error {
	if err := r.refs.CompareAndSwap(branch, from, to); err != nil {
		return translate(err)
	}
	return nil
}

func (r *Repository) materialize(tree *commit.TreeObject) (Snapshot, error) {
	files, err := r.reader.Materialize(tree)
	if err != nil {
		return nil, translate(err)
	}
	return files, nil
}
