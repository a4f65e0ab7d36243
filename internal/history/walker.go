// Package history traverses the commit graph.
//
// The package provides:
// - Lazy first-parent iteration from a head back to the root
// - Ancestry checks across all parents
// - Lowest common ancestor search by simultaneous breadth-first expansion
// - Full reachability walks used by verification and garbage collection
//
// The graph is read through a CommitLoader; nothing here writes objects.
package history

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/javanhut/strata/internal/cas"
	"github.com/javanhut/strata/internal/commit"
)

// ErrNoCommonAncestor is returned by LCA for unrelated histories.
var ErrNoCommonAncestor = errors.New("no common ancestor found")

// CommitLoader reads commits by hash. *commit.CommitReader implements it.
type CommitLoader interface {
	ReadCommit(hash cas.Hash) (*commit.CommitObject, error)
}

// Record is a commit together with its identity.
type Record struct {
	Hash cas.Hash
	*commit.CommitObject
}

// Walker answers ancestry questions over the commit DAG.
type Walker struct {
	loader CommitLoader
}

// NewWalker creates a Walker reading commits from loader.
func NewWalker(loader CommitLoader) *Walker {
	return &Walker{loader: loader}
}

// FirstParent yields head and then each first parent until the root. The zero hash
// yields nothing. Iteration stops after the first error.
func (w *Walker) FirstParent(ctx context.Context, head cas.Hash) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		current := head
		for !current.IsZero() {
			if err := ctx.Err(); err != nil {
				yield(Record{}, err)
				return
			}
			c, err := w.loader.ReadCommit(current)
			if err != nil {
				yield(Record{}, err)
				return
			}
			if !yield(Record{Hash: current, CommitObject: c}, nil) {
				return
			}
			current, _ = c.FirstParent()
		}
	}
}

// Walk visits every commit reachable from heads through any parent, each once, in
// breadth-first order. Zero heads are skipped. A non-nil error from fn stops the walk.
func (w *Walker) Walk(ctx context.Context, heads []cas.Hash, fn func(Record) error) error {
	seen := make(map[cas.Hash]struct{})
	var queue []cas.Hash
	for _, h := range heads {
		if h.IsZero() {
			continue
		}
		if _, ok := seen[h]; !ok {
			seen[h] = struct{}{}
			queue = append(queue, h)
		}
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		current := queue[0]
		queue = queue[1:]

		c, err := w.loader.ReadCommit(current)
		if err != nil {
			return err
		}
		if err := fn(Record{Hash: current, CommitObject: c}); err != nil {
			return err
		}
		for _, p := range c.Parents {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				queue = append(queue, p)
			}
		}
	}
	return nil
}

var errFound = errors.New("found")

// IsAncestor reports whether ancestor is reachable from descendant through parent
// links. A commit is its own ancestor. The zero hash is never an ancestor.
func (w *Walker) IsAncestor(ctx context.Context, ancestor, descendant cas.Hash) (bool, error) {
	if ancestor.IsZero() || descendant.IsZero() {
		return false, nil
	}
	err := w.Walk(ctx, []cas.Hash{descendant}, func(r Record) error {
		if r.Hash == ancestor {
			return errFound
		}
		return nil
	})
	if errors.Is(err, errFound) {
		return true, nil
	}
	return false, err
}

type side uint8

const (
	fromA side = 1 << iota
	fromB
	fromBoth = fromA | fromB
)

// LCA returns the lowest common ancestor of a and b: a commit reachable from both
// that is not a proper ancestor of another such commit. Both tips are expanded
// breadth first from a single queue, each commit carrying the set of tips it was
// reached from. Among several lowest candidates (criss-cross histories) the one
// first reached from both sides wins. Returns ErrNoCommonAncestor when the histories
// are disjoint or either tip is zero.
func (w *Walker) LCA(ctx context.Context, a, b cas.Hash) (cas.Hash, error) {
	if a.IsZero() || b.IsZero() {
		return cas.Hash{}, ErrNoCommonAncestor
	}
	if a == b {
		return a, nil
	}

	marks := map[cas.Hash]side{a: fromA, b: fromB}
	redundant := make(map[cas.Hash]struct{})
	var common []cas.Hash // in the order commits became reachable from both
	queue := []cas.Hash{a, b}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return cas.Hash{}, err
		}
		current := queue[0]
		queue = queue[1:]

		c, err := w.loader.ReadCommit(current)
		if err != nil {
			return cas.Hash{}, fmt.Errorf("lca: %w", err)
		}
		flags := marks[current]
		for _, p := range c.Parents {
			if flags == fromBoth {
				redundant[p] = struct{}{}
			}
			prev := marks[p]
			next := prev | flags
			if next == prev {
				continue
			}
			if next == fromBoth {
				common = append(common, p)
			}
			marks[p] = next
			queue = append(queue, p)
		}
	}

	for _, h := range common {
		if _, ok := redundant[h]; !ok {
			return h, nil
		}
	}
	return cas.Hash{}, ErrNoCommonAncestor
}
