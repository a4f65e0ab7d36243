package repository

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/javanhut/strata/internal/cas"
	"github.com/javanhut/strata/internal/commit"
	"github.com/javanhut/strata/internal/history"
	"github.com/javanhut/strata/internal/logging"
	"github.com/javanhut/strata/internal/objects"
)

// Verify checks every object reachable from every branch: each branch head and each
// parent is a stored commit, each commit's tree is a stored tree, and each tree entry
// is a stored blob. All violations are reported together.
func (r *Repository) Verify(ctx context.Context) error {
	branches, err := r.ListBranches(ctx)
	if err != nil {
		return err
	}

	var result *multierror.Error
	seenCommits := make(map[cas.Hash]struct{})
	seenTrees := make(map[cas.Hash]struct{})
	var queue []cas.Hash
	for _, b := range branches {
		if b.IsEmpty() {
			continue
		}
		if _, ok := seenCommits[b.Head]; !ok {
			seenCommits[b.Head] = struct{}{}
			queue = append(queue, b.Head)
		}
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		hash := queue[0]
		queue = queue[1:]

		c, err := r.reader.ReadCommit(hash)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("commit %s: %w", hash, translate(err)))
			continue
		}
		if len(c.Parents) > commit.MaxParents {
			result = multierror.Append(result, fmt.Errorf("commit %s: %d parents", hash, len(c.Parents)))
		}
		for _, p := range c.Parents {
			if _, ok := seenCommits[p]; !ok {
				seenCommits[p] = struct{}{}
				queue = append(queue, p)
			}
		}

		if _, ok := seenTrees[c.TreeHash]; ok {
			continue
		}
		seenTrees[c.TreeHash] = struct{}{}
		tree, err := r.reader.ReadTree(c.TreeHash)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("commit %s: tree %s: %w", hash, c.TreeHash, translate(err)))
			continue
		}
		for _, e := range tree.Entries {
			kind, err := r.objects.Kind(e.Hash)
			switch {
			case err != nil:
				result = multierror.Append(result, fmt.Errorf("tree %s: %s: blob %s: %w", c.TreeHash, e.Path, e.Hash, translate(err)))
			case kind != objects.KindBlob:
				result = multierror.Append(result, fmt.Errorf("tree %s: %s: %s is a %s: %w", c.TreeHash, e.Path, e.Hash, kind, ErrInvalidReference))
			}
		}
	}

	r.log(ctx, "verify").WithFields(logging.Fields{
		"commits":    len(seenCommits),
		"trees":      len(seenTrees),
		"violations": len(result.WrappedErrors()),
	}).Info("Verification finished")
	return result.ErrorOrNil()
}

// GCStats summarizes a garbage collection run.
type GCStats struct {
	Commits int // reachable commits
	Trees   int // reachable trees
	Blobs   int // reachable blobs
	Scanned int // objects examined by the sweep
	Removed int // objects deleted
}

// GC deletes every object not reachable from a branch head. It blocks all mutating
// operations while it runs. Backends that cannot enumerate objects return
// ErrUnsupported.
func (r *Repository) GC(ctx context.Context) (GCStats, error) {
	var stats GCStats
	if r.sweeper == nil {
		return stats, fmt.Errorf("%w: object backend cannot be swept", ErrUnsupported)
	}

	r.gcLock.Lock()
	defer r.gcLock.Unlock()

	branches, err := r.ListBranches(ctx)
	if err != nil {
		return stats, err
	}
	heads := make([]cas.Hash, 0, len(branches))
	for _, b := range branches {
		heads = append(heads, b.Head)
	}

	live := make(map[cas.Hash]struct{})
	err = r.walker.Walk(ctx, heads, func(rec history.Record) error {
		live[rec.Hash] = struct{}{}
		stats.Commits++
		if _, ok := live[rec.TreeHash]; ok {
			return nil
		}
		live[rec.TreeHash] = struct{}{}
		stats.Trees++
		tree, err := r.reader.ReadTree(rec.TreeHash)
		if err != nil {
			return err
		}
		for _, e := range tree.Entries {
			if _, ok := live[e.Hash]; !ok {
				live[e.Hash] = struct{}{}
				stats.Blobs++
			}
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("gc mark: %w", translate(err))
	}

	err = r.sweeper.Walk(func(h cas.Hash) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if _, ok := live[h]; ok {
			return nil
		}
		if err := r.sweeper.Delete(h); err != nil {
			return err
		}
		r.objects.Forget(h)
		stats.Removed++
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("gc sweep: %w", err)
	}

	r.log(ctx, "gc").WithFields(logging.Fields{
		"scanned": stats.Scanned,
		"removed": stats.Removed,
	}).Info("Garbage collection finished")
	return stats, nil
}
