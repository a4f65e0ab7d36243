package repository

import (
	"context"
	"iter"

	"github.com/javanhut/strata/internal/cas"
	"github.com/javanhut/strata/internal/commit"
	"github.com/javanhut/strata/internal/diffmerge"
	"github.com/javanhut/strata/internal/history"
)

// History returns the first-parent history of branch, newest first. The head is read
// when History is called; each call returns an independent sequence. Errors from
// reading commits are yielded once and end the sequence.
func (r *Repository) History(ctx context.Context, branch string) (iter.Seq2[CommitRecord, error], error) {
	b, err := r.GetBranch(ctx, branch)
	if err != nil {
		return nil, err
	}
	walk := r.walker.FirstParent(ctx, b.Head)
	return func(yield func(CommitRecord, error) bool) {
		for rec, err := range walk {
			if err != nil {
				yield(CommitRecord{}, translate(err))
				return
			}
			if !yield(newRecord(rec.Hash, rec.CommitObject), nil) {
				return
			}
		}
	}, nil
}

// Log collects up to limit records of History. limit <= 0 collects all.
func (r *Repository) Log(ctx context.Context, branch string, limit int) ([]CommitRecord, error) {
	seq, err := r.History(ctx, branch)
	if err != nil {
		return nil, err
	}
	var records []CommitRecord
	for rec, err := range seq {
		if err != nil {
			return records, err
		}
		records = append(records, rec)
		if limit > 0 && len(records) == limit {
			break
		}
	}
	return records, nil
}

// GetCommit reads a commit by hash.
func (r *Repository) GetCommit(ctx context.Context, hash cas.Hash) (*CommitRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := r.reader.ReadCommit(hash)
	if err != nil {
		return nil, translate(err)
	}
	rec := newRecord(hash, c)
	return &rec, nil
}

func (r *Repository) commitTree(ctx context.Context, hash cas.Hash) (*commit.TreeObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if hash.IsZero() {
		return commit.EmptyTree, nil
	}
	if _, err := r.requireCommit(hash); err != nil {
		return nil, err
	}
	_, tree, err := r.headTree(hash)
	return tree, err
}

// ReadFile returns the content of path as of commit.
func (r *Repository) ReadFile(ctx context.Context, commitHash cas.Hash, path string) ([]byte, error) {
	tree, err := r.commitTree(ctx, commitHash)
	if err != nil {
		return nil, err
	}
	content, err := r.reader.GetFileContent(tree, path)
	if err != nil {
		return nil, translate(err)
	}
	return content, nil
}

// ListFiles returns the sorted paths in commit's snapshot.
func (r *Repository) ListFiles(ctx context.Context, commitHash cas.Hash) ([]string, error) {
	tree, err := r.commitTree(ctx, commitHash)
	if err != nil {
		return nil, err
	}
	return tree.Paths(), nil
}

// Snapshot materializes commit's files. The zero hash is the empty snapshot.
func (r *Repository) Snapshot(ctx context.Context, commitHash cas.Hash) (Snapshot, error) {
	tree, err := r.commitTree(ctx, commitHash)
	if err != nil {
		return nil, err
	}
	return r.materialize(tree)
}

// Diff lists the changes between two commits. A zero hash stands for the empty tree.
func (r *Repository) Diff(ctx context.Context, from, to cas.Hash) ([]diffmerge.Change, error) {
	a, err := r.commitTree(ctx, from)
	if err != nil {
		return nil, err
	}
	b, err := r.commitTree(ctx, to)
	if err != nil {
		return nil, err
	}
	return diffmerge.DiffTrees(a, b), nil
}

// Walk calls fn once for every commit reachable from any branch, following all
// parents. Order is breadth-first from the branch heads in name order.
func (r *Repository) Walk(ctx context.Context, fn func(CommitRecord) error) error {
	branches, err := r.ListBranches(ctx)
	if err != nil {
		return err
	}
	heads := make([]cas.Hash, len(branches))
	for i, b := range branches {
		heads[i] = b.Head
	}
	err = r.walker.Walk(ctx, heads, func(rec history.Record) error {
		return fn(newRecord(rec.Hash, rec.CommitObject))
	})
	if err != nil {
		return translate(err)
	}
	return nil
}
