package repository

import (
	"context"
	"fmt"

	"github.com/javanhut/strata/internal/cas"
	"github.com/javanhut/strata/internal/logging"
)

// Checkout makes branch the current branch and returns its head snapshot. An empty
// branch yields an empty snapshot.
func (r *Repository) Checkout(ctx context.Context, branch string) (Snapshot, error) {
	b, err := r.GetBranch(ctx, branch)
	if err != nil {
		return nil, err
	}
	_, tree, err := r.headTree(b.Head)
	if err != nil {
		return nil, err
	}
	files, err := r.materialize(tree)
	if err != nil {
		return nil, err
	}
	if err := r.refs.SetCurrent(branch); err != nil {
		return nil, translate(err)
	}
	r.log(ctx, "checkout").WithFields(logging.Fields{
		logging.BranchFieldKey: branch,
		logging.CommitFieldKey: b.Head.String(),
	}).Debug("Checked out branch")
	return files, nil
}

// Rollback resets branch to target, which must be reachable from the head through
// parent links. No commit is created; commits after target remain stored and are
// reachable again if the branch is moved back. Rolling back to the head is a no-op.
func (r *Repository) Rollback(ctx context.Context, branch string, target cas.Hash) (Snapshot, error) {
	r.gcLock.RLock()
	defer r.gcLock.RUnlock()

	ctx = logging.AddFields(ctx, logging.Fields{logging.BranchFieldKey: branch})
	b, err := r.GetBranch(ctx, branch)
	if err != nil {
		return nil, err
	}
	if err := r.requireAncestor(ctx, branch, b.Head, target); err != nil {
		return nil, err
	}
	if target != b.Head {
		if err := r.swapHead(branch, b.Head, target); err != nil {
			return nil, err
		}
	}
	r.log(ctx, "rollback").WithFields(logging.Fields{
		logging.CommitFieldKey: target.String(),
		"from":                 b.Head.String(),
	}).Info("Branch rolled back")

	_, tree, err := r.headTree(target)
	if err != nil {
		return nil, err
	}
	return r.materialize(tree)
}

// Revert records a new commit on branch whose snapshot equals target's. History is
// kept: the new commit's parent is the current head. target must be an ancestor of
// the head.
func (r *Repository) Revert(ctx context.Context, branch string, target cas.Hash, author string) (*CommitRecord, error) {
	author, err := r.resolveAuthor(author)
	if err != nil {
		return nil, err
	}

	r.gcLock.RLock()
	defer r.gcLock.RUnlock()

	ctx = logging.AddFields(ctx, logging.Fields{logging.BranchFieldKey: branch})
	b, err := r.GetBranch(ctx, branch)
	if err != nil {
		return nil, err
	}
	if err := r.requireAncestor(ctx, branch, b.Head, target); err != nil {
		return nil, err
	}
	targetCommit, err := r.requireCommit(target)
	if err != nil {
		return nil, err
	}
	headTreeHash, _, err := r.headTree(b.Head)
	if err != nil {
		return nil, err
	}
	if headTreeHash == targetCommit.TreeHash {
		return nil, fmt.Errorf("%w: %s already matches %s", ErrNoChanges, branch, target.Short())
	}

	message := fmt.Sprintf("Revert to %s\n\n%s", target.Short(), targetCommit.Message)
	c, hash, err := r.commits.CreateCommit(targetCommit.TreeHash, []cas.Hash{b.Head}, author, message, r.clock())
	if err != nil {
		return nil, translate(err)
	}
	if err := r.swapHead(branch, b.Head, hash); err != nil {
		return nil, err
	}
	r.log(ctx, "revert").WithFields(logging.Fields{
		logging.CommitFieldKey: hash.String(),
		"target":               target.String(),
	}).Info("Revert committed")
	rec := newRecord(hash, c)
	return &rec, nil
}

// requireAncestor checks that target is a commit reachable from head.
func (r *Repository) requireAncestor(ctx context.Context, branch string, head, target cas.Hash) error {
	if _, err := r.requireCommit(target); err != nil {
		return err
	}
	ok, err := r.walker.IsAncestor(ctx, target, head)
	if err != nil {
		return translate(err)
	}
	if !ok {
		return fmt.Errorf("%w: %s is not in the history of %s", ErrNotAncestor, target.Short(), branch)
	}
	return nil
}
