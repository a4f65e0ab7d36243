package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/javanhut/strata/internal/cas"
	"github.com/javanhut/strata/internal/logging"
)

type commitOptions struct {
	expectedHead *cas.Hash
}

// CommitOption customizes Commit.
type CommitOption func(*commitOptions)

// WithExpectedHead makes Commit fail with ErrConcurrentModification unless the branch
// is still at head when the commit starts.
func WithExpectedHead(head cas.Hash) CommitOption {
	return func(o *commitOptions) {
		o.expectedHead = &head
	}
}

// Commit records files as the new state of branch. It fails with ErrNoChanges when
// files equal the head's snapshot and with ErrConcurrentModification when another
// writer moved the branch first.
func (r *Repository) Commit(ctx context.Context, branch string, files Snapshot, message, author string, opts ...CommitOption) (*CommitRecord, error) {
	var o commitOptions
	for _, opt := range opts {
		opt(&o)
	}
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: empty commit message", ErrInvalidArgument)
	}
	author, err := r.resolveAuthor(author)
	if err != nil {
		return nil, err
	}

	r.gcLock.RLock()
	defer r.gcLock.RUnlock()

	ctx = logging.AddFields(ctx, logging.Fields{logging.BranchFieldKey: branch})
	log := r.log(ctx, "commit")

	b, err := r.GetBranch(ctx, branch)
	if err != nil {
		return nil, err
	}
	if o.expectedHead != nil && *o.expectedHead != b.Head {
		return nil, fmt.Errorf("%w: %s moved from %s to %s", ErrConcurrentModification, branch, o.expectedHead.Short(), b.Head.Short())
	}

	headTreeHash, _, err := r.headTree(b.Head)
	if err != nil {
		return nil, err
	}
	_, treeHash, err := r.trees.Build(ctx, files)
	if err != nil {
		return nil, translate(err)
	}
	if treeHash == headTreeHash {
		return nil, fmt.Errorf("%w: snapshot matches %s", ErrNoChanges, branch)
	}

	var parents []cas.Hash
	if !b.IsEmpty() {
		parents = []cas.Hash{b.Head}
	}
	c, hash, err := r.commits.CreateCommit(treeHash, parents, author, message, r.clock())
	if err != nil {
		return nil, translate(err)
	}
	if err := r.swapHead(branch, b.Head, hash); err != nil {
		log.WithError(err).Debug("Commit lost race for branch head")
		return nil, err
	}

	log.WithFields(logging.Fields{
		logging.CommitFieldKey: hash.String(),
		"files":                len(files),
	}).Info("Commit created")
	rec := newRecord(hash, c)
	return &rec, nil
}
