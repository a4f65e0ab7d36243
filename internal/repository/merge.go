package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/javanhut/strata/internal/cas"
	"github.com/javanhut/strata/internal/commit"
	"github.com/javanhut/strata/internal/diffmerge"
	"github.com/javanhut/strata/internal/history"
	"github.com/javanhut/strata/internal/logging"
)

// MergeOutcome tells how a successful merge moved the target branch.
type MergeOutcome string

const (
	FastForward MergeOutcome = "fast-forward"
	Merged      MergeOutcome = "merged"
)

// mergeState names the steps of a merge, logged under merge_state.
type mergeState string

const (
	stateStart           mergeState = "start"
	stateAncestorFound   mergeState = "ancestor_found"
	stateAlreadyUpToDate mergeState = "already_up_to_date"
	stateFastForward     mergeState = "fast_forward"
	stateDiffComputed    mergeState = "diff_computed"
	stateClean           mergeState = "clean"
	stateConflicted      mergeState = "conflicted"
	stateCommitted       mergeState = "committed"
	stateAborted         mergeState = "aborted"
)

// MergeResult describes a completed merge.
type MergeResult struct {
	Outcome  MergeOutcome
	Commit   *CommitRecord // merge commit; nil for a fast-forward
	Head     cas.Hash      // new target head
	Base     cas.Hash      // common ancestor; zero for unrelated histories
	Changes  []diffmerge.Change
	Resolved []string // conflicted paths settled by the strategy
}

type mergeOptions struct {
	strategy diffmerge.StrategyType
	message  string
	author   string
}

// MergeOption customizes Merge.
type MergeOption func(*mergeOptions)

// WithStrategy settles conflicts automatically. The default, StrategyManual, aborts.
func WithStrategy(s diffmerge.StrategyType) MergeOption {
	return func(o *mergeOptions) { o.strategy = s }
}

// WithMessage overrides the merge commit message.
func WithMessage(msg string) MergeOption {
	return func(o *mergeOptions) { o.message = msg }
}

// WithAuthor sets the merge commit author.
func WithAuthor(author string) MergeOption {
	return func(o *mergeOptions) { o.author = author }
}

// Merge brings the changes of source into target.
//
// If source is already contained in target the merge fails with ErrAlreadyUpToDate.
// If target is contained in source, target fast-forwards to source. Otherwise the two
// trees are merged against their lowest common ancestor and a commit with parents
// [target head, source head] is recorded. Conflicts abort the merge with a
// *MergeConflictError and leave target untouched.
func (r *Repository) Merge(ctx context.Context, source, target string, opts ...MergeOption) (*MergeResult, error) {
	o := mergeOptions{strategy: diffmerge.StrategyManual}
	for _, opt := range opts {
		opt(&o)
	}

	r.gcLock.RLock()
	defer r.gcLock.RUnlock()

	ctx = logging.AddFields(ctx, logging.Fields{
		logging.BranchFieldKey: target,
		"source":               source,
	})
	log := r.log(ctx, "merge")
	state := func(s mergeState, fields logging.Fields) {
		log.WithField(logging.MergeStateFieldKey, string(s)).WithFields(fields).Debug("Merge state")
	}
	state(stateStart, nil)

	if source == target {
		return nil, fmt.Errorf("%w: cannot merge %s into itself", ErrInvalidArgument, source)
	}
	src, err := r.GetBranch(ctx, source)
	if err != nil {
		return nil, err
	}
	dst, err := r.GetBranch(ctx, target)
	if err != nil {
		return nil, err
	}

	if src.IsEmpty() {
		state(stateAlreadyUpToDate, nil)
		return nil, fmt.Errorf("%w: %s has no commits", ErrAlreadyUpToDate, source)
	}
	if dst.IsEmpty() {
		state(stateFastForward, nil)
		return r.fastForward(ctx, dst, src, cas.Hash{})
	}

	base, err := r.walker.LCA(ctx, src.Head, dst.Head)
	if err != nil && !errors.Is(err, history.ErrNoCommonAncestor) {
		return nil, translate(err)
	}
	state(stateAncestorFound, logging.Fields{"base": base.String()})

	switch base {
	case src.Head:
		state(stateAlreadyUpToDate, nil)
		return nil, fmt.Errorf("%w: %s is contained in %s", ErrAlreadyUpToDate, source, target)
	case dst.Head:
		state(stateFastForward, nil)
		return r.fastForward(ctx, dst, src, base)
	}

	baseTree := commit.EmptyTree
	if !base.IsZero() {
		if _, baseTree, err = r.headTree(base); err != nil {
			return nil, err
		}
	}
	_, targetTree, err := r.headTree(dst.Head)
	if err != nil {
		return nil, err
	}
	_, sourceTree, err := r.headTree(src.Head)
	if err != nil {
		return nil, err
	}

	merged, err := r.merger.Merge(baseTree, targetTree, sourceTree, o.strategy)
	if err != nil {
		return nil, translate(err)
	}
	state(stateDiffComputed, logging.Fields{"conflicts": len(merged.Conflicts), "resolved": len(merged.Resolved)})

	if !merged.Success {
		state(stateConflicted, nil)
		state(stateAborted, nil)
		log.WithField("conflicts", len(merged.Conflicts)).Info("Merge aborted on conflicts")
		return nil, &MergeConflictError{Report: ConflictReport{
			Source:    source,
			Target:    target,
			Base:      base,
			Conflicts: merged.Conflicts,
		}}
	}
	state(stateClean, nil)

	treeHash, err := r.trees.Write(merged.Tree)
	if err != nil {
		return nil, translate(err)
	}
	author, err := r.resolveAuthor(o.author)
	if err != nil {
		return nil, err
	}
	message := o.message
	if message == "" {
		message = fmt.Sprintf("Merge branch '%s' into %s", source, target)
	}
	c, hash, err := r.commits.CreateCommit(treeHash, []cas.Hash{dst.Head, src.Head}, author, message, r.clock())
	if err != nil {
		return nil, translate(err)
	}
	if err := r.swapHead(target, dst.Head, hash); err != nil {
		state(stateAborted, logging.Fields{"error": err.Error()})
		return nil, err
	}
	state(stateCommitted, nil)
	log.WithField(logging.CommitFieldKey, hash.String()).Info("Merge committed")

	rec := newRecord(hash, c)
	return &MergeResult{
		Outcome:  Merged,
		Commit:   &rec,
		Head:     hash,
		Base:     base,
		Changes:  diffmerge.DiffTrees(targetTree, merged.Tree),
		Resolved: merged.Resolved,
	}, nil
}

func (r *Repository) fastForward(ctx context.Context, dst, src Branch, base cas.Hash) (*MergeResult, error) {
	_, targetTree, err := r.headTree(dst.Head)
	if err != nil {
		return nil, err
	}
	_, sourceTree, err := r.headTree(src.Head)
	if err != nil {
		return nil, err
	}
	if err := r.swapHead(dst.Name, dst.Head, src.Head); err != nil {
		return nil, err
	}
	r.log(ctx, "merge").WithFields(logging.Fields{
		logging.MergeStateFieldKey: string(stateFastForward),
		logging.CommitFieldKey:     src.Head.String(),
	}).Info("Fast-forwarded")
	return &MergeResult{
		Outcome: FastForward,
		Head:    src.Head,
		Base:    base,
		Changes: diffmerge.DiffTrees(targetTree, sourceTree),
	}, nil
}
