package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javanhut/strata/internal/colors"
	"github.com/javanhut/strata/internal/diffmerge"
	"github.com/javanhut/strata/internal/repository"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <source>",
	Short: "Merge a branch into the current branch",
	Long: `Merges source into the current branch, or into --into.

If the target is contained in source the target fast-forwards. Otherwise the two
heads are merged against their lowest common ancestor and a merge commit is
recorded. Conflicting paths abort the merge and leave the target untouched, unless
a strategy settles them:

  manual   report conflicts (default)
  ours     keep the target's version
  theirs   take the source's version
  base     restore the common ancestor's version`,
	Args: cobra.ExactArgs(1),
	RunE: withSession(runMerge),
}

var (
	mergeInto     string
	mergeStrategy string
	mergeMessage  string
)

func init() {
	mergeCmd.Flags().StringVar(&mergeInto, "into", "", "Target branch (default: current branch)")
	mergeCmd.Flags().StringVarP(&mergeStrategy, "strategy", "s", string(diffmerge.StrategyManual), "Conflict strategy: manual, ours, theirs, base")
	mergeCmd.Flags().StringVarP(&mergeMessage, "message", "m", "", "Merge commit message")
}

func runMerge(ctx context.Context, s *session, args []string) error {
	source := args[0]
	strategy, err := diffmerge.ParseStrategy(mergeStrategy)
	if err != nil {
		return err
	}
	current, err := s.currentBranch(ctx)
	if err != nil {
		return err
	}
	target := mergeInto
	if target == "" {
		target = current
	}
	checkedOut := target == current
	if checkedOut {
		if err := s.requireClean(ctx); err != nil {
			return err
		}
	}
	before, err := s.headSnapshot(ctx, target)
	if err != nil {
		return err
	}

	var res *repository.MergeResult
	err = s.repo.Retry(ctx, func() error {
		res, err = s.repo.Merge(ctx, source, target,
			repository.WithStrategy(strategy),
			repository.WithMessage(mergeMessage))
		return err
	})
	if errors.Is(err, repository.ErrAlreadyUpToDate) {
		fmt.Println("Already up to date.")
		return nil
	}
	if err != nil {
		return err
	}

	if checkedOut {
		after, err := s.repo.Snapshot(ctx, res.Head)
		if err != nil {
			return err
		}
		if err := s.ws.Apply(before, after); err != nil {
			return err
		}
	}

	switch res.Outcome {
	case repository.FastForward:
		fmt.Printf("Fast-forward %s to %s\n", colors.Branch(target), colors.Hash(res.Head.Short()))
	default:
		fmt.Printf("Merged %s into %s: %s\n", colors.Branch(source), colors.Branch(target), colors.Hash(res.Head.Short()))
	}
	for _, c := range res.Changes {
		fmt.Println("  " + colors.Change(c))
	}
	if len(res.Resolved) > 0 {
		fmt.Printf("%s %d conflict(s) settled with strategy %s\n", colors.WarningText("!"), len(res.Resolved), strategy)
	}
	return nil
}

func printConflicts(report repository.ConflictReport) {
	fmt.Printf("\nMerging %s into %s stopped on %d conflict(s):\n",
		colors.Branch(report.Source), colors.Branch(report.Target), len(report.Conflicts))
	for _, c := range report.Conflicts {
		fmt.Println("  " + colors.Conflict(c))
	}
	fmt.Println("\nNothing was changed. Resolve the conflicts on either branch, or rerun with --strategy.")
}
