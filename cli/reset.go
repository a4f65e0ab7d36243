package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javanhut/strata/internal/colors"
	"github.com/javanhut/strata/internal/repository"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback <commit>",
	Short: "Move a branch back to an earlier commit",
	Long: `Points the branch back at an earlier commit of its own history without creating a
commit. The commits after it stay stored: "strata branch create" can name them
again until gc removes them.

Use revert to undo changes while keeping history.`,
	Args: cobra.ExactArgs(1),
	RunE: withSession(runRollback),
}

var revertCmd = &cobra.Command{
	Use:   "revert <commit>",
	Short: "Record a new commit restoring an earlier snapshot",
	Long: `Creates a commit on top of the branch head whose files equal those of an earlier
commit in the branch history. Nothing is removed from history.`,
	Args: cobra.ExactArgs(1),
	RunE: withSession(runRevert),
}

var (
	resetBranch string
	resetForce  bool
)

func init() {
	for _, cmd := range []*cobra.Command{rollbackCmd, revertCmd} {
		cmd.Flags().StringVarP(&resetBranch, "branch", "b", "", "Branch to move (default: current branch)")
		cmd.Flags().BoolVarP(&resetForce, "force", "f", false, "Discard uncommitted changes")
	}
}

// targetBranch returns the branch named by --branch, or the current branch, and
// whether it is checked out. Uncommitted changes block rewriting a checked out branch.
func (s *session) targetBranch(ctx context.Context) (string, bool, error) {
	current, err := s.currentBranch(ctx)
	if err != nil {
		return "", false, err
	}
	branch := resetBranch
	if branch == "" {
		branch = current
	}
	checkedOut := branch == current
	if checkedOut && !resetForce {
		if err := s.requireClean(ctx); err != nil {
			return "", false, err
		}
	}
	return branch, checkedOut, nil
}

func runRollback(ctx context.Context, s *session, args []string) error {
	branch, checkedOut, err := s.targetBranch(ctx)
	if err != nil {
		return err
	}
	target, err := resolveRef(ctx, s.repo, args[0])
	if err != nil {
		return err
	}
	before, err := s.headSnapshot(ctx, branch)
	if err != nil {
		return err
	}

	files, err := s.repo.Rollback(ctx, branch, target)
	if err != nil {
		return err
	}
	if checkedOut {
		if err := s.syncWorkingDir(before, files); err != nil {
			return err
		}
	}
	fmt.Printf("Rolled %s back to %s\n", colors.Branch(branch), colors.Hash(target.Short()))
	return nil
}

func runRevert(ctx context.Context, s *session, args []string) error {
	branch, checkedOut, err := s.targetBranch(ctx)
	if err != nil {
		return err
	}
	target, err := resolveRef(ctx, s.repo, args[0])
	if err != nil {
		return err
	}
	before, err := s.headSnapshot(ctx, branch)
	if err != nil {
		return err
	}

	var rec *repository.CommitRecord
	err = s.repo.Retry(ctx, func() error {
		rec, err = s.repo.Revert(ctx, branch, target, "")
		return err
	})
	if err != nil {
		return err
	}
	if checkedOut {
		files, err := s.repo.Snapshot(ctx, rec.Hash)
		if err != nil {
			return err
		}
		if err := s.syncWorkingDir(before, files); err != nil {
			return err
		}
	}
	fmt.Printf("[%s %s] %s\n", colors.Branch(branch), colors.Hash(rec.Hash.Short()), firstLine(rec.Message))
	return nil
}

// syncWorkingDir rewrites the working directory from the previous head to next.
func (s *session) syncWorkingDir(previous, next map[string][]byte) error {
	from := previous
	if resetForce || checkoutForce {
		var err error
		if from, err = s.trackedOnDisk(previous, next); err != nil {
			return err
		}
	}
	return s.ws.Apply(from, next)
}
