package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javanhut/strata/internal/colors"
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout <branch>",
	Short: "Switch to a branch",
	Long: `Makes branch the current branch and rewrites the working directory to its head.
Files that are not part of either head are left alone. Uncommitted changes stop
the checkout unless --force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: withSession(runCheckout),
}

var checkoutForce bool

func init() {
	checkoutCmd.Flags().BoolVarP(&checkoutForce, "force", "f", false, "Discard uncommitted changes")
}

func runCheckout(ctx context.Context, s *session, args []string) error {
	target := args[0]
	if !checkoutForce {
		if err := s.requireClean(ctx); err != nil {
			return err
		}
	}
	current, err := s.currentBranch(ctx)
	if err != nil {
		return err
	}
	head, err := s.headSnapshot(ctx, current)
	if err != nil {
		return err
	}

	// The working directory is rewritten before the branch switch is recorded, so a
	// failed rewrite leaves the current branch where it was.
	to, err := s.headSnapshot(ctx, target)
	if err != nil {
		return err
	}
	if err := s.syncWorkingDir(head, to); err != nil {
		return err
	}
	if _, err := s.repo.Checkout(ctx, target); err != nil {
		if rerr := s.ws.Apply(to, head); rerr != nil {
			return fmt.Errorf("%w (restoring working directory: %v)", err, rerr)
		}
		return err
	}
	fmt.Printf("Switched to branch %s (%d file(s))\n", colors.Branch(target), len(to))
	return nil
}

// trackedOnDisk scans the working directory keeping only paths known to one of the
// snapshots, so that applying over it discards local edits but never touches
// untracked files.
func (s *session) trackedOnDisk(snapshots ...map[string][]byte) (map[string][]byte, error) {
	disk, err := s.ws.Scan()
	if err != nil {
		return nil, err
	}
	tracked := make(map[string][]byte)
	for path, content := range disk {
		for _, snap := range snapshots {
			if _, ok := snap[path]; ok {
				tracked[path] = content
				break
			}
		}
	}
	return tracked, nil
}
