package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/javanhut/strata/internal/colors"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that every reachable object is present and well formed",
	Args:  cobra.NoArgs,
	RunE:  withSession(runVerify),
}

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Delete objects no branch can reach",
	Long: `Removes commits, trees and blobs that are not reachable from any branch, such as
commits left behind by rollback, deleted branches or lost commit races.`,
	Args: cobra.NoArgs,
	RunE: withSession(runGC),
}

func runVerify(ctx context.Context, s *session, _ []string) error {
	err := s.repo.Verify(ctx)
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, e := range merr.Errors {
			fmt.Println("  " + colors.ErrorText(e.Error()))
		}
		return fmt.Errorf("repository is corrupt: %d problem(s)", len(merr.Errors))
	}
	if err != nil {
		return err
	}
	fmt.Println(colors.SuccessText("✓") + " All reachable objects verified")
	return nil
}

func runGC(ctx context.Context, s *session, _ []string) error {
	stats, err := s.repo.GC(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Kept %d commit(s), %d tree(s), %d blob(s)\n", stats.Commits, stats.Trees, stats.Blobs)
	fmt.Printf("Removed %d of %d object(s)\n", stats.Removed, stats.Scanned)
	return nil
}
