package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javanhut/strata/internal/colors"
	"github.com/javanhut/strata/internal/repository"
	"github.com/javanhut/strata/internal/seals"
)

var commitCmd = &cobra.Command{
	Use:   "commit -m <message>",
	Short: "Record the working directory as a new commit",
	Long: `Snapshots every file in the working directory and records it on the current
branch. Nothing is recorded when the snapshot equals the branch head.

If another process moves the branch while the commit is being written, the commit
is retried against the new head until retry.max_elapsed passes.`,
	Args: cobra.NoArgs,
	RunE: withSession(runCommit),
}

var (
	commitMessage string
	commitAuthor  string
)

func init() {
	commitCmd.Flags().StringVarP(&commitMessage, "message", "m", "", "Commit message")
	commitCmd.Flags().StringVar(&commitAuthor, "author", "", "Override the configured author")
	_ = commitCmd.MarkFlagRequired("message")
}

func runCommit(ctx context.Context, s *session, _ []string) error {
	branch, err := s.currentBranch(ctx)
	if err != nil {
		return err
	}
	files, err := s.ws.Scan()
	if err != nil {
		return err
	}

	var rec *repository.CommitRecord
	err = s.repo.Retry(ctx, func() error {
		rec, err = s.repo.Commit(ctx, branch, files, commitMessage, commitAuthor)
		return err
	})
	if errors.Is(err, repository.ErrNoChanges) {
		fmt.Println("Nothing to commit, working directory matches", colors.Branch(branch))
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("[%s %s] %s\n", colors.Branch(branch), colors.Hash(rec.Hash.Short()), firstLine(rec.Message))
	fmt.Printf("  %s, %d file(s)\n", colors.Gray(seals.Name(rec.Hash)), len(files))
	return nil
}
