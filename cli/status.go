package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javanhut/strata/internal/colors"
	"github.com/javanhut/strata/internal/seals"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the working directory status",
	Long:  `Lists files added, modified or removed since the head of the current branch.`,
	Args:  cobra.NoArgs,
	RunE:  withSession(runStatus),
}

func runStatus(ctx context.Context, s *session, _ []string) error {
	branch, err := s.currentBranch(ctx)
	if err != nil {
		return err
	}
	b, err := s.repo.GetBranch(ctx, branch)
	if err != nil {
		return err
	}
	head, err := s.repo.Snapshot(ctx, b.Head)
	if err != nil {
		return err
	}
	changes, err := s.ws.Status(head)
	if err != nil {
		return err
	}

	fmt.Printf("On branch %s\n", colors.Branch(branch))
	if b.IsEmpty() {
		fmt.Println("No commits yet")
	} else {
		fmt.Printf("Head %s %s\n", colors.Hash(b.Head.Short()), colors.Gray(seals.Name(b.Head)))
	}
	if len(changes) == 0 {
		fmt.Println("\nNothing to commit, working directory clean")
		return nil
	}
	fmt.Println("\nChanges since head:")
	for _, c := range changes {
		fmt.Println("  " + colors.Change(c))
	}
	return nil
}
