package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javanhut/strata/internal/cas"
	"github.com/javanhut/strata/internal/colors"
)

var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "Manage branches",
}

var branchCreateCmd = &cobra.Command{
	Use:   "create <name> [start]",
	Short: "Create a branch",
	Long: `Creates a branch at start, which may be a branch, a commit hash, a hash prefix or
a seal name. Without start the branch begins at the current head. Use --empty to
create a branch with no commits.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: withSession(runBranchCreate),
}

var branchListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List branches",
	Args:    cobra.NoArgs,
	RunE:    withSession(runBranchList),
}

var branchDeleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a branch",
	Long:    `Deletes a branch. Its commits stay stored until the next gc.`,
	Args:    cobra.ExactArgs(1),
	RunE:    withSession(runBranchDelete),
}

var branchEmpty bool

func init() {
	branchCreateCmd.Flags().BoolVar(&branchEmpty, "empty", false, "Create a branch with no commits")
}

func runBranchCreate(ctx context.Context, s *session, args []string) error {
	var start cas.Hash
	switch {
	case branchEmpty && len(args) == 2:
		return fmt.Errorf("--empty cannot be combined with a start point")
	case branchEmpty:
	case len(args) == 2:
		h, err := resolveRef(ctx, s.repo, args[1])
		if err != nil {
			return err
		}
		start = h
	default:
		current, err := s.currentBranch(ctx)
		if err != nil {
			return err
		}
		b, err := s.repo.GetBranch(ctx, current)
		if err != nil {
			return err
		}
		start = b.Head
	}

	b, err := s.repo.CreateBranch(ctx, args[0], start)
	if err != nil {
		return err
	}
	if b.IsEmpty() {
		fmt.Printf("Created empty branch %s\n", colors.Branch(b.Name))
	} else {
		fmt.Printf("Created branch %s at %s\n", colors.Branch(b.Name), colors.Hash(b.Head.Short()))
	}
	return nil
}

func runBranchList(ctx context.Context, s *session, _ []string) error {
	branches, err := s.repo.ListBranches(ctx)
	if err != nil {
		return err
	}
	current, _ := s.repo.CurrentBranch(ctx)
	for _, b := range branches {
		marker := "  "
		name := b.Name
		if b.Name == current {
			marker = "* "
			name = colors.Bold(name)
		}
		head := colors.Gray("(empty)")
		if !b.IsEmpty() {
			head = colors.Hash(b.Head.Short())
		}
		fmt.Printf("%s%s %s\n", marker, colors.Branch(name), head)
	}
	return nil
}

func runBranchDelete(ctx context.Context, s *session, args []string) error {
	if err := s.repo.DeleteBranch(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted branch %s\n", args[0])
	return nil
}
