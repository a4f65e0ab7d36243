package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/javanhut/strata/internal/colors"
	"github.com/javanhut/strata/internal/repository"
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Create an empty repository",
	Long: `Creates a .strata directory holding the object store, the branches and the
repository configuration. The main branch is created empty and checked out.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	repo, err := repository.Init(dir)
	if err != nil {
		return err
	}
	defer func() { _ = repo.Close() }()

	fmt.Printf("%s Initialized empty repository in %s\n", colors.SuccessText("✓"), colors.Bold(dir))
	fmt.Printf("On branch %s\n", colors.Branch(repository.DefaultBranch))
	return nil
}
