package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/javanhut/strata/internal/cas"
)

var showCmd = &cobra.Command{
	Use:   "show <commit> [path]",
	Short: "Show a commit or a file as of a commit",
	Long: `Without path, prints the commit and the paths it changed relative to its first
parent. With path, writes the file content as of the commit to stdout.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: withSession(runShow),
}

func runShow(ctx context.Context, s *session, args []string) error {
	hash, err := resolveRef(ctx, s.repo, args[0])
	if err != nil {
		return err
	}
	if len(args) == 2 {
		content, err := s.repo.ReadFile(ctx, hash, args[1])
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(content)
		return err
	}

	rec, err := s.repo.GetCommit(ctx, hash)
	if err != nil {
		return err
	}
	displayCommitFull(*rec)

	var parent cas.Hash
	if len(rec.Parents) > 0 {
		parent = rec.Parents[0]
	}
	changes, err := s.repo.Diff(ctx, parent, rec.Hash)
	if err != nil {
		return err
	}
	if len(changes) > 0 {
		fmt.Println()
		printChanges(changes)
	}
	return nil
}
