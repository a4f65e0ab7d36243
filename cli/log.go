package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/javanhut/strata/internal/colors"
	"github.com/javanhut/strata/internal/repository"
	"github.com/javanhut/strata/internal/seals"
)

var logCmd = &cobra.Command{
	Use:   "log [branch]",
	Short: "Show commit history",
	Long: `Display the first-parent history of a branch, newest first.

Examples:
  strata log                  # Show the current branch
  strata log feature          # Show another branch
  strata log --oneline        # Show concise one-line format
  strata log --limit 10       # Show only last 10 commits`,
	Args: cobra.MaximumNArgs(1),
	RunE: withSession(runLog),
}

var (
	logOneline bool
	logLimit   int
)

func init() {
	logCmd.Flags().BoolVar(&logOneline, "oneline", false, "Show one line per commit")
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 0, "Limit number of commits to show")
}

func runLog(ctx context.Context, s *session, args []string) error {
	var branch string
	if len(args) == 1 {
		branch = args[0]
	} else {
		current, err := s.currentBranch(ctx)
		if err != nil {
			return err
		}
		branch = current
	}

	seq, err := s.repo.History(ctx, branch)
	if err != nil {
		return err
	}
	shown := 0
	for rec, err := range seq {
		if err != nil {
			return err
		}
		if logOneline {
			displayCommitOneline(rec)
		} else {
			if shown > 0 {
				fmt.Println()
			}
			displayCommitFull(rec)
		}
		shown++
		if logLimit > 0 && shown == logLimit {
			break
		}
	}
	if shown == 0 {
		fmt.Println("No commits yet.")
	}
	return nil
}

func displayCommitFull(rec repository.CommitRecord) {
	fmt.Printf("%s %s %s\n", colors.Hash("commit"), colors.Hash(rec.Hash.String()), colors.Gray("("+seals.Name(rec.Hash)+")"))
	if rec.IsMerge() {
		fmt.Printf("Merge:  %s %s\n", rec.Parents[0].Short(), rec.Parents[1].Short())
	}
	fmt.Printf("Author: %s\n", rec.Author)
	fmt.Printf("Date:   %s (%s)\n",
		rec.Timestamp.Local().Format("Mon Jan 2 15:04:05 2006"),
		colors.Gray(relativeTime(rec.Timestamp, time.Now())))
	fmt.Println()
	for _, line := range splitLines(rec.Message) {
		fmt.Printf("    %s\n", line)
	}
}

func displayCommitOneline(rec repository.CommitRecord) {
	message := firstLine(rec.Message)
	if len(message) > 60 {
		message = message[:57] + "..."
	}
	fmt.Printf("%s %s\n", colors.Hash(rec.Hash.Short()), message)
}
