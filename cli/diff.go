package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/javanhut/strata/internal/colors"
	"github.com/javanhut/strata/internal/diffmerge"
)

var diffCmd = &cobra.Command{
	Use:   "diff [from] [to]",
	Short: "Show changed paths between commits or the working directory",
	Long: `Lists added, modified and removed paths.

Examples:
  strata diff                 # Working directory against the current head
  strata diff a1b2            # Working directory against a commit
  strata diff a1b2 c3d4       # Between two commits
  strata diff --stat a1b2 c3d4`,
	Args: cobra.MaximumNArgs(2),
	RunE: withSession(runDiff),
}

var diffStat bool

func init() {
	diffCmd.Flags().BoolVar(&diffStat, "stat", false, "Show a summary by kind, extension and directory")
}

func runDiff(ctx context.Context, s *session, args []string) error {
	var (
		changes []diffmerge.Change
		err     error
	)
	switch len(args) {
	case 2:
		from, err := resolveRef(ctx, s.repo, args[0])
		if err != nil {
			return err
		}
		to, err := resolveRef(ctx, s.repo, args[1])
		if err != nil {
			return err
		}
		if changes, err = s.repo.Diff(ctx, from, to); err != nil {
			return err
		}
	default:
		ref := ""
		if len(args) == 1 {
			ref = args[0]
		} else if ref, err = s.currentBranch(ctx); err != nil {
			return err
		}
		from, err := resolveRef(ctx, s.repo, ref)
		if err != nil {
			return err
		}
		files, err := s.repo.Snapshot(ctx, from)
		if err != nil {
			return err
		}
		if changes, err = s.ws.Status(files); err != nil {
			return err
		}
	}

	if len(changes) == 0 {
		fmt.Println("No changes.")
		return nil
	}
	printChanges(changes)
	if diffStat {
		printStats(diffmerge.Summarize(changes))
	}
	return nil
}

// printChanges lists changes, folding identical-content remove/add pairs into renames.
func printChanges(changes []diffmerge.Change) {
	renames := diffmerge.DetectRenames(changes)
	renamed := make(map[string]bool, 2*len(renames))
	for _, r := range renames {
		renamed[r.OldPath] = true
		renamed[r.NewPath] = true
		fmt.Println("  " + colors.Modified("R  "+r.OldPath+" -> "+r.NewPath))
	}
	for _, c := range changes {
		if renamed[c.Path] {
			continue
		}
		fmt.Println("  " + colors.Change(c))
	}
}

func printStats(stats diffmerge.ChangeStats) {
	fmt.Printf("\n%d file(s) changed: %s, %s, %s\n", stats.Total,
		colors.Added(fmt.Sprintf("%d added", stats.Added)),
		colors.Modified(fmt.Sprintf("%d modified", stats.Modified)),
		colors.Removed(fmt.Sprintf("%d removed", stats.Removed)))
	printCounts("By extension", stats.ByExtension)
	printCounts("By directory", stats.ByDirectory)
}

func printCounts(title string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Println(colors.Bold(title + ":"))
	for _, k := range keys {
		fmt.Printf("  %-24s %d\n", k, counts[k])
	}
}
