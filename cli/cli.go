// Package cli implements the strata command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/javanhut/strata/internal/colors"
	"github.com/javanhut/strata/internal/config"
	"github.com/javanhut/strata/internal/logging"
	"github.com/javanhut/strata/internal/repository"
	"github.com/javanhut/strata/internal/workspace"
)

const (
	logMaxSizeMB = 100
	logFilesKeep = 3
)

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Strata is a content-addressed version control system",
	Long: `Strata records snapshots of a directory as commits in a content-addressed store.
Branches move by compare-and-swap, so concurrent writers never silently overwrite
each other.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupEnvironment,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, colors.ErrorText("error: ")+err.Error())
		var mce *repository.MergeConflictError
		if errors.As(err, &mce) {
			printConflicts(mce.Report)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd, commitCmd, checkoutCmd)
	rootCmd.AddCommand(branchCmd)
	branchCmd.AddCommand(branchCreateCmd, branchListCmd, branchDeleteCmd)
	rootCmd.AddCommand(rollbackCmd, revertCmd, mergeCmd)
	rootCmd.AddCommand(logCmd, diffCmd, showCmd)
	rootCmd.AddCommand(verifyCmd, gcCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGetCmd, configSetCmd, configListCmd)
}

// setupEnvironment applies logging and color settings from the configuration of the
// enclosing repository, or the global configuration outside one.
func setupEnvironment(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(enclosingRepoDir())
	if err != nil {
		return err
	}
	logging.SetLevel(cfg.Log.Level)
	logging.SetOutputFormat(cfg.Log.Format)
	logging.SetOutputFile(cfg.Log.Output, logMaxSizeMB, logFilesKeep)
	colors.Configure(cfg.Color.UI, os.Stdout)
	return nil
}

// session bundles an open repository with its working directory.
type session struct {
	repo    *repository.Repository
	ws      *workspace.Materializer
	workDir string
}

func openSession() (*session, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	repoDir, err := repository.Find(wd)
	if err != nil {
		return nil, err
	}
	repo, err := repository.Open(wd)
	if err != nil {
		return nil, err
	}
	workDir := filepath.Dir(repoDir)
	return &session{
		repo:    repo,
		ws:      workspace.NewMaterializer(workDir, repository.Dir),
		workDir: workDir,
	}, nil
}

func (s *session) Close() error {
	return s.repo.Close()
}

// withSession runs fn against the enclosing repository.
func withSession(fn func(ctx context.Context, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		return fn(cmd.Context(), s, args)
	}
}

// currentBranch returns the checked out branch.
func (s *session) currentBranch(ctx context.Context) (string, error) {
	name, err := s.repo.CurrentBranch(ctx)
	if err != nil {
		return "", fmt.Errorf("no branch checked out: %w", err)
	}
	return name, nil
}

// headSnapshot returns the files of a branch head.
func (s *session) headSnapshot(ctx context.Context, branch string) (repository.Snapshot, error) {
	b, err := s.repo.GetBranch(ctx, branch)
	if err != nil {
		return nil, err
	}
	return s.repo.Snapshot(ctx, b.Head)
}

// requireClean fails when the working directory differs from the current head.
func (s *session) requireClean(ctx context.Context) error {
	branch, err := s.currentBranch(ctx)
	if err != nil {
		return err
	}
	head, err := s.headSnapshot(ctx, branch)
	if err != nil {
		return err
	}
	changes, err := s.ws.Status(head)
	if err != nil {
		return err
	}
	if len(changes) > 0 {
		return fmt.Errorf("working directory has %d uncommitted change(s); commit them or use --force", len(changes))
	}
	return nil
}
