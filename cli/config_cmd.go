package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/javanhut/strata/internal/colors"
	"github.com/javanhut/strata/internal/config"
	"github.com/javanhut/strata/internal/repository"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Get and set configuration options",
	Long: `Get and set strata configuration options.

Configuration is read from, in increasing priority:
- built-in defaults
- the global file (~/.strataconfig.yaml)
- the repository file (.strata/config.yaml)
- STRATA_* environment variables, e.g. STRATA_LOG_LEVEL=debug

Examples:
  strata config set user.name "Your Name"
  strata config set --global user.email you@example.com
  strata config get storage.backend
  strata config list`,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the effective value of a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := config.GetValue(enclosingRepoDir(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a key in the repository or global file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoDir := enclosingRepoDir()
		if repoDir == "" && !configGlobal {
			return fmt.Errorf("%w; use --global to set a global value", repository.ErrNotRepository)
		}
		if err := config.SetValue(repoDir, args[0], args[1], configGlobal); err != nil {
			return err
		}
		scope := "repository"
		if configGlobal {
			scope = "global"
		}
		fmt.Printf("Set %s = %s (%s)\n", colors.Bold(args[0]), args[1], scope)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every key with its effective value",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repoDir := enclosingRepoDir()
		for _, key := range config.Keys() {
			value, err := config.GetValue(repoDir, key)
			if err != nil {
				return err
			}
			fmt.Printf("%s=%s\n", colors.Bold(key), value)
		}
		return nil
	},
}

var configGlobal bool

func init() {
	configSetCmd.Flags().BoolVar(&configGlobal, "global", false, "Write to the global config file")
}

// enclosingRepoDir returns the .strata directory above the working directory, or ""
// outside a repository.
func enclosingRepoDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	dir, err := repository.Find(wd)
	if err != nil {
		return ""
	}
	return dir
}
