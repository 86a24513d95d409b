package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cleared-dev/expense-tracker/internal/buildinfo"
)

// EnvPrefix prefixes environment variables that override global flags,
// e.g. EXPENSE_TRACKER_DIR.
const EnvPrefix = "EXPENSE_TRACKER"

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:     "expense-tracker",
		Short:   "Import, deduplicate and categorize bank statements",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.String("dir", defaultDataDir(), "data directory")
	pf.String("config", "", "config file (default <dir>/"+configFileName+")")
	pf.BoolP("verbose", "v", false, "enable debug logging")
	_ = v.BindPFlags(pf)

	e := &env{v: v}
	rootCmd.AddCommand(
		newInitCommand(e),
		newImportCommand(e),
		newImportDirCommand(e),
		newCategorizeCommand(e),
		newListCommand(e),
		newSummaryCommand(e),
		newAccountsCommand(e),
		newRulesCommand(e),
		newHistoryCommand(e),
	)

	return rootCmd
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".expense-tracker"
	}
	return filepath.Join(home, ".expense-tracker")
}
