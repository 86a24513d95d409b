package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/expense-tracker/internal/config"
	"github.com/cleared-dev/expense-tracker/internal/store"
)

const starterRules = `# User categorization rules. Evaluated top to bottom before the built-in
# defaults; the first match wins.
#
# rules:
#   - kind: keyword          # case-insensitive substring
#     pattern: COSTCO WHOLESALE
#     category: Groceries
#   - kind: regex            # case-insensitive unless case_sensitive: true
#     pattern: '^AMZN.*REFUND'
#     category: Refunds
#     transaction_type: Credit
rules: []
`

func newInitCommand(e *env) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a data directory with config, rules and database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := e.dataDir()
			if err != nil {
				return err
			}
			if len(args) > 0 {
				if dir, err = filepath.Abs(args[0]); err != nil {
					return fmt.Errorf("resolving path: %w", err)
				}
			}
			return runInit(cmd, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, force bool) error {
	cfg := config.Default()

	// Create directory structure.
	dirs := []string{
		"logs",
		cfg.Import.InboxDir,
		filepath.Join(cfg.Import.InboxDir, "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfgPath := filepath.Join(dir, config.FileName)
	if force || !exists(cfgPath) {
		if err := config.Save(cfgPath, cfg); err != nil {
			return err
		}
	}

	rulesPath := filepath.Join(dir, cfg.Rules.File)
	if !exists(rulesPath) {
		if err := os.WriteFile(rulesPath, []byte(starterRules), 0o644); err != nil {
			return fmt.Errorf("writing rules: %w", err)
		}
	}

	// Opening the store creates the schema.
	cfg.Rebase(dir)
	st, err := store.Open(cmd.Context(), cfg.Database.Path)
	if err != nil {
		return err
	}
	if err := st.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}

	return printf(cmd.OutOrStdout(), "Initialized expense tracker at %s\n", dir)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

func printf(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
