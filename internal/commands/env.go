package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cleared-dev/expense-tracker/internal/categorize"
	"github.com/cleared-dev/expense-tracker/internal/config"
	"github.com/cleared-dev/expense-tracker/internal/importer"
	"github.com/cleared-dev/expense-tracker/internal/importlog"
	"github.com/cleared-dev/expense-tracker/internal/ledger"
	"github.com/cleared-dev/expense-tracker/internal/logging"
	"github.com/cleared-dev/expense-tracker/internal/store"
)

const configFileName = config.FileName

// env resolves global flags and environment into the pieces commands use.
type env struct {
	v *viper.Viper
}

func (e *env) dataDir() (string, error) {
	dir, err := filepath.Abs(e.v.GetString("dir"))
	if err != nil {
		return "", fmt.Errorf("resolving data dir: %w", err)
	}
	return dir, nil
}

func (e *env) configPath(dir string) string {
	if p := e.v.GetString("config"); p != "" {
		return p
	}
	return filepath.Join(dir, configFileName)
}

func (e *env) logger(cmd *cobra.Command) *log.Logger {
	return logging.New(cmd.ErrOrStderr(), e.v.GetBool("verbose"))
}

// loadConfig reads the config with every relative path made absolute
// against the data directory.
func (e *env) loadConfig() (*config.Config, error) {
	dir, err := e.dataDir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Resolve(e.configPath(dir))
	if err != nil {
		return nil, err
	}
	cfg.Rebase(dir)
	return cfg, nil
}

// app holds an opened store and the service around it.
type app struct {
	cfg      *config.Config
	registry *importer.Registry
	chain    *categorize.Chain
	store    *store.SQLite
	svc      *ledger.Service
	audit    *importlog.Log
}

func (e *env) open(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	registry, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	chain, err := categorize.Load(cfg.Rules.File, cfg.Rules.UseDefaults)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	st, err := store.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	audit := importlog.New(cfg.AuditLog.Path)
	svc := ledger.NewService(registry, st, chain, e.logger(cmd)).WithAuditLog(audit)
	return &app{cfg: cfg, registry: registry, chain: chain, store: st, svc: svc, audit: audit}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
