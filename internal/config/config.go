package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/expense-tracker/internal/importer"
)

// FileName is the config file looked up in the data directory.
const FileName = "expense-tracker.yaml"

// Config represents the top-level expense-tracker.yaml configuration.
type Config struct {
	Database    DatabaseConfig `yaml:"database"`
	Rules       RulesConfig    `yaml:"rules"`
	Import      ImportConfig   `yaml:"import"`
	AuditLog    AuditLogConfig `yaml:"audit_log"`
	OFXAccounts []string       `yaml:"ofx_accounts,omitempty"`
	GenericCSV  []GenericCSV   `yaml:"generic_csv,omitempty"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RulesConfig controls categorization rules.
type RulesConfig struct {
	File        string `yaml:"file"`
	UseDefaults bool   `yaml:"use_defaults"`
}

// ImportConfig holds import defaults.
type ImportConfig struct {
	Categorize bool   `yaml:"categorize"`
	InboxDir   string `yaml:"inbox_dir"`
}

// AuditLogConfig locates the import log.
type AuditLogConfig struct {
	Path string `yaml:"path"`
}

// GenericCSV declares a CSV layout for an account without a dedicated parser.
type GenericCSV struct {
	Name               string `yaml:"name"`
	DateColumn         string `yaml:"date_column"`
	DateFormat         string `yaml:"date_format,omitempty"`
	DescriptionColumn  string `yaml:"description_column"`
	AmountColumn       string `yaml:"amount_column,omitempty"`
	DebitColumn        string `yaml:"debit_column,omitempty"`
	CreditColumn       string `yaml:"credit_column,omitempty"`
	CreditWhenNegative bool   `yaml:"credit_when_negative,omitempty"`
	HasHeader          bool   `yaml:"has_header"`
	Delimiter          string `yaml:"delimiter,omitempty"`
	Encoding           string `yaml:"encoding,omitempty"`
}

// Spec converts g to the importer's layout description.
func (g GenericCSV) Spec() importer.GenericCSVSpec {
	return importer.GenericCSVSpec{
		Name:               g.Name,
		DateColumn:         g.DateColumn,
		DateFormat:         g.DateFormat,
		DescriptionColumn:  g.DescriptionColumn,
		AmountColumn:       g.AmountColumn,
		DebitColumn:        g.DebitColumn,
		CreditColumn:       g.CreditColumn,
		CreditWhenNegative: g.CreditWhenNegative,
		HasHeader:          g.HasHeader,
		Delimiter:          g.Delimiter,
		Encoding:           g.Encoding,
	}
}

// GenericCSVSpecs returns the importer specs of every configured layout.
func (c *Config) GenericCSVSpecs() []importer.GenericCSVSpec {
	specs := make([]importer.GenericCSVSpec, 0, len(c.GenericCSV))
	for _, g := range c.GenericCSV {
		specs = append(specs, g.Spec())
	}
	return specs
}

// Registry returns the built-in parsers plus any configured OFX accounts and
// generic CSV layouts.
func (c *Config) Registry() (*importer.Registry, error) {
	reg := importer.DefaultRegistry()
	if err := importer.RegisterOFX(reg, c.OFXAccounts); err != nil {
		return nil, err
	}
	if err := importer.RegisterGenericCSV(reg, c.GenericCSVSpecs()); err != nil {
		return nil, err
	}
	return reg, nil
}

// Load reads an expense-tracker.yaml file from disk. Keys the file omits
// keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Resolve loads the config at path, or returns defaults when it is absent.
func Resolve(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new data directory.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "expenses.db",
		},
		Rules: RulesConfig{
			File:        "rules.yaml",
			UseDefaults: true,
		},
		Import: ImportConfig{
			Categorize: true,
			InboxDir:   "import",
		},
		AuditLog: AuditLogConfig{
			Path: filepath.Join("logs", "import-log.csv"),
		},
	}
}

// Rebase makes every relative path in c relative to dir instead.
func (c *Config) Rebase(dir string) {
	for _, p := range []*string{&c.Database.Path, &c.Rules.File, &c.Import.InboxDir, &c.AuditLog.Path} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}
