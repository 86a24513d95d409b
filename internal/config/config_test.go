package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.OFXAccounts = []string{"td-visa"}
	cfg.GenericCSV = []GenericCSV{
		{Name: "tangerine", DateColumn: "Date", DescriptionColumn: "Name", AmountColumn: "Amount", HasHeader: true},
	}

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "expenses.db", cfg.Database.Path)
	assert.Equal(t, "rules.yaml", cfg.Rules.File)
	assert.True(t, cfg.Rules.UseDefaults)
	assert.True(t, cfg.Import.Categorize)
	assert.Equal(t, "import", cfg.Import.InboxDir)
	assert.Equal(t, filepath.Join("logs", "import-log.csv"), cfg.AuditLog.Path)
	assert.Empty(t, cfg.GenericCSV)
	assert.Empty(t, cfg.OFXAccounts)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("database:\n  path: /var/lib/money.db\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/money.db", cfg.Database.Path)
	assert.True(t, cfg.Rules.UseDefaults)
	assert.Equal(t, "import", cfg.Import.InboxDir)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("database: [\n"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "parsing config")
}

func TestResolve(t *testing.T) {
	cfg, err := Resolve(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestRebase(t *testing.T) {
	cfg := Default()
	cfg.Database.Path = "/abs/expenses.db"
	cfg.Rebase("/data")

	assert.Equal(t, "/abs/expenses.db", cfg.Database.Path)
	assert.Equal(t, filepath.Join("/data", "rules.yaml"), cfg.Rules.File)
	assert.Equal(t, filepath.Join("/data", "import"), cfg.Import.InboxDir)
	assert.Equal(t, filepath.Join("/data", "logs", "import-log.csv"), cfg.AuditLog.Path)
}

func TestRegistry(t *testing.T) {
	cfg := Default()
	cfg.OFXAccounts = []string{"td-visa"}
	cfg.GenericCSV = []GenericCSV{
		{Name: "tangerine", DateColumn: "Date", DescriptionColumn: "Name", AmountColumn: "Amount", HasHeader: true},
	}
	reg, err := cfg.Registry()
	require.NoError(t, err)
	assert.True(t, reg.Has("amex"))
	assert.True(t, reg.Has("td-visa"))
	assert.True(t, reg.Has("tangerine"))

	cfg.GenericCSV = append(cfg.GenericCSV, GenericCSV{Name: "amex", DateColumn: "1", DescriptionColumn: "2", AmountColumn: "3"})
	_, err = cfg.Registry()
	assert.ErrorContains(t, err, "already registered")
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "path: expenses.db")
	assert.Contains(t, contents, "use_defaults: true")
	assert.Contains(t, contents, "inbox_dir: import")
	assert.NotContains(t, contents, "generic_csv")
}
