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
	cfg.User.ID = 42
	cfg.Import.Delimiter = ";"
	cfg.Import.OnRowError = "skip"
	cfg.Server.AllowedOrigins = []string{"https://app.example.com"}

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, int64(1), cfg.User.ID)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "meudinheiro.db", cfg.Database.Path)
	assert.Equal(t, "import", cfg.Import.Dir)
	assert.Equal(t, "Geral", cfg.Import.DefaultTag)
	assert.Equal(t, "Importado", cfg.Import.Category)
	assert.Equal(t, "abort", cfg.Import.OnRowError)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("import:\n  default_tag: Outros\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Outros", cfg.Import.DefaultTag)
	assert.Equal(t, "Importado", cfg.Import.Category)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: mysql\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")
}

func TestEnvOverridesDSN(t *testing.T) {
	t.Setenv(EnvDatabaseDSN, "postgres://u:p@localhost/meudinheiro")
	t.Setenv(EnvLogLevel, "debug")

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: postgres\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost/meudinheiro", cfg.Database.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LoadDotEnv(dir), "missing .env is fine")

	t.Setenv(EnvDatabaseDSN, "")
	require.NoError(t, os.Unsetenv(EnvDatabaseDSN))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvDatabaseDSN+"=postgres://from-dotenv\n"), 0o600))
	require.NoError(t, LoadDotEnv(dir))
	assert.Equal(t, "postgres://from-dotenv", os.Getenv(EnvDatabaseDSN))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"postgres without dsn", func(c *Config) { c.Database.Driver = DriverPostgres }, "database.dsn"},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"bad row policy", func(c *Config) { c.Import.OnRowError = "retry" }, "on_row_error"},
		{"long delimiter", func(c *Config) { c.Import.Delimiter = ";;" }, "delimiter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDelimiterRune(t *testing.T) {
	assert.Equal(t, rune(0), ImportConfig{}.DelimiterRune())
	assert.Equal(t, ';', ImportConfig{Delimiter: ";"}.DelimiterRune())
	assert.Equal(t, '\t', ImportConfig{Delimiter: "\t"}.DelimiterRune())
}

func TestResolve(t *testing.T) {
	assert.Equal(t, filepath.Join("/srv/app", "meudinheiro.db"), Resolve("/srv/app", "meudinheiro.db"))
	assert.Equal(t, "/var/db/x.db", Resolve("/srv/app", "/var/db/x.db"))
	assert.Equal(t, "", Resolve("/srv/app", ""))
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "driver: sqlite")
	assert.Contains(t, contents, "default_tag: Geral")
	assert.Contains(t, contents, "on_row_error: abort")
	assert.NotContains(t, contents, "dsn:")
}
