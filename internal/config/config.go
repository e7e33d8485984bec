package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the project config file, relative to the project root.
const FileName = "meudinheiro.yaml"

// Environment overrides.
const (
	EnvDatabaseDSN = "MEUDINHEIRO_DATABASE_DSN"
	EnvLogLevel    = "MEUDINHEIRO_LOG_LEVEL"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config represents the top-level meudinheiro.yaml configuration.
type Config struct {
	User     UserConfig     `yaml:"user"`
	Database DatabaseConfig `yaml:"database"`
	Import   ImportConfig   `yaml:"import"`
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
}

// UserConfig identifies whose data CLI commands act on.
type UserConfig struct {
	ID int64 `yaml:"id"`
}

// DatabaseConfig selects and locates the store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`        // sqlite or postgres
	Path   string `yaml:"path"`          // sqlite file, relative to the project root
	DSN    string `yaml:"dsn,omitempty"` // postgres connection string
}

// ImportConfig controls statement imports.
type ImportConfig struct {
	Dir        string `yaml:"dir"`
	DefaultTag string `yaml:"default_tag"`
	Category   string `yaml:"category"`
	OnRowError string `yaml:"on_row_error"` // abort or skip
	Delimiter  string `yaml:"delimiter,omitempty"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Load reads a meudinheiro.yaml file from disk. Keys absent from the file
// keep their defaults, and environment overrides are applied last.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads dir/.env into the process environment if it exists.
// Variables already set are left alone.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv() {
	if dsn := os.Getenv(EnvDatabaseDSN); dsn != "" {
		c.Database.DSN = dsn
	}
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		c.Log.Level = lvl
	}
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn (or %s) is required for postgres", EnvDatabaseDSN)
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Database.Driver)
	}
	if c.Import.OnRowError != "abort" && c.Import.OnRowError != "skip" {
		return fmt.Errorf("import.on_row_error must be abort or skip, got %q", c.Import.OnRowError)
	}
	if c.Import.Delimiter != "" && utf8.RuneCountInString(c.Import.Delimiter) != 1 {
		return fmt.Errorf("import.delimiter must be a single character, got %q", c.Import.Delimiter)
	}
	return nil
}

// DelimiterRune returns the configured delimiter, or 0 to sniff it.
func (c ImportConfig) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	if r == utf8.RuneError {
		return 0
	}
	return r
}

// Resolve returns p relative to root unless it is already absolute.
func Resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
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

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		User: UserConfig{ID: 1},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   "meudinheiro.db",
		},
		Import: ImportConfig{
			Dir:        "import",
			DefaultTag: "Geral",
			Category:   "Importado",
			OnRowError: "abort",
		},
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
	}
}
