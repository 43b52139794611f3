// Package config resolves CLI settings from defaults, an optional YAML file,
// LIQUISCHEMA_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/tordrt/liquischema/internal/changelog"
	"github.com/tordrt/liquischema/internal/platform"
)

// EnvPrefix prefixes every environment variable
const EnvPrefix = "LIQUISCHEMA"

// Config holds every setting of a run
type Config struct {
	Metadata    string `yaml:"metadata" envconfig:"LIQUISCHEMA_METADATA"`
	DatabaseURL string `yaml:"db_url" envconfig:"LIQUISCHEMA_DB_URL"`
	MySQLURL    string `yaml:"mysql_url" envconfig:"LIQUISCHEMA_MYSQL_URL"`
	SQLitePath  string `yaml:"sqlite" envconfig:"LIQUISCHEMA_SQLITE"`
	Schema      string `yaml:"schema" envconfig:"LIQUISCHEMA_SCHEMA"`
	Platform    string `yaml:"platform" envconfig:"LIQUISCHEMA_PLATFORM"`
	Output      string `yaml:"output" envconfig:"LIQUISCHEMA_OUTPUT"`

	Author        string   `yaml:"author" envconfig:"LIQUISCHEMA_AUTHOR"`
	UniqueID      bool     `yaml:"unique_id" envconfig:"LIQUISCHEMA_UNIQUE_ID"`
	PlatformTypes bool     `yaml:"platform_types" envconfig:"LIQUISCHEMA_PLATFORM_TYPES"`
	IgnoreTables  []string `yaml:"ignore_tables" envconfig:"LIQUISCHEMA_IGNORE_TABLES"`

	LogLevel string `yaml:"log_level" envconfig:"LIQUISCHEMA_LOG_LEVEL"`
}

// Default returns the settings used when nothing else is configured
func Default() Config {
	opts := changelog.DefaultOptions()
	return Config{
		Author:        opts.ChangeSetAuthor,
		UniqueID:      opts.ChangeSetUniqueID,
		PlatformTypes: opts.UsePlatformTypes,
		IgnoreTables:  opts.IgnoreTables,
		LogLevel:      "warn",
	}
}

// Load resolves the configuration. path names an optional YAML file; flags
// may be nil.
func Load(path string, flags *Flags) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.MergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.MergeEnv(); err != nil {
		return nil, err
	}
	if flags != nil {
		flags.Apply(&cfg)
	}

	return &cfg, nil
}

// MergeFile overlays the keys present in a YAML file. Unknown keys are rejected.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// MergeEnv overlays the LIQUISCHEMA_* variables that are set
func (c *Config) MergeEnv() error {
	if err := envconfig.Process("", c); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	return nil
}

// ChangelogOptions converts the settings into emitter options
func (c *Config) ChangelogOptions() changelog.Options {
	return changelog.DefaultOptions().
		WithChangeSetAuthor(c.Author).
		WithChangeSetUniqueID(c.UniqueID).
		WithUsePlatformTypes(c.PlatformTypes).
		WithIgnoreTables(c.IgnoreTables...)
}

// HasDatabase reports whether any database is configured
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != "" || c.MySQLURL != "" || c.SQLitePath != ""
}

// ResolveDatabaseURL returns the URL of the single configured database
func (c *Config) ResolveDatabaseURL() (string, error) {
	count := 0
	for _, v := range []string{c.DatabaseURL, c.MySQLURL, c.SQLitePath} {
		if v != "" {
			count++
		}
	}
	if count == 0 {
		return "", fmt.Errorf("one of --db-url, --mysql-url, or --sqlite must be specified")
	}
	if count > 1 {
		return "", fmt.Errorf("only one of --db-url, --mysql-url, or --sqlite can be specified")
	}

	switch {
	case c.MySQLURL != "":
		if strings.HasPrefix(c.MySQLURL, "mysql://") {
			return c.MySQLURL, nil
		}
		return "mysql://" + c.MySQLURL, nil
	case c.SQLitePath != "":
		if strings.HasPrefix(c.SQLitePath, "sqlite://") {
			return c.SQLitePath, nil
		}
		return "sqlite://" + c.SQLitePath, nil
	default:
		return c.DatabaseURL, nil
	}
}

// ResolvePlatform returns the explicit platform, or the one implied by the
// configured database, or MySQL
func (c *Config) ResolvePlatform() (platform.Platform, error) {
	switch {
	case c.Platform != "":
		return platform.ByName(c.Platform)
	case c.MySQLURL != "":
		return platform.NewMySQL(), nil
	case c.SQLitePath != "":
		return platform.NewSQLite(), nil
	case c.DatabaseURL != "":
		return platform.NewPostgres(), nil
	default:
		return platform.NewMySQL(), nil
	}
}

// Level parses LogLevel
func (c *Config) Level() (hclog.Level, error) {
	level := hclog.LevelFromString(c.LogLevel)
	if level == hclog.NoLevel {
		return hclog.NoLevel, fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	return level, nil
}

// Flags binds command-line flags to configuration keys
type Flags struct {
	fs     *pflag.FlagSet
	values Config
	config string
}

// RegisterFlags adds the configuration flags to fs. Flag defaults are
// informational only: a flag overrides lower layers only when it is set.
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs, values: Default()}
	v := &f.values

	fs.StringVar(&f.config, "config", "", "YAML config file (env: LIQUISCHEMA_CONFIG)")
	fs.StringVar(&v.Metadata, "metadata", "", "Metadata file or directory")
	fs.StringVar(&v.DatabaseURL, "db-url", "", "PostgreSQL connection string")
	fs.StringVar(&v.MySQLURL, "mysql-url", "", "MySQL connection string")
	fs.StringVar(&v.SQLitePath, "sqlite", "", "SQLite database file path")
	fs.StringVarP(&v.Schema, "schema", "s", "", "Database schema name (default: public for PostgreSQL, DSN database for MySQL)")
	fs.StringVar(&v.Platform, "platform", "", "Target platform: mysql, postgres, or sqlite (default: from the database flag, else mysql)")
	fs.StringVarP(&v.Output, "output", "o", "", "Output file (default: stdout)")
	fs.StringVar(&v.Author, "author", v.Author, "Change-set author")
	fs.BoolVar(&v.UniqueID, "unique-id", v.UniqueID, "Append a unique suffix to change-set ids")
	fs.BoolVar(&v.PlatformTypes, "platform-types", v.PlatformTypes, "Render native platform column types")
	fs.StringSliceVar(&v.IgnoreTables, "ignore-tables", v.IgnoreTables, "Database tables left out of the diff (comma-separated)")
	fs.StringVar(&v.LogLevel, "log-level", v.LogLevel, "Log level: trace, debug, info, warn, or error")

	return f
}

// ConfigPath returns the --config flag, falling back to LIQUISCHEMA_CONFIG
func (f *Flags) ConfigPath() string {
	if f.config != "" {
		return f.config
	}
	return os.Getenv(EnvPrefix + "_CONFIG")
}

// Apply copies the flags that were set on the command line into cfg
func (f *Flags) Apply(cfg *Config) {
	set := map[string]func(){
		"metadata":       func() { cfg.Metadata = f.values.Metadata },
		"db-url":         func() { cfg.DatabaseURL = f.values.DatabaseURL },
		"mysql-url":      func() { cfg.MySQLURL = f.values.MySQLURL },
		"sqlite":         func() { cfg.SQLitePath = f.values.SQLitePath },
		"schema":         func() { cfg.Schema = f.values.Schema },
		"platform":       func() { cfg.Platform = f.values.Platform },
		"output":         func() { cfg.Output = f.values.Output },
		"author":         func() { cfg.Author = f.values.Author },
		"unique-id":      func() { cfg.UniqueID = f.values.UniqueID },
		"platform-types": func() { cfg.PlatformTypes = f.values.PlatformTypes },
		"ignore-tables":  func() { cfg.IgnoreTables = f.values.IgnoreTables },
		"log-level":      func() { cfg.LogLevel = f.values.LogLevel },
	}

	// Changed lives on the shared *pflag.Flag, so this also sees flags that
	// cobra parsed through a subcommand's merged flag set
	f.fs.VisitAll(func(flag *pflag.Flag) {
		if apply, ok := set[flag.Name]; ok && flag.Changed {
			apply()
		}
	})
}
