package library

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config locates the data files and tunes the shell. Values come from, in
// increasing priority: defaults, an optional YAML file, a .env file, and
// LIBRARY_* environment variables.
type Config struct {
	BooksFile        string `yaml:"books_file"`
	PatronsFile      string `yaml:"patrons_file"`
	TransactionsFile string `yaml:"transactions_file"`

	// MirrorFile is the SQLite mirror. Empty disables the mirror and PINs.
	MirrorFile string `yaml:"mirror_file"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig uses the Data/ files and a mirror next to them.
func DefaultConfig() Config {
	return Config{
		BooksFile:        DefaultBooksFile,
		PatronsFile:      DefaultPatronsFile,
		TransactionsFile: DefaultTransactionsFile,
		MirrorFile:       "Data/library.db",
		LogLevel:         "warn",
	}
}

// LoadConfig builds the configuration. A missing YAML file or .env file is
// not an error; an unreadable or invalid one is.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		case !isNotExist(err):
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !isNotExist(err) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	overrides := []struct {
		env string
		dst *string
	}{
		{"LIBRARY_BOOKS_FILE", &cfg.BooksFile},
		{"LIBRARY_PATRONS_FILE", &cfg.PatronsFile},
		{"LIBRARY_TRANSACTIONS_FILE", &cfg.TransactionsFile},
		{"LIBRARY_MIRROR_FILE", &cfg.MirrorFile},
		{"LIBRARY_LOG_LEVEL", &cfg.LogLevel},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.env); ok {
			*o.dst = v
		}
	}

	if _, err := cfg.Level(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Paths returns the data file locations for New.
func (c Config) Paths() Paths {
	return Paths{Books: c.BooksFile, Patrons: c.PatronsFile, Transactions: c.TransactionsFile}
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelWarn, fmt.Errorf("%w: log level %q", ErrInvalidArgument, c.LogLevel)
	}
	return lvl, nil
}
