// Package config loads docdrift settings from defaults, a TOML file, a .env
// file and DOCDRIFT_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/tosin2013/docdrift/internal/priority"
)

// FileName is the project-level configuration file.
const FileName = ".docdrift.toml"

// Store kinds.
const (
	StoreDir    = "dir"
	StoreBadger = "badger"
)

// Config holds every tunable of a docdrift run.
type Config struct {
	DocsDir     string   `toml:"docs_dir"`
	SnapshotDir string   `toml:"snapshot_dir"`
	Store       string   `toml:"store"`
	Workers     int      `toml:"workers"`
	MaxFileSize int64    `toml:"max_file_size"`
	Languages   []string `toml:"languages"`
	SkipTests   bool     `toml:"skip_tests"`

	Graph   GraphConfig      `toml:"graph"`
	Usage   UsageConfig      `toml:"usage"`
	Weights priority.Weights `toml:"weights"`

	LogLevel string `toml:"log_level"`
	LogJSON  bool   `toml:"log_json"`
}

// GraphConfig configures call graph construction.
type GraphConfig struct {
	Depth               int  `toml:"depth"`
	ResolveImports      bool `toml:"resolve_imports"`
	ExtractConditionals bool `toml:"extract_conditionals"`
	TrackExceptions     bool `toml:"track_exceptions"`
}

// UsageConfig configures usage collection.
type UsageConfig struct {
	Strategy   string `toml:"strategy"`
	MaxSymbols int    `toml:"max_symbols"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DocsDir:     "docs",
		SnapshotDir: ".docdrift/snapshots",
		Store:       StoreDir,
		MaxFileSize: 1_000_000,
		Graph: GraphConfig{
			Depth:          2,
			ResolveImports: true,
		},
		Usage: UsageConfig{
			Strategy:   "graph",
			MaxSymbols: 50,
		},
		Weights:  priority.DefaultWeights(),
		LogLevel: "info",
	}
}

// Load reads the configuration for projectRoot using the process environment.
func Load(projectRoot string) (Config, error) {
	return LoadWithEnv(projectRoot, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment lookup. Variables from
// projectRoot/.env apply only when lookup does not define them.
func LoadWithEnv(projectRoot string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	path := filepath.Join(projectRoot, FileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}

	dotenv, err := godotenv.Read(filepath.Join(projectRoot, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("reading .env: %w", err)
	}
	env := func(key string) string {
		if v, ok := lookup(key); ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(dotenv[key])
	}
	if err := cfg.applyEnv(env); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(env func(string) string) error {
	setString := func(key string, dst *string) {
		if v := env(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v := env(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}
	setBool := func(key string, dst *bool) error {
		v := env(key)
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
		return nil
	}

	setString("DOCDRIFT_DOCS_DIR", &c.DocsDir)
	setString("DOCDRIFT_SNAPSHOT_DIR", &c.SnapshotDir)
	setString("DOCDRIFT_STORE", &c.Store)
	setString("DOCDRIFT_USAGE_STRATEGY", &c.Usage.Strategy)
	setString("DOCDRIFT_LOG_LEVEL", &c.LogLevel)
	if v := env("DOCDRIFT_LANGUAGES"); v != "" {
		c.Languages = splitList(v)
	}
	if v := env("DOCDRIFT_MAX_FILE_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("DOCDRIFT_MAX_FILE_SIZE: %w", err)
		}
		c.MaxFileSize = n
	}

	return errors.Join(
		setInt("DOCDRIFT_WORKERS", &c.Workers),
		setInt("DOCDRIFT_GRAPH_DEPTH", &c.Graph.Depth),
		setInt("DOCDRIFT_USAGE_MAX_SYMBOLS", &c.Usage.MaxSymbols),
		setBool("DOCDRIFT_SKIP_TESTS", &c.SkipTests),
		setBool("DOCDRIFT_LOG_JSON", &c.LogJSON),
	)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Store != StoreDir && c.Store != StoreBadger:
		return fmt.Errorf("store must be %q or %q, got %q", StoreDir, StoreBadger, c.Store)
	case c.Workers < 0:
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	case c.MaxFileSize <= 0:
		return fmt.Errorf("max_file_size must be positive, got %d", c.MaxFileSize)
	case c.Graph.Depth < 1:
		return fmt.Errorf("graph depth must be at least 1, got %d", c.Graph.Depth)
	case c.Usage.Strategy != "graph" && c.Usage.Strategy != "heuristic":
		return fmt.Errorf("usage strategy must be \"graph\" or \"heuristic\", got %q", c.Usage.Strategy)
	case c.Usage.MaxSymbols < 1:
		return fmt.Errorf("usage max_symbols must be at least 1, got %d", c.Usage.MaxSymbols)
	case c.SnapshotDir == "":
		return errors.New("snapshot_dir must not be empty")
	}
	return nil
}

// SnapshotPath resolves the snapshot directory against projectRoot.
func (c *Config) SnapshotPath(projectRoot string) string {
	if filepath.IsAbs(c.SnapshotDir) {
		return c.SnapshotDir
	}
	return filepath.Join(projectRoot, c.SnapshotDir)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
