package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config is the persisted swesrc configuration.
type Config struct {
	BookDB   BookDB   `toml:"bookdb"`
	Behavior Behavior `toml:"behavior"`
	Database Database `toml:"database"`
	Log      Log      `toml:"log"`
}

// BookDB holds the catalog connection settings.
type BookDB struct {
	URL               string  `toml:"url"`
	Username          string  `toml:"username"`
	Password          string  `toml:"password"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

// Behavior holds the four import toggles.
type Behavior struct {
	// RepoI8n keeps repository addresses international: country "Sweden"
	// and phone/postal codes as delivered.
	RepoI8n bool `toml:"repo_i8n"`
	// SourCountry prefixes source titles with the country name.
	SourCountry bool `toml:"sour_country"`
	// SourI8n writes that country as "Sverige" rather than "SWEDEN".
	SourI8n bool `toml:"sour_i8n"`
	// SourAvoidSignum leaves the "(signum)" fragment out of titles.
	SourAvoidSignum bool `toml:"sour_avoid_signum"`
}

// Database selects the record store.
type Database struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// Log configures the log file used while the TUI owns the terminal.
type Log struct {
	Path  string `toml:"path"`
	Level string `toml:"level"`
}

const (
	defaultConfigPath = "~/.config/swesrc/config.toml"
	defaultDSN        = "~/.local/share/swesrc/records.db"
	defaultLogPath    = "~/.local/state/swesrc/swesrc.log"
	defaultDriver     = "sqlite3"
	defaultLevel      = "info"
	defaultTimeout    = 30
)

// Environment variables that override file values.
const (
	EnvBookDBURL      = "SWESRC_BOOKDB_URL"
	EnvBookDBUsername = "SWESRC_BOOKDB_USERNAME"
	EnvBookDBPassword = "SWESRC_BOOKDB_PASSWORD"
	EnvDatabaseDSN    = "SWESRC_DATABASE_DSN"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		BookDB:   BookDB{TimeoutSeconds: defaultTimeout},
		Database: Database{Driver: defaultDriver, DSN: mustExpand(defaultDSN)},
		Log:      Log{Path: mustExpand(defaultLogPath), Level: defaultLevel},
	}
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Load reads the config at path (or the default path), falling back to
// defaults when the file is missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(bytes, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

// LoadEnv reads an optional dotenv file and applies the SWESRC_*
// overrides. Variables already set in the process environment win over
// the file.
func (c *Config) LoadEnv(envFile string) error {
	if strings.TrimSpace(envFile) != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load env file: %w", err)
		}
	}
	if v, ok := lookupEnv(EnvBookDBURL); ok {
		c.BookDB.URL = v
	}
	if v, ok := lookupEnv(EnvBookDBUsername); ok {
		c.BookDB.Username = v
	}
	if v, ok := lookupEnv(EnvBookDBPassword); ok {
		c.BookDB.Password = v
	}
	if v, ok := lookupEnv(EnvDatabaseDSN); ok {
		c.Database.DSN = v
	}
	c.normalize()
	return nil
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// Save writes the config to path, creating directories as needed. The
// file holds the password, so it is written with owner-only permissions.
func Save(path string, c Config) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	bytes, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(resolved, bytes, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Timeout returns the per-request bookDB timeout.
func (c Config) Timeout() time.Duration {
	if c.BookDB.TimeoutSeconds <= 0 {
		return defaultTimeout * time.Second
	}
	return time.Duration(c.BookDB.TimeoutSeconds) * time.Second
}

func (c *Config) normalize() {
	c.BookDB.URL = strings.TrimSpace(c.BookDB.URL)
	c.BookDB.Username = strings.TrimSpace(c.BookDB.Username)
	if c.BookDB.TimeoutSeconds <= 0 {
		c.BookDB.TimeoutSeconds = defaultTimeout
	}
	if c.BookDB.RequestsPerSecond < 0 {
		c.BookDB.RequestsPerSecond = 0
	}

	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = defaultDriver
	}
	c.Database.DSN = strings.TrimSpace(c.Database.DSN)
	if c.Database.DSN == "" {
		c.Database.DSN = defaultDSN
	}
	if c.Database.Driver == defaultDriver {
		c.Database.DSN = mustExpand(c.Database.DSN)
	}

	c.Log.Path = strings.TrimSpace(c.Log.Path)
	if c.Log.Path == "" {
		c.Log.Path = defaultLogPath
	}
	c.Log.Path = mustExpand(c.Log.Path)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = defaultLevel
	}
}

type field struct {
	get func(*Config) string
	set func(*Config, string) error
}

var fields = map[string]field{
	"bookdb.url":      stringField(func(c *Config) *string { return &c.BookDB.URL }),
	"bookdb.username": stringField(func(c *Config) *string { return &c.BookDB.Username }),
	"bookdb.password": stringField(func(c *Config) *string { return &c.BookDB.Password }),
	"bookdb.requests_per_second": {
		get: func(c *Config) string { return strconv.FormatFloat(c.BookDB.RequestsPerSecond, 'g', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return err
			}
			c.BookDB.RequestsPerSecond = f
			return nil
		},
	},
	"bookdb.timeout_seconds": {
		get: func(c *Config) string { return strconv.Itoa(c.BookDB.TimeoutSeconds) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return err
			}
			c.BookDB.TimeoutSeconds = n
			return nil
		},
	},
	"behavior.repo_i8n":          boolField(func(c *Config) *bool { return &c.Behavior.RepoI8n }),
	"behavior.sour_country":      boolField(func(c *Config) *bool { return &c.Behavior.SourCountry }),
	"behavior.sour_i8n":          boolField(func(c *Config) *bool { return &c.Behavior.SourI8n }),
	"behavior.sour_avoid_signum": boolField(func(c *Config) *bool { return &c.Behavior.SourAvoidSignum }),
	"database.driver":            stringField(func(c *Config) *string { return &c.Database.Driver }),
	"database.dsn":               stringField(func(c *Config) *string { return &c.Database.DSN }),
	"log.path":                   stringField(func(c *Config) *string { return &c.Log.Path }),
	"log.level":                  stringField(func(c *Config) *string { return &c.Log.Level }),
}

func stringField(ptr func(*Config) *string) field {
	return field{
		get: func(c *Config) string { return *ptr(c) },
		set: func(c *Config, v string) error { *ptr(c) = v; return nil },
	}
}

func boolField(ptr func(*Config) *bool) field {
	return field{
		get: func(c *Config) string { return strconv.FormatBool(*ptr(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return err
			}
			*ptr(c) = b
			return nil
		},
	}
}

// Keys lists the dotted keys accepted by Get and Set, sorted.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of a dotted key such as "bookdb.url".
func (c Config) Get(key string) (string, error) {
	f, ok := fields[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return "", fmt.Errorf("unknown config key %q", key)
	}
	return f.get(&c), nil
}

// Set assigns a dotted key from its string form.
func (c *Config) Set(key, value string) error {
	f, ok := fields[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return fmt.Errorf("unknown config key %q", key)
	}
	if err := f.set(c, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	c.normalize()
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
