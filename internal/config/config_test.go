package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Database.Driver != defaultDriver {
		t.Fatalf("Driver = %q, want %q", cfg.Database.Driver, defaultDriver)
	}
	wantDSN, err := expandPath(defaultDSN)
	if err != nil {
		t.Fatalf("expandPath(defaultDSN) returned error: %v", err)
	}
	if cfg.Database.DSN != wantDSN {
		t.Fatalf("DSN = %q, want %q", cfg.Database.DSN, wantDSN)
	}
	if cfg.BookDB.TimeoutSeconds != defaultTimeout {
		t.Fatalf("TimeoutSeconds = %d, want %d", cfg.BookDB.TimeoutSeconds, defaultTimeout)
	}
	if cfg.Log.Level != "info" || !strings.HasPrefix(cfg.Log.Path, home) {
		t.Fatalf("Log = %+v, want info level under HOME", cfg.Log)
	}
	if cfg.Behavior != (Behavior{}) {
		t.Fatalf("Behavior = %+v, want all toggles off", cfg.Behavior)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
[bookdb]
url = "  https://bookdb.example/api.php  "
username = " anna "
password = "s3cret"
requests_per_second = 2.5

[behavior]
repo_i8n = true
sour_country = true

[database]
driver = "PGX"
dsn = "postgres://localhost/swesrc"

[log]
path = "~/logs/swesrc.log"
level = "DEBUG"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.BookDB.URL != "https://bookdb.example/api.php" || cfg.BookDB.Username != "anna" {
		t.Fatalf("BookDB = %+v, want trimmed url and username", cfg.BookDB)
	}
	if cfg.BookDB.RequestsPerSecond != 2.5 {
		t.Fatalf("RequestsPerSecond = %v, want 2.5", cfg.BookDB.RequestsPerSecond)
	}
	if !cfg.Behavior.RepoI8n || !cfg.Behavior.SourCountry || cfg.Behavior.SourI8n {
		t.Fatalf("Behavior = %+v", cfg.Behavior)
	}
	if cfg.Database.Driver != "pgx" || cfg.Database.DSN != "postgres://localhost/swesrc" {
		t.Fatalf("Database = %+v, want pgx with untouched dsn", cfg.Database)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Path != filepath.Join(home, "logs/swesrc.log") {
		t.Fatalf("Log = %+v", cfg.Log)
	}
	if cfg.Timeout() != 30*time.Second {
		t.Fatalf("Timeout = %v, want 30s", cfg.Timeout())
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`[bookdb`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestSave_RoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.BookDB.URL = "https://bookdb.example/api.php"
	cfg.BookDB.Password = "pw"
	cfg.Behavior.SourAvoidSignum = true
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("perm = %o, want 600", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded != cfg {
		t.Fatalf("Load = %+v, want %+v", loaded, cfg)
	}
}

func TestLoadEnv_OverridesFromProcessAndFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte("SWESRC_BOOKDB_USERNAME=fromfile\nSWESRC_BOOKDB_PASSWORD=filepw\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv(EnvBookDBURL, "https://env.example/api.php")
	t.Setenv(EnvBookDBPassword, "procpw")
	// godotenv sets variables that were unset; register cleanup for them.
	t.Setenv(EnvBookDBUsername, "")
	_ = os.Unsetenv(EnvBookDBUsername)

	cfg := Default()
	cfg.BookDB.URL = "https://file.example"
	if err := cfg.LoadEnv(envFile); err != nil {
		t.Fatalf("LoadEnv returned error: %v", err)
	}
	if cfg.BookDB.URL != "https://env.example/api.php" {
		t.Fatalf("URL = %q, want env override", cfg.BookDB.URL)
	}
	if cfg.BookDB.Username != "fromfile" {
		t.Fatalf("Username = %q, want value from env file", cfg.BookDB.Username)
	}
	if cfg.BookDB.Password != "procpw" {
		t.Fatalf("Password = %q, want process env to win", cfg.BookDB.Password)
	}
}

func TestLoadEnv_MissingFileIsNotAnError(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := Default()
	if err := cfg.LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadEnv returned error: %v", err)
	}
}

func TestSetAndGet(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := Default()

	if err := cfg.Set("behavior.sour_i8n", "true"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if !cfg.Behavior.SourI8n {
		t.Fatalf("SourI8n = false after Set")
	}
	if err := cfg.Set("BookDB.URL", " https://x.example "); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if got, _ := cfg.Get("bookdb.url"); got != "https://x.example" {
		t.Fatalf("Get(bookdb.url) = %q", got)
	}
	if err := cfg.Set("bookdb.timeout_seconds", "5"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if cfg.Timeout() != 5*time.Second {
		t.Fatalf("Timeout = %v, want 5s", cfg.Timeout())
	}
	if err := cfg.Set("behavior.repo_i8n", "maybe"); err == nil {
		t.Fatalf("Set accepted a non-bool value")
	}
	if err := cfg.Set("nope", "x"); err == nil {
		t.Fatalf("Set accepted an unknown key")
	}
	if _, err := cfg.Get("nope"); err == nil {
		t.Fatalf("Get accepted an unknown key")
	}
	if len(Keys()) != len(fields) || Keys()[0] != "behavior.repo_i8n" {
		t.Fatalf("Keys = %v", Keys())
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	if want := filepath.Join(home, "a/b"); got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}
