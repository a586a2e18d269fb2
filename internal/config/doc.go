// Package config loads and saves the swesrc configuration file.
//
// # Overview
//
// The configuration holds the bookDB connection, the four import toggles,
// the record store location and the log file. It is a plain value: the
// caller loads it at startup, hands the relevant parts to the catalog
// client and the importer, and writes it back only through Save.
//
// # Configuration Discovery
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/swesrc/config.toml
//  3. If the file doesn't exist, use Default()
//  4. Empty fields in an existing file fall back to defaults
//
// LoadEnv then reads an optional dotenv file and applies the SWESRC_*
// environment overrides. Values already present in the process
// environment are not replaced by the dotenv file.
//
// # TOML Format
//
//	[bookdb]
//	url = "https://example.org/bookdb/api.php"
//	username = "anna"
//	password = "secret"
//	requests_per_second = 0
//	timeout_seconds = 30
//
//	[behavior]
//	repo_i8n = false
//	sour_country = false
//	sour_i8n = false
//	sour_avoid_signum = false
//
//	[database]
//	driver = "sqlite3"   # or "pgx"
//	dsn = "~/.local/share/swesrc/records.db"
//
//	[log]
//	path = "~/.local/state/swesrc/swesrc.log"
//	level = "info"
//
// Tilde expansion applies to the log path and, for sqlite3, to the DSN.
//
// # Dotted Keys
//
// Get and Set address fields as "section.key" (see Keys). The CLI's
// "config set" command uses them.
//
// # Error Handling
//
// Load returns errors for path expansion failures, read errors other than
// a missing file, and TOML parse errors. Save writes with mode 0600 since
// the file carries the bookDB password.
package config
