// Package config loads the volumes configuration file.
//
// # Overview
//
// One TOML file configures both halves of volumes: the [client] table is
// read by the terminal client and the CLI commands that talk to a server,
// the [server] table by `volumes serve`. Every key is optional.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/volumes/config.toml
//  3. If the file doesn't exist, fall back to Default()
//  4. If the file exists but a value is missing or blank, use its default
//
// # TOML Format
//
//	[client]
//	api_bind = "127.0.0.1:7490"
//	poll_interval = "2s"
//	cache_backend = "toml"          # or "sqlite"
//	cache_path = "~/.cache/volumes/snapshot.toml"
//	log_file = "~/.local/state/volumes/volumes.log"
//	log_level = "info"
//	metadata_timeout = "5s"
//	search_mode = "substring"       # or "fuzzy"
//	restore_failed_deletes = false
//
//	[server]
//	listen = "127.0.0.1:7490"
//	storage = "sqlite"              # or "redis", "memory"
//	sqlite_path = "~/.local/share/volumes/volumes.db"
//	redis_addr = "127.0.0.1:6379"
//	redis_password = ""
//	redis_db = 0
//	allowed_origins = []
//	fetch_timeout = "5s"
//	log_level = "info"
//	pretty_log = false
//
// Durations use Go syntax ("500ms", "2s") and must be positive. Paths
// accept a leading ~ and are returned absolute. Enumerated values
// (cache_backend, search_mode, storage) are lowercased here and validated
// by the packages that consume them.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors and malformed durations
//
// Missing config files are NOT an error.
package config
