package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config is the parsed volumes configuration file.
type Config struct {
	Client ClientConfig
	Server ServerConfig
}

// ClientConfig configures the terminal client and the CLI commands that
// talk to a server.
type ClientConfig struct {
	APIBind              string
	PollInterval         time.Duration
	CacheBackend         string
	CachePath            string
	LogFile              string
	LogLevel             string
	MetadataTimeout      time.Duration
	SearchMode           string
	RestoreFailedDeletes bool
}

// ServerConfig configures `volumes serve`.
type ServerConfig struct {
	Listen         string
	Storage        string
	SQLitePath     string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	AllowedOrigins []string
	FetchTimeout   time.Duration
	LogLevel       string
	PrettyLog      bool
}

const (
	defaultConfigPath      = "~/.config/volumes/config.toml"
	defaultAPIBind         = "127.0.0.1:7490"
	defaultPollInterval    = 2 * time.Second
	defaultCacheBackend    = "toml"
	defaultCachePath       = "~/.cache/volumes/snapshot.toml"
	defaultLogFile         = "~/.local/state/volumes/volumes.log"
	defaultLogLevel        = "info"
	defaultMetadataTimeout = 5 * time.Second
	defaultSearchMode      = "substring"
	defaultListen          = "127.0.0.1:7490"
	defaultStorage         = "sqlite"
	defaultSQLitePath      = "~/.local/share/volumes/volumes.db"
	defaultRedisAddr       = "127.0.0.1:6379"
	defaultFetchTimeout    = 5 * time.Second
)

// DefaultPath returns the config file location used when none is given.
func DefaultPath() string {
	return defaultConfigPath
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Client: ClientConfig{
			APIBind:         defaultAPIBind,
			PollInterval:    defaultPollInterval,
			CacheBackend:    defaultCacheBackend,
			CachePath:       mustExpand(defaultCachePath),
			LogFile:         mustExpand(defaultLogFile),
			LogLevel:        defaultLogLevel,
			MetadataTimeout: defaultMetadataTimeout,
			SearchMode:      defaultSearchMode,
		},
		Server: ServerConfig{
			Listen:       defaultListen,
			Storage:      defaultStorage,
			SQLitePath:   mustExpand(defaultSQLitePath),
			RedisAddr:    defaultRedisAddr,
			FetchTimeout: defaultFetchTimeout,
			LogLevel:     defaultLogLevel,
		},
	}
}

type rawConfig struct {
	Client struct {
		APIBind              string `toml:"api_bind"`
		PollInterval         string `toml:"poll_interval"`
		CacheBackend         string `toml:"cache_backend"`
		CachePath            string `toml:"cache_path"`
		LogFile              string `toml:"log_file"`
		LogLevel             string `toml:"log_level"`
		MetadataTimeout      string `toml:"metadata_timeout"`
		SearchMode           string `toml:"search_mode"`
		RestoreFailedDeletes bool   `toml:"restore_failed_deletes"`
	} `toml:"client"`
	Server struct {
		Listen         string   `toml:"listen"`
		Storage        string   `toml:"storage"`
		SQLitePath     string   `toml:"sqlite_path"`
		RedisAddr      string   `toml:"redis_addr"`
		RedisPassword  string   `toml:"redis_password"`
		RedisDB        int      `toml:"redis_db"`
		AllowedOrigins []string `toml:"allowed_origins"`
		FetchTimeout   string   `toml:"fetch_timeout"`
		LogLevel       string   `toml:"log_level"`
		PrettyLog      bool     `toml:"pretty_log"`
	} `toml:"server"`
}

// Load locates and parses the config, falling back to defaults when missing.
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
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	c := &cfg.Client
	c.APIBind = stringOr(raw.Client.APIBind, defaultAPIBind)
	c.CacheBackend = strings.ToLower(stringOr(raw.Client.CacheBackend, defaultCacheBackend))
	c.CachePath = mustExpand(stringOr(raw.Client.CachePath, defaultCachePath))
	c.LogFile = mustExpand(stringOr(raw.Client.LogFile, defaultLogFile))
	c.LogLevel = strings.ToLower(stringOr(raw.Client.LogLevel, defaultLogLevel))
	c.SearchMode = strings.ToLower(stringOr(raw.Client.SearchMode, defaultSearchMode))
	c.RestoreFailedDeletes = raw.Client.RestoreFailedDeletes
	if c.PollInterval, err = durationOr("client.poll_interval", raw.Client.PollInterval, defaultPollInterval); err != nil {
		return Config{}, err
	}
	if c.MetadataTimeout, err = durationOr("client.metadata_timeout", raw.Client.MetadataTimeout, defaultMetadataTimeout); err != nil {
		return Config{}, err
	}

	s := &cfg.Server
	s.Listen = stringOr(raw.Server.Listen, defaultListen)
	s.Storage = strings.ToLower(stringOr(raw.Server.Storage, defaultStorage))
	s.SQLitePath = mustExpand(stringOr(raw.Server.SQLitePath, defaultSQLitePath))
	s.RedisAddr = stringOr(raw.Server.RedisAddr, defaultRedisAddr)
	s.RedisPassword = raw.Server.RedisPassword
	s.RedisDB = raw.Server.RedisDB
	s.LogLevel = strings.ToLower(stringOr(raw.Server.LogLevel, defaultLogLevel))
	s.PrettyLog = raw.Server.PrettyLog
	s.AllowedOrigins = nil
	for _, origin := range raw.Server.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			s.AllowedOrigins = append(s.AllowedOrigins, trimmed)
		}
	}
	if s.FetchTimeout, err = durationOr("server.fetch_timeout", raw.Server.FetchTimeout, defaultFetchTimeout); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func stringOr(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func durationOr(key, value string, fallback time.Duration) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("parse config: %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("parse config: %s must be positive, got %s", key, trimmed)
	}
	return d, nil
}

// ExpandPath resolves ~ and makes path absolute. Empty input is an error.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
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
