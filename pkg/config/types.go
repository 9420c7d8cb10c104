package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent stamps configuration stored as config.toml
// in the .stamps/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version    int              `toml:"version"`
	Storage    StorageConfig    `toml:"storage"`
	Remote     RemoteConfig     `toml:"remote"`
	Extraction ExtractionConfig `toml:"extraction"`
	API        APIConfig        `toml:"api"`
	Sync       SyncConfig       `toml:"sync"`
}

// StorageConfig holds local cache settings.
type StorageConfig struct {
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// RemoteConfig holds remote collection settings. An empty DSN means no
// remote is configured and signed-in sessions stay device-local.
type RemoteConfig struct {
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// ExtractionConfig holds screenshot extraction provider settings.
type ExtractionConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// SyncConfig holds background sync tuning knobs. Durations are in
// milliseconds so the TOML stays free of unit strings.
type SyncConfig struct {
	DebounceMS    uint `toml:"debounce_ms,omitempty"`
	LoadTimeoutMS uint `toml:"load_timeout_ms,omitempty"`
	SaveTimeoutMS uint `toml:"save_timeout_ms,omitempty"`
	BatchSize     uint `toml:"batch_size,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func uintKeyInfo(name string, get func(c *Config) uint, set func(c *Config, n uint)) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			n := get(c)
			if n == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(n), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			set(c, uint(n))
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"remote.postgres_dsn": {
		get: func(c *Config) string { return c.Remote.PostgresDSN },
		set: func(c *Config, v string) error { c.Remote.PostgresDSN = v; return nil },
	},
	"extraction.provider": {
		get: func(c *Config) string { return c.Extraction.Provider },
		set: func(c *Config, v string) error { c.Extraction.Provider = v; return nil },
	},
	"extraction.target": {
		get: func(c *Config) string { return c.Extraction.Target },
		set: func(c *Config, v string) error { c.Extraction.Target = v; return nil },
	},
	"extraction.model": {
		get: func(c *Config) string { return c.Extraction.Model },
		set: func(c *Config, v string) error { c.Extraction.Model = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"sync.debounce_ms": uintKeyInfo("sync.debounce_ms",
		func(c *Config) uint { return c.Sync.DebounceMS },
		func(c *Config, n uint) { c.Sync.DebounceMS = n },
	),
	"sync.load_timeout_ms": uintKeyInfo("sync.load_timeout_ms",
		func(c *Config) uint { return c.Sync.LoadTimeoutMS },
		func(c *Config, n uint) { c.Sync.LoadTimeoutMS = n },
	),
	"sync.save_timeout_ms": uintKeyInfo("sync.save_timeout_ms",
		func(c *Config) uint { return c.Sync.SaveTimeoutMS },
		func(c *Config, n uint) { c.Sync.SaveTimeoutMS = n },
	),
	"sync.batch_size": uintKeyInfo("sync.batch_size",
		func(c *Config) uint { return c.Sync.BatchSize },
		func(c *Config, n uint) { c.Sync.BatchSize = n },
	),
}
