// Package config loads sqlcomplete configuration. Values are layered with
// koanf: built-in defaults, then the YAML config file, then SQLCOMPLETE_
// environment variables, then command-line flags.
package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/sqlcomplete/internal/completion"
	"github.com/leapstack-labs/sqlcomplete/internal/metadata/rest"
	"github.com/leapstack-labs/sqlcomplete/internal/metadata/sqlsource"
	"github.com/leapstack-labs/sqlcomplete/internal/metaserver"
	"github.com/leapstack-labs/sqlcomplete/pkg/core"
)

// Config file names, looked up in the working directory.
const (
	ConfigFileName    = "sqlcomplete.yaml"
	ConfigFileNameAlt = "sqlcomplete.yml"
)

// EnvPrefix prefixes environment overrides. A double underscore separates
// nested keys: SQLCOMPLETE_METADATA__ENDPOINT sets metadata.endpoint.
const EnvPrefix = "SQLCOMPLETE_"

// Metadata transports.
const (
	TransportREST = "rest"
	TransportSQL  = "sql"
)

// Default configuration values.
const (
	DefaultLogLevel   = "info"
	DefaultOutput     = "auto" // table on a terminal, json otherwise
	DefaultTransport  = TransportREST
	DefaultServerAddr = "127.0.0.1:8765"
)

// Config holds all sqlcomplete configuration.
type Config struct {
	LogLevel   string                `koanf:"log_level"`
	Output     string                `koanf:"output"`
	Dialect    string                `koanf:"dialect"`
	Metadata   MetadataConfig        `koanf:"metadata"`
	Connection completion.Context    `koanf:"connection"`
	Databases  []core.DatabaseConfig `koanf:"databases"`
	Instances  []sqlsource.Instance  `koanf:"instances"`
	Server     ServerConfig          `koanf:"server"`

	// File is the config file that was loaded, empty if none.
	File string `koanf:"-"`
}

// MetadataConfig selects and configures the metadata transport.
type MetadataConfig struct {
	rest.Config `koanf:",squash"`

	Transport  string `koanf:"transport"`
	BatchLimit int    `koanf:"batch_limit"`
}

// ServerConfig configures the metadata HTTP server.
type ServerConfig struct {
	Addr   string `koanf:"addr"`
	Prefix string `koanf:"prefix"`
}

// defaults returns the flattened default values.
func defaults() map[string]any {
	return map[string]any{
		"log_level":            DefaultLogLevel,
		"output":               DefaultOutput,
		"metadata.transport":   DefaultTransport,
		"metadata.timeout":     rest.DefaultTimeout,
		"metadata.batch_limit": sqlsource.DefaultBatchLimit,
		"server.addr":          DefaultServerAddr,
		"server.prefix":        metaserver.DefaultPrefix,
	}
}

// Level returns the slog level named by LogLevel, Info when unknown.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Timeout returns the metadata request timeout.
func (c *Config) Timeout() time.Duration {
	if c.Metadata.Timeout <= 0 {
		return rest.DefaultTimeout
	}
	return c.Metadata.Timeout
}
