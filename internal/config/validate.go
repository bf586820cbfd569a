package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlcomplete/internal/metadata/sqlsource"
	"github.com/leapstack-labs/sqlcomplete/pkg/dialect"
)

var (
	logLevels = []string{"debug", "info", "warn", "warning", "error"}
	outputs   = []string{"auto", "table", "text", "json", "yaml"}
)

// Validate reports every invalid setting, joined into one error.
func (c *Config) Validate() error {
	var errs []error

	if !oneOf(c.LogLevel, logLevels) {
		errs = append(errs, fmt.Errorf("log_level %q must be one of %s", c.LogLevel, strings.Join(logLevels, ", ")))
	}
	if !oneOf(c.Output, outputs) {
		errs = append(errs, fmt.Errorf("output %q must be one of %s", c.Output, strings.Join(outputs, ", ")))
	}
	if c.Dialect != "" {
		if _, ok := dialect.Get(c.Dialect); !ok {
			errs = append(errs, fmt.Errorf("unknown dialect %q (available: %s)", c.Dialect, strings.Join(dialect.List(), ", ")))
		}
	}

	switch strings.ToLower(c.Metadata.Transport) {
	case TransportREST:
		if c.Metadata.Endpoint == "" {
			errs = append(errs, errors.New("metadata.endpoint is required for the rest transport"))
		}
	case TransportSQL:
		errs = append(errs, c.validateSQL()...)
	default:
		errs = append(errs, fmt.Errorf("metadata.transport %q must be %s or %s", c.Metadata.Transport, TransportREST, TransportSQL))
	}

	return errors.Join(errs...)
}

// ValidateServer checks the settings needed to serve metadata over HTTP,
// which always reads from live databases.
func (c *Config) ValidateServer() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if !strings.HasPrefix(c.Server.Prefix, "/") {
		errs = append(errs, fmt.Errorf("server.prefix %q must start with /", c.Server.Prefix))
	}
	errs = append(errs, c.validateSQL()...)
	return errors.Join(errs...)
}

func (c *Config) validateSQL() []error {
	var errs []error
	if len(c.Instances) == 0 {
		errs = append(errs, errors.New("at least one instance is required for the sql transport"))
	}

	seen := make(map[int64]bool)
	for i, inst := range c.Instances {
		if seen[inst.ID] {
			errs = append(errs, fmt.Errorf("instances[%d]: duplicate id %d", i, inst.ID))
		}
		seen[inst.ID] = true
		if _, ok := sqlsource.Get(inst.Type); !ok {
			errs = append(errs, fmt.Errorf("instances[%d]: unsupported type %q (available: %s)", i, inst.Type, strings.Join(sqlsource.List(), ", ")))
		}
		if inst.DSN == "" {
			errs = append(errs, fmt.Errorf("instances[%d]: dsn is required", i))
		}
	}

	for i, db := range c.Databases {
		if _, ok := sqlsource.Get(db.Type); !ok {
			errs = append(errs, fmt.Errorf("databases[%d]: unsupported type %q", i, db.Type))
		}
	}
	return errs
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true
		}
	}
	return false
}
