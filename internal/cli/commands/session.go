package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlcomplete/internal/completion"
	"github.com/leapstack-labs/sqlcomplete/internal/config"
	"github.com/leapstack-labs/sqlcomplete/internal/metadata"
	"github.com/leapstack-labs/sqlcomplete/internal/metadata/rest"
	"github.com/leapstack-labs/sqlcomplete/internal/metadata/sqlsource"
	"github.com/leapstack-labs/sqlcomplete/pkg/dialect"
)

// defaultCaret marks the cursor in text given on the command line.
const defaultCaret = "|"

// session bundles the metadata stack a command completes against.
type session struct {
	store    *metadata.Store
	provider *completion.Provider
	close    func() error
}

// openSession builds the configured transport, the shared store and a
// provider reading from it.
func openSession(cfg *config.Config, logger *slog.Logger) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var (
		transport metadata.Transport
		closeFn   = func() error { return nil }
	)
	switch strings.ToLower(cfg.Metadata.Transport) {
	case config.TransportSQL:
		src := sqlsource.New(cfg.Instances, logger,
			sqlsource.WithBatchLimit(cfg.Metadata.BatchLimit),
			sqlsource.WithDatabases(cfg.Databases),
		)
		transport, closeFn = src, src.Close
	default:
		restCfg := cfg.Metadata.Config
		restCfg.Timeout = cfg.Timeout()
		client, err := rest.New(restCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create metadata client: %w", err)
		}
		transport = client
	}

	store := metadata.NewStore(transport, logger)
	opts := []completion.Option{completion.WithFetchTimeout(cfg.Timeout())}
	if cfg.Dialect != "" {
		opts = append(opts, completion.WithDialect(dialect.GetOrDefault(cfg.Dialect)))
	}
	return &session{
		store:    store,
		provider: completion.NewProvider(store, logger, opts...),
		close:    closeFn,
	}, nil
}

// addConnectionFlags registers the flags that override connection.* keys.
func addConnectionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("type", "", "Database type of the connection (e.g. MYSQL, POSTGRESQL)")
	f.Int64("instance", 0, "Instance id of the connection")
	f.String("catalog", "", "Default catalog")
	f.String("schema", "", "Default schema")
	f.String("transport", "", "Metadata transport (rest|sql)")
	f.String("endpoint", "", "Metadata service endpoint for the rest transport")
	f.String("dialect", "", "SQL dialect (default: derived from the database type)")
}

// splitCaret splits text at the first caret marker. Without a marker the
// caret is at the end.
func splitCaret(text, caret string) (before, after string) {
	if caret == "" {
		return text, ""
	}
	if i := strings.Index(text, caret); i >= 0 {
		return text[:i], text[i+len(caret):]
	}
	return text, ""
}

// dialectFor picks the dialect used without a live connection.
func dialectFor(cfg *config.Config) (*dialect.Dialect, error) {
	if cfg.Dialect != "" {
		d, ok := dialect.Get(cfg.Dialect)
		if !ok {
			return nil, fmt.Errorf("unknown dialect %q (available: %s)", cfg.Dialect, strings.Join(dialect.List(), ", "))
		}
		return d, nil
	}
	return dialect.ForDatabaseType(cfg.Connection.DatabaseType), nil
}

var errNoText = errors.New("no SQL text given")
