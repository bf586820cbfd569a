package commands

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/sqlcomplete/internal/completion"
	"github.com/leapstack-labs/sqlcomplete/internal/config"
	"github.com/leapstack-labs/sqlcomplete/internal/lsp"
)

// reloadDelay debounces bursts of config file events.
const reloadDelay = 100 * time.Millisecond

// NewLSPCommand creates the lsp command.
func NewLSPCommand(version string) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		Long: `Start the LSP server for IDE integration.

The server communicates over stdin/stdout using JSON-RPC. The connection
context comes from the configuration (connection.*), from the client's
initializationOptions, or from a later sqlcomplete/setup request.

With --watch, edits to the config file switch the connection context
without restarting the server.`,
		Example: `  # Start LSP server (usually called by an IDE)
  sqlcomplete lsp

  # Serve completion straight from a local database
  sqlcomplete lsp --transport sql --type SQLITE --instance 1`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLSP(cmd, version, watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", true, "Reload the connection context when the config file changes")
	addConnectionFlags(cmd)

	return cmd
}

func runLSP(cmd *cobra.Command, version string, watch bool) error {
	cfg := config.FromContext(cmd.Context())
	logger := config.GetLogger(cmd.Context())

	s, err := openSession(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = s.close() }()

	server := lsp.NewServer(cmd.InOrStdin(), cmd.OutOrStdout(), s.store, s.provider, logger)
	server.SetVersion(version)
	if cfg.Connection.DatabaseType != "" {
		server.Reconfigure(cfg.Connection)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	done := make(chan struct{})
	if watch && cfg.File != "" {
		go func() {
			defer close(done)
			w := &configWatcher{path: cfg.File, flags: cmd.Flags(), current: cfg.Connection, server: server, logger: logger}
			if err := w.run(ctx); err != nil {
				logger.Warn("config watch disabled", "file", cfg.File, "error", err)
			}
		}()
	} else {
		close(done)
	}

	err = server.Run(ctx)
	cancel()
	<-done
	server.Wait()
	return err
}

// configWatcher re-runs setup when the connection in the config file changes.
type configWatcher struct {
	path    string
	flags   *pflag.FlagSet
	current completion.Context
	server  *lsp.Server
	logger  *slog.Logger
}

func (w *configWatcher) run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// Editors often replace the file instead of writing it, so watch the
	// directory and match on the name.
	target, err := filepath.Abs(w.path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}

	reload := make(chan struct{}, 1)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if name, _ := filepath.Abs(event.Name); name != target {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(reloadDelay, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			w.reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *configWatcher) reload() {
	cfg, err := config.Load(w.path, w.flags)
	if err != nil {
		w.logger.Warn("failed to reload config", "file", w.path, "error", err)
		return
	}
	if cfg.Connection == w.current || cfg.Connection.DatabaseType == "" {
		return
	}
	w.logger.Info("connection changed, re-running setup", "file", w.path, "type", cfg.Connection.DatabaseType, "instance", cfg.Connection.InstanceID)
	w.current = cfg.Connection
	w.server.Reconfigure(cfg.Connection)
}
