// Package metaserver exposes a metadata.Transport over the REST contract
// that the rest client speaks, so a live-database source can serve editors
// running in other processes.
package metaserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/sqlcomplete/internal/metadata"
)

// DefaultPrefix is the route prefix of the metadata API.
const DefaultPrefix = "/api/dsc/databases"

// Config holds configuration for the metadata server.
type Config struct {
	Transport metadata.Transport
	Addr      string
	Prefix    string
	Logger    *slog.Logger
}

// Server serves metadata over HTTP.
type Server struct {
	transport metadata.Transport
	addr      string
	prefix    string
	logger    *slog.Logger
}

// NewServer creates a new metadata server instance.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Server{
		transport: cfg.Transport,
		addr:      cfg.Addr,
		prefix:    prefix,
		logger:    logger,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		requestID,
		s.logRequests,
		middleware.Recoverer,
		middleware.Compress(5),
	)
	s.routes(r)
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on an existing listener until the context is cancelled.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting metadata server", "addr", fmt.Sprintf("http://%s%s", ln.Addr(), s.prefix))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down metadata server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
