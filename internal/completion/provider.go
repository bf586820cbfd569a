// Package completion turns advisor output into suggestion lists, resolving
// table and column names against the shared metadata store.
//
// A completion pass never waits for metadata. Whatever the store already
// holds is suggested immediately; missing levels are fetched in the
// background so that a later pass, usually the next keystroke, finds them.
package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/leapstack-labs/sqlcomplete/internal/advisor"
	"github.com/leapstack-labs/sqlcomplete/internal/metadata"
	"github.com/leapstack-labs/sqlcomplete/pkg/core"
	"github.com/leapstack-labs/sqlcomplete/pkg/dialect"
)

// DefaultFetchTimeout bounds one background metadata fetch.
const DefaultFetchTimeout = 30 * time.Second

// Context is the connection an editor works against.
type Context struct {
	DatabaseType string `json:"databaseType" koanf:"type" yaml:"type"`
	InstanceID   int64  `json:"instanceId" koanf:"instance" yaml:"instance"`
	Catalog      string `json:"catalog,omitempty" koanf:"catalog" yaml:"catalog,omitempty"`
	Schema       string `json:"schema,omitempty" koanf:"schema" yaml:"schema,omitempty"`
}

// Option configures a Provider.
type Option func(*Provider)

// WithDialect fixes the SQL dialect instead of deriving it from the database type.
func WithDialect(d *dialect.Dialect) Option {
	return func(p *Provider) { p.fixedDialect = d }
}

// WithFetchTimeout bounds background fetches.
func WithFetchTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.fetchTimeout = d
		}
	}
}

// session is the state installed by Setup. It is replaced, never mutated.
type session struct {
	ctx     Context
	cfg     core.DatabaseConfig
	dialect *dialect.Dialect
	valid   bool
}

// Provider produces completion suggestions for one editor.
type Provider struct {
	store        *metadata.Store
	logger       *slog.Logger
	fixedDialect *dialect.Dialect
	fetchTimeout time.Duration

	mu         sync.RWMutex
	current    *session
	generation uint64

	wg sync.WaitGroup
}

// NewProvider creates a provider reading from store.
// A nil logger discards all log output.
func NewProvider(store *metadata.Store, logger *slog.Logger, opts ...Option) *Provider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Provider{
		store:        store,
		logger:       logger,
		fetchTimeout: DefaultFetchTimeout,
		current:      &session{dialect: dialect.GetOrDefault(dialect.DefaultName)},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.fixedDialect != nil {
		p.current.dialect = p.fixedDialect
	}
	return p
}

// Setup switches the provider to a connection context and starts pre-warming
// the table list of the context's catalog and schema. Only the database type
// lookup happens before Setup returns. Completion is enabled once the table
// list is loaded or already being loaded by someone else; Wait blocks until
// then.
func (p *Provider) Setup(ctx context.Context, c Context) error {
	p.mu.Lock()
	p.generation++
	gen := p.generation
	p.current = &session{ctx: c, dialect: p.dialectFor(c.DatabaseType)}
	p.mu.Unlock()

	cfg, err := p.store.DatabaseConfig(ctx, c.DatabaseType)
	if err != nil {
		return err
	}
	if cfg.UseCatalog && c.Catalog == "" {
		return fmt.Errorf("database type %s requires a catalog: %w", cfg.Type, metadata.ErrInvalidContext)
	}
	if cfg.UseSchema && c.Schema == "" {
		return fmt.Errorf("database type %s requires a schema: %w", cfg.Type, metadata.ErrInvalidContext)
	}
	c.DatabaseType = cfg.Type

	p.mu.Lock()
	if p.generation != gen {
		// a later Setup won
		p.mu.Unlock()
		return nil
	}
	p.current = &session{ctx: c, cfg: cfg, dialect: p.dialectFor(cfg.Type)}
	p.mu.Unlock()

	if _, state := p.store.PeekTablesAndViews(cfg.Type, c.InstanceID, c.Catalog, c.Schema); state == metadata.Success {
		p.enable(gen)
		return nil
	}
	p.fetch("tables of "+describe(c), func(ctx context.Context) error {
		_, err := p.store.FindTablesAndViews(ctx, cfg.Type, c.InstanceID, c.Catalog, c.Schema)
		if err == nil || errors.Is(err, metadata.ErrLoading) {
			p.enable(gen)
		}
		return err
	})
	return nil
}

// enable turns completion on for the session installed by Setup call gen.
func (p *Provider) enable(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.generation != gen {
		return
	}
	s := *p.current
	s.valid = true
	p.current = &s
	p.logger.Debug("completion context ready", "context", describe(s.ctx))
}

func (p *Provider) dialectFor(dbType string) *dialect.Dialect {
	if p.fixedDialect != nil {
		return p.fixedDialect
	}
	return dialect.ForDatabaseType(dbType)
}

func describe(c Context) string {
	return fmt.Sprintf("%s#%d %s", c.DatabaseType, c.InstanceID, core.TableCoordinator{Catalog: c.Catalog, Schema: c.Schema}.String())
}

// Valid reports whether the last Setup succeeded and its table list is
// available.
func (p *Provider) Valid() bool {
	return p.session().valid
}

// Context returns the connection context installed by the last Setup.
func (p *Provider) Context() Context {
	return p.session().ctx
}

// Dialect returns the SQL dialect completion currently parses with.
func (p *Provider) Dialect() *dialect.Dialect {
	return p.session().dialect
}

func (p *Provider) session() *session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Wait blocks until all background fetches started so far have finished.
func (p *Provider) Wait() {
	p.wg.Wait()
}

// TriggerCharacters returns the characters after which an editor should ask
// for completion.
func TriggerCharacters() []string {
	const chars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ.("
	out := make([]string, len(chars))
	for i := range chars {
		out[i] = chars[i : i+1]
	}
	return out
}

// Complete returns suggestions for text with the caret at byte offset.
func (p *Provider) Complete(text string, offset int) []Suggestion {
	offset = max(0, min(offset, len(text)))
	return p.CompleteSplit(text[:offset], text[offset:])
}

// CompleteSplit returns suggestions for the caret between before and after.
func (p *Provider) CompleteSplit(before, after string) []Suggestion {
	s := p.session()
	if !s.valid {
		return nil
	}
	advice := advisor.AdviseText(before, after, s.dialect)
	return p.suggest(s, advice)
}

// Advise exposes the advisor result for the current dialect.
func (p *Provider) Advise(before, after string) advisor.Advice {
	return advisor.AdviseText(before, after, p.session().dialect)
}

// suggest resolves an advice into suggestions.
func (p *Provider) suggest(s *session, advice advisor.Advice) []Suggestion {
	m := newMatcher(advice.Partial())
	switch advice.Kind {
	case advisor.Keyword:
		return keywords(s.dialect, m)
	case advisor.Table:
		return p.tables(s, advice, m)
	case advisor.ColumnOrKeyword:
		out := p.columns(s, advice, m)
		if len(advice.Qualifiers()) == 0 {
			out = append(out, keywords(s.dialect, m)...)
		}
		return out
	default:
		return nil
	}
}

// fetch runs fn in the background. ErrLoading means another fetch already
// covers the same node; ErrNotFound means the user typed a name that does
// not exist. Neither is logged.
func (p *Provider) fetch(what string, fn func(ctx context.Context) error) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.fetchTimeout)
		defer cancel()
		err := fn(ctx)
		if err != nil && !errors.Is(err, metadata.ErrLoading) && !errors.Is(err, metadata.ErrNotFound) {
			p.logger.Warn("background metadata fetch failed", "what", what, "error", err)
		}
	}()
}
