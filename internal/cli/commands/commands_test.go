package commands

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlcomplete/internal/cli/output"
	"github.com/leapstack-labs/sqlcomplete/internal/cli/testutil"
	"github.com/leapstack-labs/sqlcomplete/internal/completion"
	"github.com/leapstack-labs/sqlcomplete/internal/config"
	"github.com/leapstack-labs/sqlcomplete/internal/metadata/sqlsource"
	itestutil "github.com/leapstack-labs/sqlcomplete/internal/testutil"
)

// sqliteConfig creates a SQLite database with a small shop schema and a
// config completing against it over the sql transport.
func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "shop.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	for _, stmt := range []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)`,
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, user_id INTEGER, total REAL)`,
		`CREATE VIEW user_stats AS SELECT user_id, count(*) AS n FROM orders GROUP BY user_id`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	return &config.Config{
		LogLevel: "info",
		Output:   "json",
		Metadata: config.MetadataConfig{Transport: config.TransportSQL},
		Connection: completion.Context{
			DatabaseType: "SQLITE",
			InstanceID:   1,
		},
		Instances: []sqlsource.Instance{{ID: 1, Type: "SQLITE", Name: "shop", DSN: path}},
	}
}

// execute runs cmd with cfg and a non-terminal renderer in mode.
func execute(t *testing.T, cmd *cobra.Command, cfg *config.Config, mode output.Mode, args ...string) (string, error) {
	t.Helper()
	tr := testutil.NewTestRenderer(mode, false)
	ctx := config.WithConfig(context.Background(), cfg)
	ctx = output.WithRenderer(ctx, tr.Renderer)
	cmd.SetOut(tr.Out)
	cmd.SetErr(tr.ErrOut)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	testutil.AssertNoANSI(t, tr.Output())
	return tr.Output(), err
}

func suggestionLabels(t *testing.T, raw string) []string {
	t.Helper()
	var sugs []completion.Suggestion
	require.NoError(t, json.Unmarshal([]byte(raw), &sugs))
	labels := make([]string, len(sugs))
	for i, s := range sugs {
		labels[i] = s.Label
	}
	return labels
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewCompleteCommand(), "complete [sql]", []string{"wait", "caret", "type", "instance", "catalog", "schema", "endpoint"}},
		{NewAdviseCommand(), "advise [sql]", []string{"caret", "dialect", "type"}},
		{NewLSPCommand("dev"), "lsp", []string{"watch", "type", "transport"}},
		{NewServeCommand(), "serve", []string{"addr", "prefix", "batch-size"}},
		{NewREPLCommand(), "repl", []string{"history", "catalog"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Example, "Example should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestComplete_Tables(t *testing.T) {
	out, err := execute(t, NewCompleteCommand(), sqliteConfig(t), output.ModeJSON, "SELECT * FROM |")
	require.NoError(t, err)

	labels := suggestionLabels(t, out)
	assert.Contains(t, labels, "users")
	assert.Contains(t, labels, "orders")
	assert.Contains(t, labels, "user_stats")
}

func TestComplete_ColumnsAfterWait(t *testing.T) {
	out, err := execute(t, NewCompleteCommand(), sqliteConfig(t), output.ModeJSON, "--wait", "SELECT u.| FROM users u")
	require.NoError(t, err)

	labels := suggestionLabels(t, out)
	assert.Contains(t, labels, "id")
	assert.Contains(t, labels, "name")
	assert.NotContains(t, labels, "total")
}

func TestComplete_Stdin(t *testing.T) {
	cmd := NewCompleteCommand()
	cmd.SetIn(strings.NewReader("SELECT * FROM ord\n"))

	out, err := execute(t, cmd, sqliteConfig(t), output.ModeJSON)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders"}, suggestionLabels(t, out))
}

func TestComplete_TableOutput(t *testing.T) {
	out, err := execute(t, NewCompleteCommand(), sqliteConfig(t), output.ModeTable, "SELECT * FROM us|")
	require.NoError(t, err)
	assert.Contains(t, out, "LABEL")
	assert.Contains(t, out, "users")
	assert.NotContains(t, out, "orders")
}

func TestComplete_Errors(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		cfg := sqliteConfig(t)
		cfg.Instances = nil
		_, err := execute(t, NewCompleteCommand(), cfg, output.ModeJSON, "SELECT |")
		assert.ErrorContains(t, err, "invalid configuration")
	})

	t.Run("unknown type", func(t *testing.T) {
		cfg := sqliteConfig(t)
		cfg.Connection.DatabaseType = "MYSQL"
		_, err := execute(t, NewCompleteCommand(), cfg, output.ModeJSON, "SELECT |")
		assert.ErrorContains(t, err, "failed to set up completion")
	})

	t.Run("empty stdin", func(t *testing.T) {
		cmd := NewCompleteCommand()
		cmd.SetIn(strings.NewReader("\n"))
		_, err := execute(t, cmd, sqliteConfig(t), output.ModeJSON)
		assert.ErrorIs(t, err, errNoText)
	})
}

func TestAdvise(t *testing.T) {
	cfg := &config.Config{}

	tests := []struct {
		text       string
		wantKind   string
		wantPrefix string
	}{
		{"SELECT * FROM |", "TABLE", ""},
		{"SELECT u.| FROM users u", "COLUMN_OR_KEYWORD", "u"},
		{"SELECT 'abc|'", "NONE", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			out, err := execute(t, NewAdviseCommand(), cfg, output.ModeJSON, tt.text)
			require.NoError(t, err)

			var view AdviceView
			require.NoError(t, json.Unmarshal([]byte(out), &view))
			assert.Equal(t, tt.wantKind, view.Kind)
			if tt.wantPrefix != "" {
				require.NotEmpty(t, view.InputPrefix)
				assert.Equal(t, tt.wantPrefix, view.InputPrefix[0])
			}
		})
	}
}

func TestAdvise_UnknownDialect(t *testing.T) {
	_, err := execute(t, NewAdviseCommand(), &config.Config{Dialect: "cobol"}, output.ModeJSON, "SELECT |")
	assert.ErrorContains(t, err, "unknown dialect")
}

func TestSplitCaret(t *testing.T) {
	tests := []struct {
		text, caret   string
		before, after string
	}{
		{"SELECT | FROM t", "|", "SELECT ", " FROM t"},
		{"SELECT ", "|", "SELECT ", ""},
		{"a <> b", "<>", "a ", " b"},
		{"x|y", "", "x|y", ""},
	}
	for _, tt := range tests {
		before, after := splitCaret(tt.text, tt.caret)
		assert.Equal(t, tt.before, before, tt.text)
		assert.Equal(t, tt.after, after, tt.text)
	}
}

func TestParseUse(t *testing.T) {
	c, err := parseUse([]string{"mysql", "3", "shop"})
	require.NoError(t, err)
	assert.Equal(t, completion.Context{DatabaseType: "MYSQL", InstanceID: 3, Catalog: "shop"}, c)

	c, err = parseUse([]string{"POSTGRESQL", "1", "app", "public"})
	require.NoError(t, err)
	assert.Equal(t, "public", c.Schema)

	_, err = parseUse([]string{"MYSQL"})
	assert.Error(t, err)
	_, err = parseUse([]string{"MYSQL", "x"})
	assert.ErrorContains(t, err, "invalid instance id")
}

func TestREPLCompleter(t *testing.T) {
	s, err := openSession(sqliteConfig(t), nil)
	require.NoError(t, err)
	defer func() { _ = s.close() }()
	require.NoError(t, s.provider.Setup(context.Background(), completion.Context{DatabaseType: "SQLITE", InstanceID: 1}))
	s.provider.Wait()

	c := &replCompleter{provider: s.provider}

	line := []rune("SELECT * FROM us")
	cands, length := c.Do(line, len(line))
	assert.Equal(t, 2, length)
	assert.Contains(t, runeStrings(cands), "ers")

	c.add("SELECT *")
	line = []rune("FROM ord")
	cands, length = c.Do(line, len(line))
	assert.Equal(t, 3, length)
	assert.Equal(t, []string{"ers"}, runeStrings(cands))

	c.reset()
	assert.True(t, c.empty())
}

func runeStrings(rs [][]rune) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}

func TestConfigWatcherReload(t *testing.T) {
	cfg := sqliteConfig(t)
	path := filepath.Join(t.TempDir(), "sqlcomplete.yaml")
	require.NoError(t, os.WriteFile(path, []byte("connection:\n  type: SQLITE\n  instance: 1\n"), 0o600))

	logger, logs := itestutil.NewBufferLogger()
	w := &configWatcher{path: path, current: cfg.Connection, logger: logger}

	// same connection: nothing to do, the server is never touched
	w.reload()
	assert.Empty(t, logs.String())

	w.path = filepath.Join(t.TempDir(), "missing.yaml")
	w.reload()
	assert.Contains(t, logs.String(), "failed to reload config")
	assert.Equal(t, cfg.Connection, w.current)
}

func TestTextOutputHasOneLinePerSuggestion(t *testing.T) {
	out, err := execute(t, NewCompleteCommand(), sqliteConfig(t), output.ModeText, "SELECT * FROM us|")
	require.NoError(t, err)
	testutil.AssertLines(t, out, 2)
}
