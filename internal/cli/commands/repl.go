package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlcomplete/internal/cli/output"
	"github.com/leapstack-labs/sqlcomplete/internal/completion"
	"github.com/leapstack-labs/sqlcomplete/internal/config"
)

const (
	replPrompt     = "sql> "
	replContPrompt = " ...> "
)

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	var historyFile string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Type SQL with live tab completion",
		Long: `Start an interactive prompt that completes SQL like an editor does.

Press Tab for suggestions. A statement ends with a semicolon; on submit the
suggestions at the caret marker '|' (or at the end) are printed. Nothing is
executed against the database.`,
		Example: `  sqlcomplete repl --type MYSQL --instance 1 --catalog shop`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd, historyFile)
		},
	}

	cmd.Flags().StringVar(&historyFile, "history", "", "History file (default: user cache dir)")
	addConnectionFlags(cmd)

	return cmd
}

func runREPL(cmd *cobra.Command, historyFile string) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	logger := config.GetLogger(ctx)
	r := output.FromContext(ctx)

	s, err := openSession(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = s.close() }()

	if cfg.Connection.DatabaseType != "" {
		if err := s.provider.Setup(ctx, cfg.Connection); err != nil {
			r.Error(fmt.Sprintf("Completion unavailable: %v", err))
		}
		s.provider.Wait()
	}

	if historyFile == "" {
		historyFile = defaultHistoryFile()
	}

	completer := &replCompleter{provider: s.provider}
	prompt := r.Styles().Prompt.Render(replPrompt)
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	r.Header("sqlcomplete REPL")
	r.Muted(fmt.Sprintf("Context: %s", describeContext(s.provider)))
	r.Muted("Type .help for commands, .quit to exit")
	r.Println("")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			completer.reset()
			rl.SetPrompt(prompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if completer.empty() && strings.HasPrefix(trimmed, ".") {
			if quit := handleREPLCommand(ctx, r, s.provider, trimmed); quit {
				break
			}
			continue
		}

		// Accumulate multi-line SQL until semicolon
		completer.add(line)
		if !strings.HasSuffix(trimmed, ";") {
			rl.SetPrompt(replContPrompt)
			continue
		}
		rl.SetPrompt(prompt)

		before, after := splitCaret(strings.TrimSuffix(completer.text(), ";"), defaultCaret)
		completer.reset()
		if err := renderSuggestions(r, s.provider.CompleteSplit(before, after)); err != nil {
			r.Error(fmt.Sprintf("Error: %v", err))
		}
		r.Println("")
	}

	return nil
}

func defaultHistoryFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "sqlcomplete")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return ""
	}
	return filepath.Join(dir, "repl_history")
}

func describeContext(p *completion.Provider) string {
	if !p.Valid() {
		return "none (use .use)"
	}
	c := p.Context()
	parts := []string{c.DatabaseType, "#" + strconv.FormatInt(c.InstanceID, 10)}
	if c.Catalog != "" {
		parts = append(parts, "catalog="+c.Catalog)
	}
	if c.Schema != "" {
		parts = append(parts, "schema="+c.Schema)
	}
	return strings.Join(parts, " ")
}

// handleREPLCommand runs a dot-command and reports whether the REPL should exit.
func handleREPLCommand(ctx context.Context, r *output.Renderer, p *completion.Provider, line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(r.Writer())

	case ".context":
		r.Println(describeContext(p))

	case ".use":
		c, err := parseUse(parts[1:])
		if err != nil {
			r.Error(err.Error())
			return false
		}
		if err := p.Setup(ctx, c); err != nil {
			r.Error(fmt.Sprintf("Error: %v", err))
			return false
		}
		p.Wait()
		r.Println("Using " + describeContext(p))

	case ".wait":
		p.Wait()

	default:
		r.Error(fmt.Sprintf("Unknown command: %s (type .help for commands)", command))
	}
	return false
}

func parseUse(args []string) (completion.Context, error) {
	if len(args) < 2 || len(args) > 4 {
		return completion.Context{}, errors.New("usage: .use <type> <instance> [catalog] [schema]")
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return completion.Context{}, fmt.Errorf("invalid instance id %q", args[1])
	}
	c := completion.Context{DatabaseType: strings.ToUpper(args[0]), InstanceID: id}
	if len(args) > 2 {
		c.Catalog = args[2]
	}
	if len(args) > 3 {
		c.Schema = args[3]
	}
	return c, nil
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help                                  Show this help message
  .context                               Show the connection context
  .use <type> <instance> [catalog] [schema]
                                         Switch the connection context
  .wait                                  Wait for background metadata fetches
  .quit / .exit                          Exit the REPL

Tips:
  - Press Tab to complete keywords, tables and columns
  - Statements end with a semicolon (;)
  - Mark a caret with | to list the suggestions there on submit
`
	_, _ = fmt.Fprintln(w, help)
}

// replCompleter adapts the Provider to readline. Lines of an unfinished
// statement are kept so completion sees the whole statement.
type replCompleter struct {
	provider *completion.Provider
	lines    []string
}

func (c *replCompleter) add(line string) { c.lines = append(c.lines, line) }
func (c *replCompleter) reset() { c.lines = nil }
func (c *replCompleter) empty() bool { return len(c.lines) == 0 }
func (c *replCompleter) text() string { return strings.Join(c.lines, "\n") }

// Do implements readline.AutoCompleter. Candidates are the remainders of the
// suggestions after the word being typed.
func (c *replCompleter) Do(line []rune, pos int) ([][]rune, int) {
	pos = max(0, min(pos, len(line)))
	before := string(line[:pos])
	if !c.empty() {
		before = c.text() + "\n" + before
	}
	after := string(line[pos:])

	start := pos
	for start > 0 && isWordRune(line[start-1]) {
		start--
	}
	typed := pos - start

	var out [][]rune
	for _, s := range c.provider.CompleteSplit(before, after) {
		insert := []rune(s.InsertText)
		if len(insert) < typed {
			continue
		}
		out = append(out, insert[typed:])
	}
	return out, typed
}

func isWordRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
