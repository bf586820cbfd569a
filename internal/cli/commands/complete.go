package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlcomplete/internal/cli/output"
	"github.com/leapstack-labs/sqlcomplete/internal/completion"
	"github.com/leapstack-labs/sqlcomplete/internal/config"
)

// CompleteOptions holds options for the complete command.
type CompleteOptions struct {
	Wait  bool
	Caret string
}

// NewCompleteCommand creates the complete command.
func NewCompleteCommand() *cobra.Command {
	opts := &CompleteOptions{}

	cmd := &cobra.Command{
		Use:   "complete [sql]",
		Short: "Print completion suggestions for a SQL fragment",
		Long: `Print the suggestions an editor would show for SQL text.

The caret position is marked with '|' (see --caret); without a marker the
caret is at the end of the text. Pass '-' or no argument to read the text
from stdin.

Metadata that is not cached yet is fetched in the background, exactly as in
an editor. Use --wait to let those fetches finish and complete again.`,
		Example: `  # Tables of the configured schema
  sqlcomplete complete --type MYSQL --instance 1 --catalog shop "SELECT * FROM |"

  # Columns of a joined table, waiting for the column fetch
  sqlcomplete complete --wait "SELECT o.| FROM users u LEFT JOIN orders o ON u.id = o.user_id"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComplete(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Wait, "wait", "w", false, "Wait for background metadata fetches and complete again")
	cmd.Flags().StringVar(&opts.Caret, "caret", defaultCaret, "Marker for the caret position")
	addConnectionFlags(cmd)

	return cmd
}

func runComplete(cmd *cobra.Command, args []string, opts *CompleteOptions) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	logger := config.GetLogger(ctx)
	r := output.FromContext(ctx)

	text, err := readText(cmd, args)
	if err != nil {
		return err
	}
	before, after := splitCaret(text, opts.Caret)

	s, err := openSession(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = s.close() }()

	if err := s.provider.Setup(ctx, cfg.Connection); err != nil {
		return fmt.Errorf("failed to set up completion: %w", err)
	}
	s.provider.Wait()

	suggestions := s.provider.CompleteSplit(before, after)
	if opts.Wait {
		s.provider.Wait()
		suggestions = s.provider.CompleteSplit(before, after)
	}
	return renderSuggestions(r, suggestions)
}

func readText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	text := strings.TrimRight(string(b), "\r\n")
	if strings.TrimSpace(text) == "" {
		return "", errNoText
	}
	return text, nil
}

func renderSuggestions(r *output.Renderer, suggestions []completion.Suggestion) error {
	if suggestions == nil {
		suggestions = []completion.Suggestion{}
	}
	return r.Render(suggestions, func(r *output.Renderer) {
		styles := r.Styles()
		rows := make([][]string, len(suggestions))
		for i, s := range suggestions {
			rows[i] = []string{kindStyle(styles, s.Kind).Render(s.Label), string(s.Kind), s.Detail}
		}
		r.Table([]string{"LABEL", "KIND", "DETAIL"}, rows)
	})
}

func kindStyle(styles *output.Styles, k completion.Kind) lipgloss.Style {
	switch k {
	case completion.KindKeyword:
		return styles.Keyword
	case completion.KindColumn:
		return styles.Column
	case completion.KindTable, completion.KindView:
		return styles.Table
	default:
		return styles.Bold
	}
}
