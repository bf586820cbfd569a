package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlcomplete/internal/advisor"
	"github.com/leapstack-labs/sqlcomplete/internal/cli/output"
	"github.com/leapstack-labs/sqlcomplete/internal/config"
	"github.com/leapstack-labs/sqlcomplete/pkg/core"
)

// AdviceView is the rendered form of an advisor result.
type AdviceView struct {
	Kind            string                  `json:"kind" yaml:"kind"`
	InputPrefix     []string                `json:"inputPrefix" yaml:"input_prefix"`
	CandidateTables []core.TableCoordinator `json:"candidateTables" yaml:"candidate_tables"`
	Dialect         string                  `json:"dialect" yaml:"dialect"`
}

// NewAdviseCommand creates the advise command.
func NewAdviseCommand() *cobra.Command {
	var caret string

	cmd := &cobra.Command{
		Use:   "advise [sql]",
		Short: "Show what kind of completion is valid at the caret",
		Long: `Parse SQL text and print the completion advice at the caret: the
kind of completion (KEYWORD, TABLE, COLUMN_OR_KEYWORD or NONE), the typed
prefix segments and the tables in scope.

No metadata is read; only the dialect matters.`,
		Example: `  sqlcomplete advise "SELECT u.| FROM users u"
  echo "SELECT * FROM sales.|" | sqlcomplete advise --dialect postgres`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdvise(cmd, args, caret)
		},
	}

	cmd.Flags().StringVar(&caret, "caret", defaultCaret, "Marker for the caret position")
	cmd.Flags().String("dialect", "", "SQL dialect (default: derived from the database type)")
	cmd.Flags().String("type", "", "Database type used to pick the dialect")

	return cmd
}

func runAdvise(cmd *cobra.Command, args []string, caret string) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	r := output.FromContext(ctx)

	text, err := readText(cmd, args)
	if err != nil {
		return err
	}
	d, err := dialectFor(cfg)
	if err != nil {
		return err
	}

	before, after := splitCaret(text, caret)
	a := advisor.AdviseText(before, after, d)
	view := AdviceView{
		Kind:            a.Kind.String(),
		InputPrefix:     a.InputPrefix,
		CandidateTables: a.CandidateTables,
		Dialect:         d.Name,
	}
	if view.InputPrefix == nil {
		view.InputPrefix = []string{}
	}
	if view.CandidateTables == nil {
		view.CandidateTables = []core.TableCoordinator{}
	}

	return r.Render(view, func(r *output.Renderer) {
		styles := r.Styles()
		r.Printf("%s %s\n", styles.Bold.Render("Kind:"), styles.Keyword.Render(view.Kind))
		r.Printf("%s %s\n", styles.Bold.Render("Prefix:"), strings.Join(view.InputPrefix, "."))
		r.Printf("%s %s\n", styles.Bold.Render("Dialect:"), view.Dialect)
		if len(view.CandidateTables) == 0 {
			return
		}
		r.Println("")
		rows := make([][]string, len(view.CandidateTables))
		for i, c := range view.CandidateTables {
			rows[i] = []string{c.Catalog, c.Schema, c.Table, c.Alias}
		}
		r.Table([]string{"CATALOG", "SCHEMA", "TABLE", "ALIAS"}, rows)
	})
}
