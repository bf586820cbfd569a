package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Styles holds the lipgloss styles used by commands.
type Styles struct {
	Header  lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Prompt  lipgloss.Style
	Keyword lipgloss.Style
	Table   lipgloss.Style
	Column  lipgloss.Style
}

// NewStyles builds styles for w. Without a terminal every style is plain.
func NewStyles(w io.Writer, color bool) *Styles {
	if !color {
		plain := lipgloss.NewStyle()
		return &Styles{
			Header:  plain,
			Bold:    plain,
			Muted:   plain,
			Error:   plain,
			Prompt:  plain,
			Keyword: plain,
			Table:   plain,
			Column:  plain,
		}
	}

	re := lipgloss.NewRenderer(w)
	return &Styles{
		Header:  re.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Bold:    re.NewStyle().Bold(true),
		Muted:   re.NewStyle().Foreground(lipgloss.Color("8")),
		Error:   re.NewStyle().Foreground(lipgloss.Color("9")),
		Prompt:  re.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		Keyword: re.NewStyle().Foreground(lipgloss.Color("13")),
		Table:   re.NewStyle().Foreground(lipgloss.Color("14")),
		Column:  re.NewStyle().Foreground(lipgloss.Color("11")),
	}
}
