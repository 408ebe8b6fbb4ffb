// Package termview renders the note graph views for the terminal.
package termview

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	primary   = lipgloss.Color("#818CF8") // Indigo
	secondary = lipgloss.Color("#10B981") // Green
	muted     = lipgloss.Color("#6B7280") // Gray
	warning   = lipgloss.Color("#F59E0B") // Amber
)

const (
	treeBranch = "├─ "
	treeLast   = "└─ "
	treePipe   = "│  "
	treeSpace  = "   "
)

type theme struct {
	title    lipgloss.Style
	subtitle lipgloss.Style
	context  lipgloss.Style
	note     lipgloss.Style
	id       lipgloss.Style
	branch   lipgloss.Style
	column   lipgloss.Style
	card     lipgloss.Style
	priority lipgloss.Style
}

// newTheme binds the styles to a renderer for out, so color is dropped
// when out is not a terminal.
func newTheme(out io.Writer) theme {
	r := lipgloss.NewRenderer(out)
	return theme{
		title:    r.NewStyle().Bold(true).Foreground(primary),
		subtitle: r.NewStyle().Foreground(muted).Italic(true),
		context:  r.NewStyle().Bold(true).Foreground(secondary),
		note:     r.NewStyle(),
		id:       r.NewStyle().Foreground(muted),
		branch:   r.NewStyle().Foreground(muted),
		column: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1),
		card:     r.NewStyle().Foreground(lipgloss.Color("#E5E7EB")),
		priority: r.NewStyle().Foreground(warning),
	}
}
