package termview

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/starford/now/internal/models"
	"github.com/starford/now/internal/views"
)

// minColumnWidth keeps board columns readable on narrow terminals.
const minColumnWidth = 16

// Printer writes views to a terminal or any other writer.
type Printer struct {
	out   io.Writer
	width int
	th    theme
}

// New creates a Printer. width is the terminal width; zero means 80.
func New(out io.Writer, width int) *Printer {
	if width <= 0 {
		width = 80
	}
	return &Printer{out: out, width: width, th: newTheme(out)}
}

func (p *Printer) println(s string) {
	fmt.Fprintln(p.out, s)
}

func (p *Printer) entry(e views.Entry) string {
	return p.th.note.Render(e.Title) + " " + p.th.id.Render(e.ID)
}

// TOC prints every note in title order followed by the orphans.
func (p *Printer) TOC(v views.TOCView) {
	p.println(p.th.title.Render(fmt.Sprintf("Notes (%d)", len(v.All))))
	for _, e := range v.All {
		p.println("  " + p.entry(e))
	}
	if len(v.Orphaned) == 0 {
		return
	}
	p.println("")
	p.println(p.th.subtitle.Render(fmt.Sprintf("Not referenced (%d)", len(v.Orphaned))))
	for _, e := range v.Orphaned {
		p.println("  " + p.entry(e))
	}
}

// Contexts prints the contexts tree.
func (p *Printer) Contexts(nodes []views.ContextNode) {
	p.println(p.th.title.Render("Contexts"))
	if len(nodes) == 0 {
		p.println(p.th.subtitle.Render("  none"))
		return
	}
	p.contextLevel(nodes, "")
}

func (p *Printer) contextLevel(nodes []views.ContextNode, prefix string) {
	for i, n := range nodes {
		last := i == len(nodes)-1
		branch, next := treeBranch, treePipe
		if last {
			branch, next = treeLast, treeSpace
		}
		label := p.th.context.Render("#"+n.Name) + p.th.id.Render(fmt.Sprintf(" (%d)", n.Count))
		p.println(p.th.branch.Render(prefix+branch) + label)

		childPrefix := prefix + next
		for j, e := range n.Notes {
			b := treeBranch
			if j == len(n.Notes)-1 && len(n.Children) == 0 {
				b = treeLast
			}
			p.println(p.th.branch.Render(childPrefix+b) + p.entry(e))
		}
		p.contextLevel(n.Children, childPrefix)
	}
}

// Board prints the kanban columns side by side.
func (p *Printer) Board(b views.BoardView) {
	if len(b.Columns) == 0 {
		return
	}
	// Border and padding take four cells per column.
	width := max(p.width/len(b.Columns)-4, minColumnWidth)

	cols := make([]string, len(b.Columns))
	for i, c := range b.Columns {
		lines := []string{p.th.title.Render(fmt.Sprintf("%s (%d)", c.Title, len(c.Cards)))}
		for _, card := range c.Cards {
			line := p.th.card.Render(card.Title)
			if card.Priority != "" {
				line += " " + p.th.priority.Render("!"+card.Priority)
			}
			lines = append(lines, line)
		}
		cols[i] = p.th.column.Width(width).Render(strings.Join(lines, "\n"))
	}
	p.println(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
}

// Graph prints a summary line and every edge as an arrow between titles.
func (p *Printer) Graph(v views.GraphView) {
	labels := make(map[string]string, len(v.Nodes))
	for _, n := range v.Nodes {
		labels[n.ID] = n.Label
	}

	p.println(p.th.title.Render(fmt.Sprintf("Graph: %d nodes, %d edges", len(v.Nodes), len(v.Edges))))
	for _, e := range v.Edges {
		arrow := "→"
		if e.Type != models.EdgeExplicit {
			arrow = "⇢"
		}
		p.println(fmt.Sprintf("  %s %s %s %s",
			p.th.note.Render(labels[e.From]),
			p.th.branch.Render(arrow),
			p.th.note.Render(labels[e.To]),
			p.th.id.Render(string(e.Type))))
	}
}
