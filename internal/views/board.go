package views

import (
	"slices"
	"strings"

	"github.com/starford/now/internal/graph"
	"github.com/starford/now/internal/models"
)

// Metadata keys read by the board.
const (
	StatusKey   = "status"
	PriorityKey = "priorität"
)

// BoardColumn is a configured status column.
type BoardColumn struct {
	Status string `json:"status" yaml:"status"`
	Title  string `json:"title" yaml:"title"`
}

// BoardConfig selects which notes are tasks and how they are grouped.
type BoardConfig struct {
	TaskType string        `yaml:"task_type"`
	Columns  []BoardColumn `yaml:"columns"`
}

// DefaultBoard returns the stock three-column board for "Aufgabe" notes.
func DefaultBoard() BoardConfig {
	return BoardConfig{
		TaskType: "Aufgabe",
		Columns: []BoardColumn{
			{Status: "offen", Title: "To Do"},
			{Status: "in-bearbeitung", Title: "In Progress"},
			{Status: "erledigt", Title: "Done"},
		},
	}
}

// HasStatus reports whether status names a configured column.
func (b BoardConfig) HasStatus(status string) bool {
	return slices.ContainsFunc(b.Columns, func(c BoardColumn) bool { return c.Status == status })
}

// Card is a task on the board.
type Card struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Priority string `json:"priority,omitempty"`
}

// Column is a board column with its cards.
type Column struct {
	BoardColumn
	Cards []Card `json:"cards"`
}

// BoardView is the kanban board.
type BoardView struct {
	Columns []Column `json:"columns"`
}

// Board groups the task notes by status. Tasks whose status matches no
// column are left off the board. Cards keep note order.
func Board(notes []models.Note, cfg BoardConfig) BoardView {
	view := BoardView{Columns: make([]Column, 0, len(cfg.Columns))}
	pos := make(map[string]int, len(cfg.Columns))
	for i, c := range cfg.Columns {
		pos[c.Status] = i
		view.Columns = append(view.Columns, Column{BoardColumn: c, Cards: []Card{}})
	}

	for _, n := range notes {
		if !strings.EqualFold(graph.TypeOf(n), cfg.TaskType) {
			continue
		}
		i, ok := pos[strings.TrimSpace(n.Metadata[StatusKey])]
		if !ok {
			continue
		}
		view.Columns[i].Cards = append(view.Columns[i].Cards, Card{
			ID:       n.ID,
			Title:    n.Title,
			Priority: n.Metadata[PriorityKey],
		})
	}
	return view
}
