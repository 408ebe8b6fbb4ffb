// Package views projects read-only views from a Graph Index: the styled
// graph, the table of contents, the contexts tree, backlinks and the board.
package views

import (
	"github.com/starford/now/internal/models"
)

// EdgeStyle is the drawing hint for one edge type.
type EdgeStyle struct {
	Color string  `json:"color" yaml:"color"`
	Width float64 `json:"width" yaml:"width"`
}

// Style maps edge types to their look. Types without an entry use Default.
type Style struct {
	Explicit EdgeStyle `json:"explicit" yaml:"explicit"`
	Default  EdgeStyle `json:"default" yaml:"default"`
}

// DefaultStyle returns the stock colors: indigo for explicit references,
// grey for everything else.
func DefaultStyle() Style {
	return Style{
		Explicit: EdgeStyle{Color: "#818cf8", Width: 2.5},
		Default:  EdgeStyle{Color: "#4b5563", Width: 1.5},
	}
}

func (s Style) forType(t models.EdgeType) EdgeStyle {
	if t == models.EdgeExplicit {
		return s.Explicit
	}
	return s.Default
}

// StyledEdge is an edge with its drawing hints.
type StyledEdge struct {
	models.Edge
	EdgeStyle
}

// GraphView is the payload of the graph view.
type GraphView struct {
	Nodes []models.Node `json:"nodes"`
	Edges []StyledEdge  `json:"edges"`
}

// Graph annotates every edge of idx with the color and width of its type.
func Graph(idx *models.GraphIndex, style Style) GraphView {
	view := GraphView{
		Nodes: append([]models.Node{}, idx.Nodes...),
		Edges: make([]StyledEdge, 0, len(idx.Edges)),
	}
	for _, e := range idx.Edges {
		view.Edges = append(view.Edges, StyledEdge{Edge: e, EdgeStyle: style.forType(e.Type)})
	}
	return view
}
