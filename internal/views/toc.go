package views

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/starford/now/internal/graph"
	"github.com/starford/now/internal/models"
)

// Entry is a note as listed in the TOC and contexts views.
type Entry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Group string `json:"group"`
}

// TOCView is the table of contents.
type TOCView struct {
	All      []Entry `json:"all"`
	Orphaned []Entry `json:"orphaned"`
}

// newCollator returns a collator for lang. Collators are not safe for
// concurrent use, so every projection gets its own.
func newCollator(lang language.Tag) *collate.Collator {
	return collate.New(lang, collate.IgnoreCase, collate.Numeric)
}

func sortEntries(c *collate.Collator, entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if n := c.CompareString(a.Title, b.Title); n != 0 {
			return n
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func entryOf(n models.Node) Entry {
	return Entry{ID: n.ID, Title: n.Label, Group: n.Group}
}

// TOC lists every note and the notes nothing links to, both sorted by
// title under the collation rules of lang with ties broken by id.
func TOC(idx *models.GraphIndex, lang language.Tag) TOCView {
	c := newCollator(lang)

	all := make([]Entry, 0, len(idx.Nodes))
	for _, n := range idx.Nodes {
		all = append(all, entryOf(n))
	}
	sortEntries(c, all)

	orphans := graph.Orphans(idx)
	orphaned := make([]Entry, 0, len(orphans))
	for _, n := range orphans {
		orphaned = append(orphaned, entryOf(n))
	}
	sortEntries(c, orphaned)

	return TOCView{All: all, Orphaned: orphaned}
}

// ContextNode is one level of the contexts view. Path is the full tag path
// ("proj/x") so clients can collapse each level on its own.
type ContextNode struct {
	Name     string        `json:"name"`
	Path     string        `json:"path"`
	Count    int           `json:"count"`
	Notes    []Entry       `json:"notes"`
	Children []ContextNode `json:"children"`
}

// Contexts flattens the tag tree into ordered levels. Count is the number of
// distinct notes at or below a level. Ids that are not in the node set are
// skipped.
func Contexts(idx *models.GraphIndex, lang language.Tag) []ContextNode {
	c := newCollator(lang)
	byID := make(map[string]models.Node, len(idx.Nodes))
	for _, n := range idx.Nodes {
		byID[n.ID] = n
	}
	nodes, _ := contextLevel(c, byID, idx.Contexts, "")
	return nodes
}

func contextLevel(c *collate.Collator, byID map[string]models.Node, tree models.TagTree, prefix string) ([]ContextNode, map[string]struct{}) {
	keys := graph.SortedKeys(tree)
	c.SortStrings(keys)

	out := make([]ContextNode, 0, len(keys))
	seen := map[string]struct{}{}
	for _, key := range keys {
		tn := tree[key]
		path := key
		if prefix != "" {
			path = prefix + "/" + key
		}

		node := ContextNode{Name: key, Path: path, Notes: []Entry{}}
		under := map[string]struct{}{}
		for _, id := range tn.Notes {
			n, ok := byID[id]
			if !ok {
				continue
			}
			node.Notes = append(node.Notes, entryOf(n))
			under[id] = struct{}{}
		}
		sortEntries(c, node.Notes)

		children, childIDs := contextLevel(c, byID, tn.Children, path)
		node.Children = children
		for id := range childIDs {
			under[id] = struct{}{}
		}
		node.Count = len(under)

		for id := range under {
			seen[id] = struct{}{}
		}
		out = append(out, node)
	}
	return out, seen
}

// Backlink is an incoming edge as shown under a note.
type Backlink struct {
	From   string          `json:"from"`
	Title  string          `json:"title"`
	Type   models.EdgeType `json:"type"`
	Marker string          `json:"marker"`
}

// Backlink markers.
const (
	MarkerExplicit = "@"
	MarkerDerived  = "·"
)

// Backlinks lists the edges pointing at id with the source note's title.
func Backlinks(idx *models.GraphIndex, id string) []Backlink {
	return BacklinksOf(idx, graph.Backlinks(idx, id))
}

// BacklinksOf labels incoming edges read from elsewhere, such as the SQLite
// index, with the titles of idx. Sources missing from idx get an empty title.
func BacklinksOf(idx *models.GraphIndex, edges []models.Edge) []Backlink {
	titles := make(map[string]string, len(idx.Nodes))
	for _, n := range idx.Nodes {
		titles[n.ID] = n.Label
	}
	out := make([]Backlink, 0, len(edges))
	for _, e := range edges {
		marker := MarkerDerived
		if e.Type == models.EdgeExplicit {
			marker = MarkerExplicit
		}
		out = append(out, Backlink{From: e.From, Title: titles[e.From], Type: e.Type, Marker: marker})
	}
	return out
}
