// Package graph builds the Graph Index from a note set. Build is a pure
// function: the same notes always produce the same index.
package graph

import (
	"sort"
	"strings"

	"github.com/starford/now/internal/models"
	"github.com/starford/now/internal/parser"
)

// DefaultGroup is the node group of notes without a type in their metadata.
const DefaultGroup = "note"

// Metadata keys that set a node's group; the second is the legacy spelling.
var groupKeys = []string{"type", "typ"}

// Option configures Build.
type Option func(*builder)

// WithContextEdges adds a derived "context" edge from every note sharing a
// tag leaf to the first note that carried the tag.
func WithContextEdges() Option {
	return func(b *builder) { b.contextEdges = true }
}

// WithDefaultGroup overrides DefaultGroup.
func WithDefaultGroup(group string) Option {
	return func(b *builder) {
		if group != "" {
			b.defaultGroup = group
		}
	}
}

type builder struct {
	contextEdges bool
	defaultGroup string

	idx  *models.GraphIndex
	seen map[models.Edge]struct{}
}

// Build produces the Graph Index for notes. Notes are visited in order;
// a repeated id keeps its first occurrence.
func Build(notes []models.Note, opts ...Option) *models.GraphIndex {
	b := &builder{
		defaultGroup: DefaultGroup,
		idx: &models.GraphIndex{
			Nodes:    make([]models.Node, 0, len(notes)),
			Edges:    []models.Edge{},
			Contexts: models.TagTree{},
		},
		seen: make(map[models.Edge]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	resolver := NewResolver(notes)
	ids := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		if _, dup := ids[n.ID]; dup {
			continue
		}
		ids[n.ID] = struct{}{}
		b.idx.Nodes = append(b.idx.Nodes, models.Node{ID: n.ID, Label: n.Title, Group: b.group(n)})

		for tok := range parser.Tokens(n.Content) {
			switch tok.Kind {
			case parser.TokenRef:
				if to, ok := resolver.Resolve(tok.Value); ok && to != n.ID {
					b.addEdge(models.Edge{From: n.ID, To: to, Type: models.EdgeExplicit})
				}
			case parser.TokenTag:
				insertTag(b.idx.Contexts, tok.Segments, n.ID)
			}
		}
	}

	if b.contextEdges {
		b.deriveContextEdges(b.idx.Contexts)
	}
	return b.idx
}

func (b *builder) group(n models.Note) string {
	if g := TypeOf(n); g != "" {
		return g
	}
	return b.defaultGroup
}

// TypeOf returns the note's type from its metadata, or "" when unset.
func TypeOf(n models.Note) string {
	for _, k := range groupKeys {
		if g := strings.TrimSpace(n.Metadata[k]); g != "" {
			return g
		}
	}
	return ""
}

func (b *builder) addEdge(e models.Edge) {
	if _, ok := b.seen[e]; ok {
		return
	}
	b.seen[e] = struct{}{}
	b.idx.Edges = append(b.idx.Edges, e)
}

// insertTag walks or creates one node per segment and records id on the leaf once.
func insertTag(tree models.TagTree, segments []string, id string) {
	level := tree
	var node *models.TagNode
	for _, seg := range segments {
		next, ok := level[seg]
		if !ok {
			next = models.NewTagNode()
			level[seg] = next
		}
		node = next
		level = next.Children
	}
	if node == nil {
		return
	}
	for _, existing := range node.Notes {
		if existing == id {
			return
		}
	}
	node.Notes = append(node.Notes, id)
}

func (b *builder) deriveContextEdges(tree models.TagTree) {
	for _, key := range SortedKeys(tree) {
		node := tree[key]
		if len(node.Notes) > 1 {
			hub := node.Notes[0]
			for _, id := range node.Notes[1:] {
				b.addEdge(models.Edge{From: id, To: hub, Type: models.EdgeContext})
			}
		}
		b.deriveContextEdges(node.Children)
	}
}

// SortedKeys returns the segment names of one tree level in byte order.
func SortedKeys(tree models.TagTree) []string {
	keys := make([]string, 0, len(tree))
	for k := range tree {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Backlinks returns the edges pointing at id.
func Backlinks(idx *models.GraphIndex, id string) []models.Edge {
	var out []models.Edge
	for _, e := range idx.Edges {
		if e.To == id {
			out = append(out, e)
		}
	}
	return out
}

// Orphans returns, in node order, the nodes without any incoming edge.
func Orphans(idx *models.GraphIndex) []models.Node {
	linked := make(map[string]struct{}, len(idx.Edges))
	for _, e := range idx.Edges {
		linked[e.To] = struct{}{}
	}
	var out []models.Node
	for _, n := range idx.Nodes {
		if _, ok := linked[n.ID]; !ok {
			out = append(out, n)
		}
	}
	return out
}

// Lookup returns the tree node at path ("a/b"), if present.
func Lookup(tree models.TagTree, path string) (*models.TagNode, bool) {
	var node *models.TagNode
	level := tree
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		next, ok := level[seg]
		if !ok {
			return nil, false
		}
		node = next
		level = next.Children
	}
	return node, node != nil
}
