// Package models defines the domain types for Now.
package models

import (
	"encoding/json"
	"time"
)

// Note is a Markdown file in the vault, split into title, body and metadata.
type Note struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// NoteMetadata describes a note file without its content.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EdgeType distinguishes explicit references from derived edges.
type EdgeType string

const (
	EdgeExplicit EdgeType = "explicit"
	EdgeContext  EdgeType = "context"
)

// Edge is a directed link between two notes of the current note set.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Type EdgeType `json:"type"`
}

// Node is a graph vertex for one note.
type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Group string `json:"group"`
}

// TagNode is one segment of the nested context tree.
type TagNode struct {
	Notes    []string `json:"notes"`
	Children TagTree  `json:"children"`
}

// NewTagNode returns an empty node with non-nil collections.
func NewTagNode() *TagNode {
	return &TagNode{Notes: []string{}, Children: TagTree{}}
}

// MarshalJSON keeps empty collections as [] and {} instead of null.
func (n *TagNode) MarshalJSON() ([]byte, error) {
	type alias TagNode
	out := alias(*n)
	if out.Notes == nil {
		out.Notes = []string{}
	}
	if out.Children == nil {
		out.Children = TagTree{}
	}
	return json.Marshal(out)
}

// TagTree maps a tag segment to its node.
type TagTree map[string]*TagNode

// GraphIndex is the derived, in-memory view of the note set.
// It is rebuilt in full from the notes and never persisted as the source of truth.
type GraphIndex struct {
	Nodes    []Node  `json:"nodes"`
	Edges    []Edge  `json:"edges"`
	Contexts TagTree `json:"contexts"`
}

// Bookmark is a Markdown link found in a note body.
type Bookmark struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}
