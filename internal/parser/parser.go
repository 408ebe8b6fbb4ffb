// Package parser reads and writes note files and extracts @references,
// #context tags and [label](url) bookmarks from note content.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/now/internal/models"
)

// UntitledTitle is used for notes without a leading "# Title" heading.
const UntitledTitle = "Untitled"

// FrontmatterError reports front matter that could not be decoded. The note
// is still usable: it falls back to empty metadata.
type FrontmatterError struct {
	ID  string
	Err error
}

func (e *FrontmatterError) Error() string {
	return fmt.Sprintf("parser: front matter of %s: %v", e.ID, e.Err)
}

func (e *FrontmatterError) Unwrap() error { return e.Err }

// ParseNote decodes a note file. The returned note is never nil; a non-nil
// error is always a *FrontmatterError and only meant for logging.
func ParseNote(id string, data []byte) (*models.Note, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	note := &models.Note{ID: id, Title: UntitledTitle, Metadata: map[string]string{}}

	var fmErr error
	rest := text
	if block, body, ok := splitFrontmatter(text); ok {
		meta, err := decodeMetadata(block)
		if err != nil {
			fmErr = &FrontmatterError{ID: id, Err: err}
		} else {
			note.Metadata = meta
			rest = body
		}
	}

	rest = strings.TrimLeft(rest, "\n")
	if title, body, ok := splitTitle(rest); ok {
		note.Title = title
		rest = body
	}
	note.Content = strings.TrimSpace(rest)
	return note, fmErr
}

// RenderNote encodes a note the way ParseNote reads it back: optional front
// matter, the "# Title" heading, then the content.
func RenderNote(n *models.Note) ([]byte, error) {
	var b bytes.Buffer
	if len(n.Metadata) > 0 {
		out, err := yaml.Marshal(n.Metadata)
		if err != nil {
			return nil, fmt.Errorf("parser: encode metadata: %w", err)
		}
		b.WriteString("---\n")
		b.Write(out)
		b.WriteString("---\n\n")
	}
	title := strings.Join(strings.Fields(n.Title), " ")
	if title == "" {
		title = UntitledTitle
	}
	b.WriteString("# ")
	b.WriteString(title)
	b.WriteString("\n\n")
	content := strings.TrimSpace(n.Content)
	if content != "" {
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.Bytes(), nil
}

// splitFrontmatter separates a leading ---/--- block from the rest of text.
func splitFrontmatter(text string) (block, body string, ok bool) {
	const delim = "---"
	if !strings.HasPrefix(text, delim+"\n") {
		return "", text, false
	}
	rest := text[len(delim)+1:]
	if strings.HasPrefix(rest, delim) && closesBlock(rest[len(delim):]) {
		return "", afterLine(rest), true
	}
	for off := 0; ; {
		idx := strings.Index(rest[off:], "\n"+delim)
		if idx < 0 {
			return "", text, false
		}
		start := off + idx
		tail := rest[start+1+len(delim):]
		if closesBlock(tail) {
			return rest[:start], afterLine(rest[start+1:]), true
		}
		off = start + 1
	}
}

func closesBlock(tail string) bool {
	line, _, _ := strings.Cut(tail, "\n")
	return strings.TrimSpace(line) == ""
}

func afterLine(s string) string {
	if _, after, found := strings.Cut(s, "\n"); found {
		return after
	}
	return ""
}

// splitTitle takes a leading "# Title" line off body.
func splitTitle(body string) (title, rest string, ok bool) {
	line, after, _ := strings.Cut(body, "\n")
	if len(line) < 2 || line[0] != '#' || (line[1] != ' ' && line[1] != '\t') {
		return "", body, false
	}
	return strings.TrimSpace(line[1:]), after, true
}

// decodeMetadata flattens a YAML mapping into string values. Sequences are
// joined with ", " and nested mappings are kept as flow YAML.
func decodeMetadata(block string) (map[string]string, error) {
	out := map[string]string{}
	if strings.TrimSpace(block) == "" {
		return out, nil
	}
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal([]byte(block), &raw); err != nil {
		return nil, err
	}
	for k, node := range raw {
		v, err := nodeString(&node)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

func nodeString(n *yaml.Node) (string, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return nodeString(n.Alias)
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return "", nil
		}
		return n.Value, nil
	case yaml.SequenceNode:
		parts := make([]string, 0, len(n.Content))
		for _, child := range n.Content {
			s, err := nodeString(child)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ", "), nil
	default:
		flow := *n
		flow.Style = yaml.FlowStyle
		out, err := yaml.Marshal(&flow)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(out)), nil
	}
}
