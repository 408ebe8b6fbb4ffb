// Package render turns note content into HTML. @Name references and #tags
// become links that clients route back into the vault.
package render

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/starford/now/internal/parser"
)

// Link schemes emitted for annotations.
const (
	SchemeNote    = "note:"
	SchemeNew     = "new:"
	SchemeContext = "context:"
)

// ResolveFunc maps a reference name to a note id.
type ResolveFunc func(name string) (id string, ok bool)

var mdRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML renders content as GitHub flavored Markdown after linking its
// annotations. A nil resolve treats every reference as unresolved.
func HTML(content string, resolve ResolveFunc) (string, error) {
	var b bytes.Buffer
	if err := mdRenderer.Convert([]byte(Annotate(content, resolve)), &b); err != nil {
		return "", fmt.Errorf("render: convert: %w", err)
	}
	return b.String(), nil
}

// Annotate rewrites references and tags as Markdown links. Resolved
// references point at note:<id>, unresolved ones at new:<name> so the
// target can be created. Annotations inside link labels stay text.
func Annotate(content string, resolve ResolveFunc) string {
	var (
		b        strings.Builder
		last     int
		labelEnd int
	)
	for tok := range parser.Tokens(content) {
		if tok.Kind == parser.TokenBookmark {
			labelEnd = tok.Offset + tok.Len
			continue
		}
		if tok.Offset < labelEnd {
			continue
		}

		var href string
		switch tok.Kind {
		case parser.TokenRef:
			href = SchemeNew + url.PathEscape(tok.Value)
			if resolve != nil {
				if id, ok := resolve(tok.Value); ok {
					href = SchemeNote + escapePath(id)
				}
			}
		case parser.TokenTag:
			href = SchemeContext + escapePath(tok.Value)
		default:
			continue
		}

		b.WriteString(content[last:tok.Offset])
		b.WriteString("[")
		b.WriteString(content[tok.Offset : tok.Offset+tok.Len])
		b.WriteString("](")
		b.WriteString(href)
		b.WriteString(")")
		last = tok.Offset + tok.Len
	}
	b.WriteString(content[last:])
	return b.String()
}

func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
