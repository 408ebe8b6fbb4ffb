// Package bookmark turns the last bare URL of a note into a labelled
// [title](url) bookmark.
package bookmark

import (
	"context"
	"regexp"
	"strings"

	"github.com/starford/now/internal/parser"
)

var bareURL = regexp.MustCompile(`https?://[^\s)\]]+`)

// Match is a bare URL found in note content.
type Match struct {
	URL    string
	Offset int
}

// Enricher finds a human readable label for a URL.
type Enricher interface {
	Label(ctx context.Context, rawURL string) (string, error)
}

// LastBareURL returns the last http(s) URL of content that is not already
// part of a Markdown link.
func LastBareURL(content string) (Match, bool) {
	type span struct{ from, to int }
	var links []span
	for tok := range parser.Tokens(content) {
		if tok.Kind == parser.TokenBookmark {
			links = append(links, span{tok.Offset, tok.Offset + tok.Len})
		}
	}

	var (
		last  Match
		found bool
	)
	for _, loc := range bareURL.FindAllStringIndex(content, -1) {
		inside := false
		for _, l := range links {
			if loc[0] >= l.from && loc[0] < l.to {
				inside = true
				break
			}
		}
		if !inside {
			last, found = Match{URL: content[loc[0]:loc[1]], Offset: loc[0]}, true
		}
	}
	return last, found
}

// Apply replaces the URL at m with [label](url).
func Apply(content string, m Match, label string) string {
	end := m.Offset + len(m.URL)
	if m.Offset < 0 || end > len(content) || content[m.Offset:end] != m.URL {
		return content
	}
	return content[:m.Offset] + "[" + escapeLabel(label) + "](" + m.URL + ")" + content[end:]
}

var labelEscaper = strings.NewReplacer(`[`, `\[`, `]`, `\]`, "\n", " ")

func escapeLabel(label string) string {
	return labelEscaper.Replace(strings.TrimSpace(label))
}
