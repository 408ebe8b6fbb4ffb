package parser

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/starford/now/internal/models"
)

// TokenKind identifies the annotation a Token was lexed from.
type TokenKind int

const (
	// TokenRef is an explicit page reference: @Name.
	TokenRef TokenKind = iota + 1
	// TokenTag is a hierarchical context tag: #a/b/c.
	TokenTag
	// TokenBookmark is a Markdown link: [label](url).
	TokenBookmark
)

func (k TokenKind) String() string {
	switch k {
	case TokenRef:
		return "ref"
	case TokenTag:
		return "tag"
	case TokenBookmark:
		return "bookmark"
	default:
		return "unknown"
	}
}

// Token is one annotation found in note content. Offset and Len are byte
// positions of the whole annotation (including the @, # or brackets).
type Token struct {
	Kind TokenKind
	// Value is the reference name, the normalised tag path ("a/b") or the bookmark label.
	Value string
	// Segments holds the tag path segments (tags only).
	Segments []string
	// URL is the link destination (bookmarks only).
	URL    string
	Offset int
	Len    int
}

// Tokens lexes content lazily. Fenced code blocks, inline code spans, bare
// URLs and link destinations are skipped; a backslash escapes @ and #.
func Tokens(content string) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		scanDocument(content, yield)
	}
}

// References yields the names of all @Name references, in order of appearance.
func References(content string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for tok := range Tokens(content) {
			if tok.Kind == TokenRef && !yield(tok.Value) {
				return
			}
		}
	}
}

// TagPaths yields the segments of every #a/b/c tag, in order of appearance.
func TagPaths(content string) iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		for tok := range Tokens(content) {
			if tok.Kind == TokenTag && !yield(tok.Segments) {
				return
			}
		}
	}
}

// Bookmarks returns every [label](url) link of content.
func Bookmarks(content string) []models.Bookmark {
	var out []models.Bookmark
	for tok := range Tokens(content) {
		if tok.Kind == TokenBookmark {
			out = append(out, models.Bookmark{Label: tok.Value, URL: tok.URL})
		}
	}
	return out
}

// scanDocument scans src one block at a time. Consecutive non-blank lines
// form a paragraph that is scanned as a whole, so code spans and links may
// wrap. Fenced code is skipped; blank lines, fences and headings end a
// paragraph.
func scanDocument(src string, yield func(Token) bool) bool {
	var (
		inFence   bool
		fenceChar byte
		fenceLen  int
		paraStart = -1
		paraEnd   int
	)
	flush := func() bool {
		if paraStart < 0 {
			return true
		}
		start := paraStart
		paraStart = -1
		return scanInline(src[start:paraEnd], start, yield)
	}

	for off := 0; off < len(src); {
		lineEnd := len(src)
		if i := strings.IndexByte(src[off:], '\n'); i >= 0 {
			lineEnd = off + i
		}
		line := src[off:lineEnd]

		switch ch, n, rest, isFence := fenceMarker(line); {
		case isFence:
			if !flush() {
				return false
			}
			switch {
			case !inFence:
				inFence, fenceChar, fenceLen = true, ch, n
			case ch == fenceChar && n >= fenceLen && strings.TrimSpace(rest) == "":
				inFence = false
			}
		case inFence:
		case strings.TrimSpace(line) == "":
			if !flush() {
				return false
			}
		case isHeading(line):
			if !flush() || !scanInline(line, off, yield) {
				return false
			}
		default:
			if paraStart < 0 {
				paraStart = off
			}
			paraEnd = lineEnd
		}
		off = lineEnd + 1
	}
	return flush()
}

// isHeading reports whether line is an ATX heading ("## Title").
func isHeading(line string) bool {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 {
		return false
	}
	n := runLength(trimmed, 0, '#')
	if n == 0 || n > 6 {
		return false
	}
	return n == len(trimmed) || trimmed[n] == ' ' || trimmed[n] == '\t'
}

// fenceMarker reports whether line opens or closes a fenced code block.
func fenceMarker(line string) (ch byte, n int, rest string, ok bool) {
	trimmed := line
	for i := 0; i < 3 && strings.HasPrefix(trimmed, " "); i++ {
		trimmed = trimmed[1:]
	}
	if trimmed == "" || (trimmed[0] != '`' && trimmed[0] != '~') {
		return 0, 0, "", false
	}
	ch = trimmed[0]
	for n < len(trimmed) && trimmed[n] == ch {
		n++
	}
	if n < 3 {
		return 0, 0, "", false
	}
	return ch, n, trimmed[n:], true
}

func scanInline(s string, base int, yield func(Token) bool) bool {
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			_, size := utf8.DecodeRuneInString(s[i+1:])
			i += 1 + size

		case c == '`':
			n := runLength(s, i, '`')
			if end := closingRun(s, i+n, n); end >= 0 {
				i = end + n
			} else {
				i += n
			}

		case c == '!' && i+1 < len(s) && s[i+1] == '[':
			if _, _, end, ok := matchLink(s, i+1); ok {
				i = end
			} else {
				i++
			}

		case c == '[':
			label, dest, end, ok := matchLink(s, i)
			if !ok {
				i++
				continue
			}
			tok := Token{Kind: TokenBookmark, Value: label, URL: dest, Offset: base + i, Len: end - i}
			if !yield(tok) {
				return false
			}
			if !scanInline(label, base+i+1, yield) {
				return false
			}
			i = end

		case c == '@' && !annotationBlocked(s, i):
			n := identLen(s, i+1)
			if n == 0 {
				i++
				continue
			}
			tok := Token{Kind: TokenRef, Value: s[i+1 : i+1+n], Offset: base + i, Len: 1 + n}
			if !yield(tok) {
				return false
			}
			i += 1 + n

		case c == '#' && !annotationBlocked(s, i):
			n := tagLen(s, i+1)
			segments := splitTagPath(s[i+1 : i+1+n])
			if len(segments) == 0 {
				i++
				continue
			}
			tok := Token{
				Kind:     TokenTag,
				Value:    strings.Join(segments, "/"),
				Segments: segments,
				Offset:   base + i,
				Len:      1 + n,
			}
			if !yield(tok) {
				return false
			}
			i += 1 + n

		case isASCIILetter(c) && !identBefore(s, i):
			if end, ok := matchURL(s, i); ok {
				i = end
				continue
			}
			// Consume the whole word so URL detection runs once per word.
			i += max(identLen(s, i), 1)

		default:
			_, size := utf8.DecodeRuneInString(s[i:])
			i += size
		}
	}
	return true
}

// annotationBlocked reports whether the @ or # at i is glued to a preceding
// word (mail@example.com, C#, &#123;) and therefore not an annotation.
func annotationBlocked(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return isIdentRune(r) || r == '&' || r == '@' || r == '/'
}

func identBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return isIdentRune(r)
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func identLen(s string, i int) int {
	j := i
	for j < len(s) {
		r, size := utf8.DecodeRuneInString(s[j:])
		if !isIdentRune(r) {
			break
		}
		j += size
	}
	return j - i
}

func tagLen(s string, i int) int {
	j := i
	for j < len(s) {
		r, size := utf8.DecodeRuneInString(s[j:])
		if r != '/' && !isIdentRune(r) {
			break
		}
		j += size
	}
	return j - i
}

func splitTagPath(raw string) []string {
	var out []string
	for _, seg := range strings.Split(raw, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func runLength(s string, i int, c byte) int {
	n := 0
	for i+n < len(s) && s[i+n] == c {
		n++
	}
	return n
}

// closingRun finds a backtick run of exactly n characters at or after i.
func closingRun(s string, i, n int) int {
	for i < len(s) {
		j := strings.IndexByte(s[i:], '`')
		if j < 0 {
			return -1
		}
		j += i
		m := runLength(s, j, '`')
		if m == n {
			return j
		}
		i = j + m
	}
	return -1
}

// matchLink matches [label](dest) starting at the '[' at i.
func matchLink(s string, i int) (label, dest string, end int, ok bool) {
	depth := 0
	j := i + 1
	for ; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
			continue
		case '[':
			depth++
			continue
		case ']':
		default:
			continue
		}
		if depth == 0 {
			break
		}
		depth--
	}
	if j >= len(s) || j+1 >= len(s) || s[j+1] != '(' {
		return "", "", 0, false
	}
	closeIdx := strings.IndexByte(s[j+2:], ')')
	if closeIdx < 0 {
		return "", "", 0, false
	}
	inner := strings.TrimSpace(s[j+2 : j+2+closeIdx])
	fields := strings.Fields(inner)
	if len(fields) == 0 {
		return "", "", 0, false
	}
	dest = strings.Trim(fields[0], "<>")
	return s[i+1 : j], dest, j + 2 + closeIdx + 1, true
}

// matchURL matches scheme://rest at i and returns the end of the URL.
func matchURL(s string, i int) (int, bool) {
	j := i
	for j < len(s) {
		c := s[j]
		if isASCIILetter(c) || (c >= '0' && c <= '9') || c == '+' || c == '-' || c == '.' {
			j++
			continue
		}
		break
	}
	if j == i || !strings.HasPrefix(s[j:], "://") {
		return 0, false
	}
	j += len("://")
	for j < len(s) {
		r, size := utf8.DecodeRuneInString(s[j:])
		if unicode.IsSpace(r) || strings.ContainsRune(`<>"')]`, r) {
			break
		}
		j += size
	}
	return j, true
}
