package bookmark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/singleflight"
)

// ErrNotHTML is returned for pages that are not text/html.
var ErrNotHTML = errors.New("bookmark: not an html page")

// Options configure HTTPEnricher.
type Options struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
}

// HTTPEnricher labels URLs with the page's og:title or <title>, falling back
// to the host name. Concurrent lookups of one URL share a single request and
// successful labels are cached.
type HTTPEnricher struct {
	client    *http.Client
	maxBytes  int64
	userAgent string

	cache   map[string]string
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewHTTPEnricher creates an enricher with its own HTTP client.
func NewHTTPEnricher(opts Options) *HTTPEnricher {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 1 << 20
	}
	return &HTTPEnricher{
		client:    &http.Client{Timeout: opts.Timeout},
		maxBytes:  opts.MaxBytes,
		userAgent: opts.UserAgent,
		cache:     make(map[string]string),
	}
}

// Label implements Enricher.
func (e *HTTPEnricher) Label(ctx context.Context, rawURL string) (string, error) {
	if label, ok := e.cached(rawURL); ok {
		return label, nil
	}

	// Callers joining the flight share one fetch, so it must not end with
	// the first caller's context. The client timeout still bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	result, err, _ := e.group.Do(rawURL, func() (any, error) {
		if label, ok := e.cached(rawURL); ok {
			return label, nil
		}
		label, err := e.fetch(fetchCtx, rawURL)
		if err != nil {
			return "", err
		}
		e.cacheMu.Lock()
		e.cache[rawURL] = label
		e.cacheMu.Unlock()
		return label, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (e *HTTPEnricher) cached(rawURL string) (string, bool) {
	e.cacheMu.RLock()
	defer e.cacheMu.RUnlock()
	label, ok := e.cache[rawURL]
	return label, ok
}

func (e *HTTPEnricher) fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("bookmark: invalid url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("bookmark: create request: %w", err)
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("bookmark: fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("bookmark: fetch url: status %d", resp.StatusCode)
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != "" && mt != "text/html" && mt != "application/xhtml+xml" {
		return "", ErrNotHTML
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, e.maxBytes))
	if err != nil {
		return "", fmt.Errorf("bookmark: parse html: %w", err)
	}
	if title := pageTitle(doc); title != "" {
		return title, nil
	}
	return u.Hostname(), nil
}

// pageTitle prefers og:title over the <title> element.
func pageTitle(doc *html.Node) string {
	var title string
	for n := range doc.Descendants() {
		if n.Type != html.ElementNode {
			continue
		}
		switch n.DataAtom {
		case atom.Meta:
			if og := ogTitle(n); og != "" {
				return og
			}
		case atom.Title:
			if title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = collapse(n.FirstChild.Data)
			}
		}
	}
	return title
}

func ogTitle(n *html.Node) string {
	var isOG bool
	var content string
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "property", "name":
			isOG = isOG || strings.EqualFold(a.Val, "og:title")
		case "content":
			content = a.Val
		}
	}
	if !isOG {
		return ""
	}
	return collapse(content)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
