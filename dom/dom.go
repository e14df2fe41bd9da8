// Package dom turns raw markup into the read-only document every field
// extractor consumes: a goquery tree, parsed OpenGraph tags and a
// normalized plain-text view.
package dom

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
	"golang.org/x/net/html"
)

// Document is a parsed page. It is built once per request and shared by
// all extractors; nothing may mutate it after Parse returns.
type Document struct {
	// Doc is the goquery view over the parsed tree.
	Doc *goquery.Document

	// Text is the normalized visible text in document order.
	Text string

	// OpenGraph holds og:* meta tags. Never nil.
	OpenGraph *opengraph.OpenGraph

	// URL is the page URL after redirects; nil if it did not parse.
	URL *url.URL

	// Bytes is the size of the original markup.
	Bytes int
}

// Parse builds a Document from rawHTML. It never fails: malformed markup
// degrades to whatever tree the HTML5 parsing algorithm recovers.
func Parse(rawHTML, pageURL string) *Document {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		// Only reader errors reach here; a strings.Reader has none, but keep
		// an empty tree so callers never see nil.
		slog.Warn("dom: parse failed, using empty document", "url", pageURL, "error", err)
		root = &html.Node{Type: html.DocumentNode}
	}

	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(strings.NewReader(rawHTML)); err != nil {
		slog.Debug("dom: opengraph parse incomplete", "url", pageURL, "error", err)
	}

	var u *url.URL
	if parsed, err := url.Parse(pageURL); err == nil && parsed.Host != "" {
		u = parsed
	}

	doc := goquery.NewDocumentFromNode(root)
	doc.Url = u

	return &Document{
		Doc:       doc,
		Text:      VisibleText(root),
		OpenGraph: og,
		URL:       u,
		Bytes:     len(rawHTML),
	}
}

// Meta returns the trimmed content of the first <meta> whose name or
// property equals key (case-insensitive), or "".
func (d *Document) Meta(key string) string {
	var found string
	d.Doc.Find("meta[content]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name := s.AttrOr("name", s.AttrOr("property", ""))
		if !strings.EqualFold(strings.TrimSpace(name), key) {
			return true
		}
		if c := strings.TrimSpace(s.AttrOr("content", "")); c != "" {
			found = c
			return false
		}
		return true
	})
	return found
}

// Title returns the normalized document title, or "". Titles inside
// inline SVG or MathML are icon labels and are skipped.
func (d *Document) Title() string {
	var title string
	d.Doc.Find("title").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Nodes[0].Namespace != "" {
			return true
		}
		title = Normalize(s.Text())
		return false
	})
	return title
}

// Host returns the page host without a leading "www.", or "".
func (d *Document) Host() string {
	if d.URL == nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(d.URL.Hostname()), "www.")
}
