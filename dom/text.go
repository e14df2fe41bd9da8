package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// hiddenAtoms are elements whose text is never visible.
var hiddenAtoms = map[atom.Atom]struct{}{
	atom.Script:   {},
	atom.Style:    {},
	atom.Noscript: {},
	atom.Template: {},
	atom.Svg:      {},
	atom.Head:     {},
	atom.Iframe:   {},
	atom.Object:   {},
	atom.Canvas:   {},
}

// VisibleText concatenates the visible text nodes under n in document
// order, separated by single spaces, with all whitespace runs collapsed.
func VisibleText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		case html.ElementNode:
			if _, hidden := hiddenAtoms[n.DataAtom]; hidden {
				return
			}
			if _, ok := attr(n, "hidden"); ok {
				return
			}
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return Normalize(strings.Join(parts, " "))
}

// Normalize collapses every whitespace run in s to a single space and
// trims the ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
