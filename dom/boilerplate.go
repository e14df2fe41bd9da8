package dom

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// boilerplateTags are semantic containers for site chrome.
var boilerplateTags = map[string]struct{}{
	"nav":    {},
	"footer": {},
	"aside":  {},
	"header": {},
}

// boilerplateTokens are class/id tokens that indicate navigation, footers
// and overlays. Matched against whole tokens so "leadership" never hits
// "ad" and "headline" never hits "header".
var boilerplateTokens = map[string]struct{}{
	"nav":        {},
	"navbar":     {},
	"navigation": {},
	"menu":       {},
	"footer":     {},
	"header":     {},
	"breadcrumb": {},
	"sidebar":    {},
	"cookie":     {},
	"cookies":    {},
	"consent":    {},
	"banner":     {},
	"modal":      {},
	"popup":      {},
	"share":      {},
	"social":     {},
	"legal":      {},
}

// IsBoilerplate reports whether s or any ancestor below <body> is site
// chrome: a nav/footer/aside/header element, an ARIA navigation or
// contentinfo landmark, or an element with a boilerplate class/id token.
func IsBoilerplate(s *goquery.Selection) bool {
	for cur := s; cur.Length() > 0; cur = cur.Parent() {
		tag := goquery.NodeName(cur)
		if tag == "body" || tag == "html" || tag == "#document" {
			return false
		}
		if isChrome(cur, tag) {
			return true
		}
	}
	return false
}

func isChrome(s *goquery.Selection, tag string) bool {
	if _, ok := boilerplateTags[tag]; ok {
		return true
	}
	switch strings.ToLower(s.AttrOr("role", "")) {
	case "navigation", "contentinfo", "banner", "dialog":
		return true
	}
	for _, tok := range classIDTokens(s) {
		if _, ok := boilerplateTokens[tok]; ok {
			return true
		}
	}
	return false
}

// classIDTokens splits the class and id attributes of s into lowercase
// alphanumeric tokens ("site-footer__links" -> site, footer, links).
func classIDTokens(s *goquery.Selection) []string {
	combined := strings.ToLower(s.AttrOr("class", "") + " " + s.AttrOr("id", ""))
	return strings.FieldsFunc(combined, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
