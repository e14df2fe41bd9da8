package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/use-agent/siteprofile/dom"
	"github.com/use-agent/siteprofile/models"
)

const maxFeatures = 20

var featureKeywords = []string{
	"features",
	"what you get",
	"why choose",
	"why use",
	"capabilities",
	"benefits",
	"how it works",
	"what we offer",
	"what's included",
}

var (
	sectionHeadings = cascadia.MustCompile("h1, h2, h3, h4")
	listItems       = cascadia.MustCompile("ul > li, ol > li")
	contentScopes   = cascadia.MustCompile("main, section, article")
)

// Features returns list items from sections headed by a feature keyword.
// When no such section exists it falls back to feature-length items
// (20-200 characters) of any list in the page content.
func Features(doc *dom.Document) models.Field[[]string] {
	var (
		items []string
		seen  = make(map[string]struct{})
		full  bool
	)

	doc.Doc.FindMatcher(sectionHeadings).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !containsAny(strings.ToLower(h.Text()), featureKeywords) || dom.IsBoilerplate(h) {
			return true
		}
		sectionOf(h, listItems).FindMatcher(listItems).EachWithBreak(func(_ int, li *goquery.Selection) bool {
			t := dom.Normalize(li.Text())
			if n := utf8.RuneCountInString(t); n < 3 || n > 200 {
				return true
			}
			items, full = distinct(items, seen, t, maxFeatures)
			return !full
		})
		return !full
	})
	if len(items) > 0 {
		return models.Found(items)
	}

	scope := doc.Doc.FindMatcher(contentScopes)
	if scope.Length() == 0 {
		scope = doc.Doc.Find("body")
	}
	scope.FindMatcher(listItems).EachWithBreak(func(_ int, li *goquery.Selection) bool {
		t := dom.Normalize(li.Text())
		if n := utf8.RuneCountInString(t); n <= 20 || n >= 200 {
			return true
		}
		if dom.IsBoilerplate(li) {
			return true
		}
		items, full = distinct(items, seen, t, maxFeatures)
		return !full
	})
	return foundIfAny(items)
}

// sectionOf returns the smallest ancestor of heading, at most four levels
// up and below <body>, that contains something matching m. On flat pages
// it returns the siblings between heading and the next heading.
func sectionOf(heading *goquery.Selection, m goquery.Matcher) *goquery.Selection {
	cur := heading.Parent()
	for depth := 0; depth < 4 && cur.Length() > 0; depth++ {
		if goquery.NodeName(cur) == "body" {
			break
		}
		if cur.FindMatcher(m).Length() > 0 {
			return cur
		}
		cur = cur.Parent()
	}
	return heading.NextUntilMatcher(sectionHeadings)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
