package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/use-agent/siteprofile/dom"
	"github.com/use-agent/siteprofile/models"
)

const maxTeam = 10

// teamHeading matches people-section headings on whole words, so "teams"
// and "steam" stay out.
var teamHeading = regexp.MustCompile(`(?i)\b(?:team|about us|founders?|leadership|our people|who we are|management|meet the)\b`)

var roleRe = regexp.MustCompile(`(?i)\b(co-?founder|founder|ceo|cto|coo|cfo|cpo|chief [a-z]+ officer|president)\b`)

// nameWord is one capitalized name word: Jane, O'Neil, McDonald,
// Smith-Jones.
const nameWord = `[A-Z](?:[a-z]+|['’][A-Z][a-z]+)(?:[A-Z][a-z]+)?(?:-[A-Z][a-z]+)?`

// personName is two or three name words, allowing a middle initial.
var personName = regexp.MustCompile(`^` + nameWord + `(?:\s[A-Z]\.)?(?:\s` + nameWord + `){1,2}$`)

// personNameInText finds name candidates inside running text.
var personNameInText = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s[A-Z]\.)?\s[A-Z][a-z]+\b`)

var (
	nameCandidates = cascadia.MustCompile("h3, h4, h5, h6, strong, b, figcaption, p, span, li, a, div")
	nameHolders    = cascadia.MustCompile("h2, h3, h4, h5, h6, strong, b, figcaption, p, span, a")
	roleHolders    = cascadia.MustCompile("p, span, small, em, i, h4, h5, h6, div, figcaption")
)

// nameStopWords never appear in a person's name on a marketing page.
var nameStopWords = toSet(
	"about", "account", "advisors", "advisory", "all", "and", "apply", "blog", "board",
	"book", "careers", "case", "chief", "contact", "cookie", "cookies", "customer",
	"customers", "demo", "docs", "engineering", "executive", "features", "founder", "free",
	"get", "head", "help", "hiring", "home", "how", "inc", "integrations", "investors",
	"jobs", "join", "learn", "log", "marketing", "meet", "more", "new", "officer", "open",
	"our", "partners", "people", "policy", "positions", "press", "pricing", "privacy",
	"product", "read", "request", "resources", "roles", "sales", "security", "see",
	"service", "services", "sign", "solutions", "started", "studies", "success", "support",
	"team", "terms", "the", "trial", "try", "us", "view", "watch", "what", "who", "why",
	"with", "your", "january", "february", "march", "april", "may", "june", "july", "august",
	"september", "october", "november", "december", "monday", "tuesday", "wednesday",
	"thursday", "friday", "saturday", "sunday", "san", "los", "united", "states", "north",
	"south", "east", "west", "silicon", "valley", "york", "kingdom",
)

// Team returns person names found in people-keyword sections and in
// cards carrying a founder/executive role.
func Team(doc *dom.Document) models.Field[[]string] {
	var (
		names []string
		seen  = make(map[string]struct{})
		full  bool
	)
	add := func(candidate string) bool {
		if isPersonName(candidate) {
			names, full = distinct(names, seen, candidate, maxTeam)
		}
		return !full
	}

	doc.Doc.FindMatcher(sectionHeadings).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !teamHeading.MatchString(h.Text()) || dom.IsBoilerplate(h) {
			return true
		}
		section := sectionOf(h, nameCandidates)
		before := len(names)
		section.FindMatcher(nameCandidates).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if dom.IsBoilerplate(s) {
				return true
			}
			return add(ownText(s))
		})
		if len(names) == before && !full {
			// No element holds a bare name; scan the section's text.
			for _, m := range personNameInText.FindAllString(dom.Normalize(section.Text()), -1) {
				if !add(m) {
					break
				}
			}
		}
		return !full
	})

	if !full {
		doc.Doc.FindMatcher(roleHolders).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			t := ownText(s)
			if len(t) > 60 || !roleRe.MatchString(t) || dom.IsBoilerplate(s) {
				return true
			}
			// The role sits next to the name inside a card.
			s.Parent().FindMatcher(nameHolders).EachWithBreak(func(_ int, c *goquery.Selection) bool {
				return add(ownText(c))
			})
			return !full
		})
	}

	return foundIfAny(names)
}

// isPersonName applies the name shape and stop-word filters.
func isPersonName(s string) bool {
	if !personName.MatchString(s) {
		return false
	}
	for _, w := range strings.Fields(s) {
		if _, stop := nameStopWords[strings.ToLower(strings.TrimSuffix(w, "."))]; stop {
			return false
		}
	}
	return true
}

// ownText is the normalized text of s when s has no element children
// carrying text of their own, else "".
func ownText(s *goquery.Selection) string {
	if s.Children().Length() > 0 {
		var nested bool
		s.Children().EachWithBreak(func(_ int, c *goquery.Selection) bool {
			if goquery.NodeName(c) != "br" && strings.TrimSpace(c.Text()) != "" {
				nested = true
			}
			return !nested
		})
		if nested {
			return ""
		}
	}
	return dom.Normalize(s.Text())
}

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
