package extract

import (
	"net"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/use-agent/siteprofile/dom"
	"github.com/use-agent/siteprofile/models"
)

// titleSeparators split "Acme | Rockets for everyone" style titles.
var titleSeparators = regexp.MustCompile(`\s+[|\-–—·•:]\s+|\s*[|–—·•]\s*|:\s+`)

// legalSuffix strips corporate and page suffixes from a brand.
var legalSuffix = regexp.MustCompile(`(?i)[\s,]+(inc\.?|llc\.?|ltd\.?|limited|gmbh|corp\.?|corporation|co\.|s\.?a\.?s?|plc|official (web)?site|home ?page)$`)

// genericSegments are title segments that are never the brand.
var genericSegments = map[string]struct{}{
	"home":          {},
	"homepage":      {},
	"welcome":       {},
	"index":         {},
	"untitled":      {},
	"official site": {},
}

// secondLevelTLDs are registry labels under a country code ("acme.co.uk").
var secondLevelTLDs = map[string]struct{}{
	"co": {}, "com": {}, "org": {}, "net": {}, "ac": {}, "gov": {}, "edu": {},
}

var topHeadings = cascadia.MustCompile("h1, h2")

const maxBrandWords = 4

// CompanyName tries, in order: og:site_name, application-name, the
// brand segment of <title>, a short heading near the top, and finally the
// site host.
func CompanyName(doc *dom.Document) models.Field[string] {
	if doc.OpenGraph != nil {
		if n := cleanBrand(doc.OpenGraph.SiteName); n != "" {
			return models.Found(n)
		}
	}
	if n := cleanBrand(doc.Meta("og:site_name")); n != "" {
		return models.Found(n)
	}
	if n := cleanBrand(doc.Meta("application-name")); n != "" {
		return models.Found(n)
	}
	if n := brandFromTitle(doc.Title(), doc.Host()); n != "" {
		return models.Found(n)
	}
	if n := brandFromHeadings(doc.Doc); n != "" {
		return models.Found(n)
	}
	if n := brandFromHost(doc.Host()); n != "" {
		return models.Found(n)
	}
	return models.NotFound[string]()
}

// brandFromTitle picks the brand-like segment of a title: the segment
// naming the host if any, else the first short one, else the last short
// one ("Ship faster | Acme").
func brandFromTitle(title, host string) string {
	if title == "" {
		return ""
	}
	var segments []string
	for _, seg := range titleSeparators.Split(title, -1) {
		if seg = cleanBrand(seg); seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) == 0 {
		return ""
	}
	if label := hostLabel(host); label != "" {
		for _, seg := range segments {
			if strings.EqualFold(strings.ReplaceAll(seg, " ", ""), label) {
				return seg
			}
		}
	}
	if wordCount(segments[0]) <= maxBrandWords {
		return segments[0]
	}
	if last := segments[len(segments)-1]; len(segments) > 1 && wordCount(last) <= maxBrandWords {
		return last
	}
	return ""
}

// brandFromHeadings returns the shortest brand-like text among the first
// few top-level headings outside site chrome.
func brandFromHeadings(doc *goquery.Document) string {
	heads := doc.FindMatcher(topHeadings)
	if heads.Length() > 3 {
		heads = heads.Slice(0, 3)
	}
	best := ""
	heads.Each(func(_ int, s *goquery.Selection) {
		t := cleanBrand(dom.Normalize(s.Text()))
		if t == "" || wordCount(t) > 3 || utf8.RuneCountInString(t) > 40 || !brandLike(t) {
			return
		}
		if best == "" || len(t) < len(best) {
			best = t
		}
	})
	return best
}

// brandFromHost capitalizes the registrable label of host ("www.acme.io"
// -> "Acme"). IP addresses and single-label hosts yield "".
func brandFromHost(host string) string {
	label := hostLabel(host)
	if label == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(label)
	return string(unicode.ToUpper(r)) + label[size:]
}

func hostLabel(host string) string {
	if host == "" || net.ParseIP(host) != nil {
		return ""
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return ""
	}
	i := len(labels) - 2
	if _, ok := secondLevelTLDs[labels[i]]; ok && i > 0 && len(labels[len(labels)-1]) == 2 {
		i--
	}
	return labels[i]
}

// cleanBrand trims, strips legal/page suffixes and rejects generic or
// sentence-length strings.
func cleanBrand(s string) string {
	s = dom.Normalize(s)
	for {
		stripped := strings.TrimSpace(legalSuffix.ReplaceAllString(s, ""))
		if stripped == s {
			break
		}
		s = stripped
	}
	s = strings.Trim(s, " |-–—:·•,")
	if s == "" {
		return ""
	}
	if _, generic := genericSegments[strings.ToLower(s)]; generic {
		return ""
	}
	if utf8.RuneCountInString(s) > 60 {
		return ""
	}
	return s
}

// brandLike accepts capitalized or all-caps text.
func brandLike(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r) || unicode.IsDigit(r)
}

func wordCount(s string) int { return len(strings.Fields(s)) }
