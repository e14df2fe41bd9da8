package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/siteprofile/dom"
	"github.com/use-agent/siteprofile/models"
)

var emailRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

// phoneRe is deliberately narrow: optional country code, optional area
// code in parentheses, then two to five digit groups.
var phoneRe = regexp.MustCompile(`(?:\+\d{1,3}[\s.-]?)?(?:\(\d{1,4}\)[\s.-]?)?\d{2,4}(?:[\s.-]\d{2,4}){1,4}`)

var yearRange = regexp.MustCompile(`^(?:19|20)\d{2}\s?[-–.]\s?(?:19|20)\d{2}$`)

// assetExtensions rule out retina image names like "logo@2x.png".
var assetExtensions = toSet("png", "jpg", "jpeg", "gif", "svg", "webp", "avif", "ico", "css", "js")

// Contact returns the first email and phone number on the page. mailto:
// and tel: links win over matches in the text.
func Contact(doc *dom.Document) models.Field[models.ContactInfo] {
	var email, phone string

	doc.Doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		scheme, rest, ok := strings.Cut(href, ":")
		if !ok {
			return true
		}
		switch strings.ToLower(scheme) {
		case "mailto":
			if email == "" {
				email = cleanEmail(rest)
			}
		case "tel":
			if phone == "" {
				phone = cleanPhone(rest)
			}
		}
		return email == "" || phone == ""
	})

	if email == "" {
		for _, m := range emailRe.FindAllString(doc.Text, -1) {
			if isEmail(m) {
				email = m
				break
			}
		}
	}
	if phone == "" {
		for _, m := range phoneRe.FindAllString(doc.Text, -1) {
			if p := cleanPhone(m); p != "" && plausiblePhone(p) {
				phone = p
				break
			}
		}
	}

	if email == "" && phone == "" {
		return models.NotFound[models.ContactInfo]()
	}
	info := models.ContactInfo{
		Email: models.NotFound[string](),
		Phone: models.NotFound[string](),
	}
	if email != "" {
		info.Email = models.Found(email)
	}
	if phone != "" {
		info.Phone = models.Found(phone)
	}
	return models.Found(info)
}

// cleanEmail turns a mailto: payload into an address, or "".
func cleanEmail(raw string) string {
	raw, _, _ = strings.Cut(raw, "?")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	raw = strings.TrimSpace(raw)
	if first, _, found := strings.Cut(raw, ","); found {
		raw = first
	}
	if !isEmail(raw) || emailRe.FindString(raw) != raw {
		return ""
	}
	return raw
}

func isEmail(s string) bool {
	at := strings.LastIndexByte(s, '@')
	if at <= 0 {
		return false
	}
	dot := strings.LastIndexByte(s, '.')
	if dot < at {
		return false
	}
	_, asset := assetExtensions[strings.ToLower(s[dot+1:])]
	return !asset
}

// cleanPhone trims a tel: payload or text match and checks it holds 7-15
// digits, the E.164 bounds.
func cleanPhone(raw string) string {
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	raw = dom.Normalize(raw)
	digits := 0
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case strings.ContainsRune("+-.() /", r):
		default:
			return ""
		}
	}
	if digits < 7 || digits > 15 {
		return ""
	}
	return raw
}

// plausiblePhone filters text matches that are more likely dates, years
// or prices: short numbers need a "+" or "(" to count.
func plausiblePhone(p string) bool {
	if yearRange.MatchString(p) {
		return false
	}
	if strings.ContainsAny(p, "+(") {
		return true
	}
	digits := 0
	for _, r := range p {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 10
}
