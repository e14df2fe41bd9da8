package fetcher

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Thresholds tune when a static result is judged to need rendering.
// They are heuristics validated against real sites, not a contract.
type Thresholds struct {
	// MinTextChars: less visible body text than this escalates.
	MinTextChars int

	// MinTextRatio: visible text / markup bytes below this escalates
	// (applied only to pages larger than 20 KB).
	MinTextRatio float64

	// MaxScripts / ScriptTextChars: more than MaxScripts <script> tags
	// together with less than ScriptTextChars of text escalates.
	MaxScripts      int
	ScriptTextChars int
}

// DefaultThresholds are the values used when none are configured.
var DefaultThresholds = Thresholds{
	MinTextChars:    200,
	MinTextRatio:    0.005,
	MaxScripts:      10,
	ScriptTextChars: 500,
}

// ratioMinBytes keeps MinTextRatio from firing on small pages.
const ratioMinBytes = 20 << 10

// spaRoots are mount points that single-page-app frameworks ship empty.
var spaRoots = regexp.MustCompile(`<div[^>]+id=["'](root|app|__next|__nuxt|svelte|main-app)["'][^>]*>\s*</div>|<app-root[^>]*>\s*</app-root>`)

var reNoscript = regexp.MustCompile(`<noscript[^>]*>[^<]*(enable|activate|turn on|requires?|need)\s+(javascript|js)`)

// NeedsRendering reports whether the static markup likely only becomes
// meaningful after script execution, and names the signal that fired.
func NeedsRendering(body string, th Thresholds) (bool, string) {
	text := visibleText(body)
	textLen := len(text)

	if textLen < th.MinTextChars {
		return true, "little visible text"
	}

	lower := strings.ToLower(body)

	if spaRoots.MatchString(lower) && textLen < 4*th.MinTextChars {
		return true, "empty single-page-app root"
	}

	if reNoscript.MatchString(lower) {
		return true, "noscript javascript warning"
	}

	if strings.Count(lower, "<script") > th.MaxScripts && textLen < th.ScriptTextChars {
		return true, "script-heavy page with little text"
	}

	if len(body) > ratioMinBytes && th.MinTextRatio > 0 &&
		float64(textLen)/float64(len(body)) < th.MinTextRatio {
		return true, "low text to markup ratio"
	}

	return false, ""
}

// visibleText extracts the visible text from within <body>, stripping all
// tags and <script>/<style>/<noscript> content. Used for heuristics only.
func visibleText(body string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(body))
	var buf strings.Builder
	// Documents without an explicit <body> still have visible text.
	inBody := !strings.Contains(strings.ToLower(body), "<body")
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return strings.TrimSpace(buf.String())
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			switch string(tn) {
			case "body":
				inBody = true
			case "script", "style", "noscript", "template":
				skipDepth++
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			switch string(tn) {
			case "script", "style", "noscript", "template":
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if inBody && skipDepth == 0 {
				text := strings.TrimSpace(string(tokenizer.Text()))
				if text != "" {
					buf.WriteString(text)
					buf.WriteByte(' ')
				}
			}
		}
	}
}
