package dom

import (
	"strings"
	"testing"
)

func TestParse_TextStripsScriptsAndCollapsesWhitespace(t *testing.T) {
	html := `<html><head><title>T</title><style>body{color:red}</style></head>
<body>
  <h1>Hello
     world</h1>
  <script>var x = "hidden";</script>
  <p>Second&nbsp;para <b>bold</b></p>
  <noscript>enable js</noscript>
  <div hidden>secret</div>
</body></html>`

	doc := Parse(html, "https://acme.io/")

	want := "Hello world Second para bold"
	if doc.Text != strings.Join(strings.Fields(want), " ") {
		t.Errorf("Text = %q, want %q", doc.Text, strings.Join(strings.Fields(want), " "))
	}
	for _, bad := range []string{"hidden", "color:red", "enable js", "secret", "T "} {
		if strings.Contains(doc.Text, bad) {
			t.Errorf("Text %q should not contain %q", doc.Text, bad)
		}
	}
}

func TestParse_MalformedMarkupNeverFails(t *testing.T) {
	inputs := []string{
		"",
		"<<<>>>",
		"<div><p>unclosed <b>tags",
		"just plain text",
		"<html><body><table><tr><td>cell</table></div></span>",
		"\x00\xff\xfe",
	}
	for _, in := range inputs {
		doc := Parse(in, "not a url")
		if doc == nil || doc.Doc == nil || doc.OpenGraph == nil {
			t.Fatalf("Parse(%q) returned incomplete document", in)
		}
		if doc.URL != nil {
			t.Errorf("Parse(%q): URL = %v, want nil for invalid page url", in, doc.URL)
		}
	}

	doc := Parse("<div><p>unclosed <b>tags", "")
	if doc.Text != "unclosed tags" {
		t.Errorf("Text = %q, want %q", doc.Text, "unclosed tags")
	}
}

func TestParse_OpenGraphAndMeta(t *testing.T) {
	html := `<html><head>
<meta property="og:site_name" content=" Acme ">
<meta property="og:description" content="Rockets for everyone">
<meta name="Description" content="  Plain description  ">
</head><body></body></html>`

	doc := Parse(html, "https://www.acme.io/pricing")

	if got := doc.OpenGraph.SiteName; strings.TrimSpace(got) != "Acme" {
		t.Errorf("OpenGraph.SiteName = %q, want Acme", got)
	}
	if got := doc.Meta("description"); got != "Plain description" {
		t.Errorf("Meta(description) = %q, want %q", got, "Plain description")
	}
	if got := doc.Meta("missing"); got != "" {
		t.Errorf("Meta(missing) = %q, want empty", got)
	}
	if got := doc.Host(); got != "acme.io" {
		t.Errorf("Host() = %q, want acme.io", got)
	}
}

func TestIsBoilerplate(t *testing.T) {
	html := `<html><body>
<nav><ul><li id="in-nav">Home</li></ul></nav>
<div class="site-footer__links"><span id="in-footer-class">Terms</span></div>
<section class="leadership"><span id="in-leadership">Jane Doe</span></section>
<div class="headline"><span id="in-headline">Big</span></div>
<div role="contentinfo"><span id="in-role">(c) 2024</span></div>
</body></html>`

	doc := Parse(html, "https://acme.io")

	tests := []struct {
		id   string
		want bool
	}{
		{"in-nav", true},
		{"in-footer-class", true},
		{"in-leadership", false},
		{"in-headline", false},
		{"in-role", true},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			sel := doc.Doc.Find("#" + tt.id)
			if sel.Length() != 1 {
				t.Fatalf("selector #%s matched %d nodes", tt.id, sel.Length())
			}
			if got := IsBoilerplate(sel); got != tt.want {
				t.Errorf("IsBoilerplate(#%s) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  a \n\t b   c "); got != "a b c" {
		t.Errorf("Normalize = %q, want %q", got, "a b c")
	}
}

func TestDocument_Title(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"head title", `<html><head><title> Acme  Rockets </title></head><body></body></html>`, "Acme Rockets"},
		{"svg icon only", `<html><head><meta charset="utf-8"></head><body><svg><title>Close icon</title><path d="M0 0"/></svg></body></html>`, ""},
		{"svg before head title", `<html><body><svg><title>Menu</title></svg><title>Acme</title></body></html>`, "Acme"},
		{"no title", `<html><body><p>hi</p></body></html>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Parse(tt.html, "https://acme.io/").Title(); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}
