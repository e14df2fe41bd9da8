package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/siteprofile/dom"
	"github.com/use-agent/siteprofile/models"
)

// socialHosts maps registrable domains to platform keys.
var socialHosts = map[string]string{
	"linkedin.com":  "linkedin",
	"twitter.com":   "twitter",
	"x.com":         "twitter",
	"facebook.com":  "facebook",
	"fb.com":        "facebook",
	"instagram.com": "instagram",
	"youtube.com":   "youtube",
	"github.com":    "github",
	"tiktok.com":    "tiktok",
}

// reservedPaths are first path segments that are site features, not
// accounts.
var reservedPaths = map[string]map[string]struct{}{
	"twitter":   toSet("share", "intent", "home", "hashtag", "search", "i", "explore", "login", "signup", "settings"),
	"facebook":  toSet("sharer", "sharer.php", "share.php", "share", "dialog", "plugins", "tr", "login", "watch", "events", "groups"),
	"instagram": toSet("p", "reel", "reels", "explore", "accounts", "stories", "share"),
	"youtube":   toSet("watch", "embed", "shorts", "playlist", "results", "feed", "redirect"),
	"github":    toSet("sponsors", "login", "features", "about", "marketplace", "orgs", "topics", "apps"),
	"tiktok":    toSet("embed", "share", "tag", "music", "video"),
}

// SocialLinks maps each recognized platform to the account handle of the
// first link to it.
func SocialLinks(doc *dom.Document) models.Field[map[string]string] {
	links := make(map[string]string)
	doc.Doc.Find("a[href], link[rel~=me][href]").Each(func(_ int, s *goquery.Selection) {
		u, err := resolve(doc.URL, s.AttrOr("href", ""))
		if err != nil {
			return
		}
		platform, ok := platformOf(u.Hostname())
		if !ok {
			return
		}
		if _, done := links[platform]; done {
			return
		}
		if handle := handleOf(platform, u); handle != "" {
			links[platform] = handle
		}
	})
	if len(links) == 0 {
		return models.NotFound[map[string]string]()
	}
	return models.Found(links)
}

func resolve(base *url.URL, href string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, err
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		u.Scheme = "https"
	}
	return u, nil
}

// platformOf matches host or any parent domain ("uk.linkedin.com").
func platformOf(host string) (string, bool) {
	host = strings.ToLower(host)
	for host != "" {
		if p, ok := socialHosts[host]; ok {
			return p, true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			break
		}
		host = host[i+1:]
	}
	return "", false
}

// handleOf extracts the account from a profile URL, or "" for share,
// intent and content links.
func handleOf(platform string, u *url.URL) string {
	segs := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(segs) == 0 {
		if platform == "facebook" && u.Query().Get("id") != "" {
			return u.Query().Get("id")
		}
		return ""
	}
	first := strings.ToLower(segs[0])

	switch platform {
	case "linkedin":
		switch first {
		case "company", "in", "school", "showcase":
			if len(segs) > 1 {
				return segs[1]
			}
		}
		return ""
	case "youtube":
		switch first {
		case "c", "channel", "user":
			if len(segs) > 1 {
				return segs[1]
			}
			return ""
		}
	case "facebook":
		if first == "profile.php" {
			return u.Query().Get("id")
		}
		if first == "pages" && len(segs) > 1 {
			return segs[1]
		}
	}

	if _, reserved := reservedPaths[platform][first]; reserved {
		return ""
	}
	return strings.TrimPrefix(segs[0], "@")
}
