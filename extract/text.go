package extract

import (
	"github.com/use-agent/siteprofile/dom"
	"github.com/use-agent/siteprofile/models"
)

// DefaultRawTextLimit caps raw_text when no limit is configured.
const DefaultRawTextLimit = 5000

// RawText returns the normalized page text cut to at most limit
// characters.
func RawText(limit int) func(*dom.Document) models.Field[string] {
	if limit <= 0 {
		limit = DefaultRawTextLimit
	}
	return func(doc *dom.Document) models.Field[string] {
		if doc.Text == "" {
			return models.NotFound[string]()
		}
		return models.Found(Truncate(doc.Text, limit))
	}
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}
