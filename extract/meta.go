package extract

import (
	"github.com/use-agent/siteprofile/dom"
	"github.com/use-agent/siteprofile/models"
)

// Title returns the document <title>, whitespace-normalized.
func Title(doc *dom.Document) models.Field[string] {
	t := doc.Title()
	if t == "" {
		return models.NotFound[string]()
	}
	return models.Found(t)
}

// Description returns the meta description, falling back to
// og:description.
func Description(doc *dom.Document) models.Field[string] {
	if d := dom.Normalize(doc.Meta("description")); d != "" {
		return models.Found(d)
	}
	if doc.OpenGraph != nil {
		if d := dom.Normalize(doc.OpenGraph.Description); d != "" {
			return models.Found(d)
		}
	}
	if d := dom.Normalize(doc.Meta("og:description")); d != "" {
		return models.Found(d)
	}
	return models.NotFound[string]()
}
