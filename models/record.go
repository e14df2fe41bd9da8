package models

// Field slot names, in canonical order.
const (
	FieldCompanyName = "company_name"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldPricing     = "pricing"
	FieldFeatures    = "features"
	FieldTeam        = "team"
	FieldMetrics     = "metrics"
	FieldContact     = "contact"
	FieldSocialLinks = "social_links"
	FieldRawText     = "raw_text"
)

// FieldNames lists every slot of an ExtractionRecord in canonical order.
var FieldNames = []string{
	FieldCompanyName,
	FieldTitle,
	FieldDescription,
	FieldPricing,
	FieldFeatures,
	FieldTeam,
	FieldMetrics,
	FieldContact,
	FieldSocialLinks,
	FieldRawText,
}

// FetchRequest is the input of the fetch layer.
type FetchRequest struct {
	URL string
}

// FetchResult is the output of a successful fetch, static or rendered.
type FetchResult struct {
	// HTML is the page markup.
	HTML string

	// FinalURL is the URL after following all redirects.
	FinalURL string

	// Rendered is true when the rendering backend produced HTML.
	Rendered bool

	// StatusCode is the upstream HTTP status; 0 when unknown.
	StatusCode int

	// Engine names the engine that produced the result ("static", "render").
	Engine string
}

// ContactInfo holds contact details found on the page. Each entry is
// found or not independently.
type ContactInfo struct {
	Email Field[string] `json:"email"`
	Phone Field[string] `json:"phone"`
}

// ExtractionRecord is the structured description of one company site.
// It is created fresh per request and never mutated after it is returned.
type ExtractionRecord struct {
	URL        string `json:"url"`
	FinalURL   string `json:"final_url"`
	Rendered   bool   `json:"rendered"`
	StatusCode int    `json:"status_code,omitempty"`

	CompanyName Field[string]            `json:"company_name"`
	Title       Field[string]            `json:"title"`
	Description Field[string]            `json:"description"`
	Pricing     Field[[]string]          `json:"pricing"`
	Features    Field[[]string]          `json:"features"`
	Team        Field[[]string]          `json:"team"`
	Metrics     Field[map[string]string] `json:"metrics"`
	Contact     Field[ContactInfo]       `json:"contact"`
	SocialLinks Field[map[string]string] `json:"social_links"`
	RawText     Field[string]            `json:"raw_text"`

	// FieldsFound lists the names of found slots in canonical order.
	FieldsFound []string `json:"fields_found"`

	// Success is true whenever the page itself was fetched.
	Success bool `json:"success"`
}

// Found reports whether the named slot holds a value.
func (r *ExtractionRecord) Found(name string) bool {
	switch name {
	case FieldCompanyName:
		return r.CompanyName.IsFound()
	case FieldTitle:
		return r.Title.IsFound()
	case FieldDescription:
		return r.Description.IsFound()
	case FieldPricing:
		return r.Pricing.IsFound()
	case FieldFeatures:
		return r.Features.IsFound()
	case FieldTeam:
		return r.Team.IsFound()
	case FieldMetrics:
		return r.Metrics.IsFound()
	case FieldContact:
		return r.Contact.IsFound()
	case FieldSocialLinks:
		return r.SocialLinks.IsFound()
	case FieldRawText:
		return r.RawText.IsFound()
	}
	return false
}
