package extract

import (
	"regexp"
	"strings"

	"github.com/use-agent/siteprofile/dom"
	"github.com/use-agent/siteprofile/models"
)

// Metric keys.
const (
	MetricUsers      = "users"
	MetricCustomers  = "customers"
	MetricCompanies  = "companies"
	MetricCountries  = "countries"
	MetricGrowthRate = "growth_rate"
	MetricFunding    = "funding"
	MetricValuation  = "valuation"
	MetricRevenue    = "revenue"
	MetricEmployees  = "employees"
)

const (
	num   = `\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?`
	mag   = `(?:\s?(?:k|m|b|bn|mm|thousand|million|billion)\b)?\+?`
	money = `[$€£]\s?(?:` + num + `)` + mag
)

type metricPattern struct {
	key string
	re  *regexp.Regexp
}

// metricPatterns are tried in order; group 1 is the value. A key keeps
// its first match.
var metricPatterns = []metricPattern{
	{MetricUsers, regexp.MustCompile(`(?i)((?:` + num + `)` + mag + `)\s+(?:active\s+|monthly\s+|daily\s+|registered\s+)?users\b`)},
	{MetricCustomers, regexp.MustCompile(`(?i)((?:` + num + `)` + mag + `)\s+(?:happy\s+|paying\s+|satisfied\s+)?(?:customers|clients)\b`)},
	{MetricCompanies, regexp.MustCompile(`(?i)((?:` + num + `)` + mag + `)\s+(?:companies|businesses|organizations|organisations|brands|teams)\b`)},
	{MetricCountries, regexp.MustCompile(`(?i)(\d+)\+?\s*(?:countries|nations)\b`)},
	{MetricGrowthRate, regexp.MustCompile(`(?i)(\d+(?:\.\d+)?%)\s*(?:yoy\s+|year[- ]over[- ]year\s+|annual\s+|monthly\s+|revenue\s+)?(?:growth|increase)\b`)},
	{MetricGrowthRate, regexp.MustCompile(`(?i)\bgrew\s+(?:by\s+)?(\d+(?:\.\d+)?%)`)},
	{MetricFunding, regexp.MustCompile(`(?i)\b(?:raised|raising|secured|closed)\s+(?:a\s+|an\s+|over\s+|more than\s+)?(` + money + `)`)},
	{MetricFunding, regexp.MustCompile(`(?i)(` + money + `)\s+(?:in\s+)?(?:funding|seed|series\s+[a-e]|venture|investment)\b`)},
	{MetricValuation, regexp.MustCompile(`(?i)(` + money + `)\s+valuation\b`)},
	{MetricValuation, regexp.MustCompile(`(?i)\bvalu(?:ation|ed)\s+(?:of\s+|at\s+)?(` + money + `)`)},
	{MetricRevenue, regexp.MustCompile(`(?i)(` + money + `)\s+(?:in\s+)?(?:arr|revenue|annual recurring revenue|sales)\b`)},
	{MetricRevenue, regexp.MustCompile(`(?i)\b(?:arr|revenue)\s+of\s+(` + money + `)`)},
	{MetricEmployees, regexp.MustCompile(`(?i)((?:` + num + `)\+?)\s+(?:employees|team members|staff|engineers)\b`)},
}

// Metrics maps growth and usage keywords to the first number found with
// them in the page text.
func Metrics(doc *dom.Document) models.Field[map[string]string] {
	metrics := make(map[string]string)
	for _, p := range metricPatterns {
		if _, done := metrics[p.key]; done {
			continue
		}
		if m := p.re.FindStringSubmatch(doc.Text); m != nil {
			metrics[p.key] = strings.TrimSpace(m[1])
		}
	}
	if len(metrics) == 0 {
		return models.NotFound[map[string]string]()
	}
	return models.Found(metrics)
}
