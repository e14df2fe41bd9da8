package extract

import (
	"regexp"
	"strings"

	"github.com/use-agent/siteprofile/dom"
	"github.com/use-agent/siteprofile/models"
)

const maxPrices = 20

// priceRe matches a currency symbol, an amount with optional thousands
// separators and cents, an optional magnitude and an optional billing
// period ("$1,299.00", "€49/mo", "$5k", "$10M").
var priceRe = regexp.MustCompile(
	`[$€£¥₹]\s?(?:\d{1,3}(?:[,.]\d{3})+|\d+)(?:[.,]\d{1,2}\b)?` +
		`(?P<mag>\s?(?:[kKmMbB]|million|billion|thousand)\b)?` +
		`(?:\s?/\s?(?:mo|month|yr|year|user|seat|wk|week|day|annum)\b\.?)?`)

// Pricing collects distinct currency amounts from the page text in
// document order. Amounts in the millions or billions are funding or
// valuation figures, not prices, and are skipped.
func Pricing(doc *dom.Document) models.Field[[]string] {
	mag := priceRe.SubexpIndex("mag")
	var (
		prices []string
		seen   = make(map[string]struct{})
	)
	for _, m := range priceRe.FindAllStringSubmatchIndex(doc.Text, -1) {
		if m[2*mag] >= 0 {
			switch strings.ToLower(strings.TrimSpace(doc.Text[m[2*mag]:m[2*mag+1]])) {
			case "m", "b", "million", "billion":
				continue
			}
		}
		price := strings.Join(strings.Fields(doc.Text[m[0]:m[1]]), "")
		var full bool
		if prices, full = distinct(prices, seen, price, maxPrices); full {
			break
		}
	}
	return foundIfAny(prices)
}
