// Package extract holds the field extractors. Each one reads the shared
// dom.Document and produces one models.Field; none depends on another,
// and none can fail the record: errors and panics degrade to NotFound.
package extract

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/use-agent/siteprofile/config"
	"github.com/use-agent/siteprofile/dom"
	"github.com/use-agent/siteprofile/models"
)

// Extractor is the uniform view over every field heuristic.
type Extractor interface {
	Name() string
	Extract(doc *dom.Document) (any, bool)
}

// Typed is an Extractor producing a models.Field[T].
type Typed[T any] struct {
	name string
	fn   func(*dom.Document) models.Field[T]
}

// New wraps fn as a named extractor. fn runs under Safe.
func New[T any](name string, fn func(*dom.Document) models.Field[T]) Typed[T] {
	return Typed[T]{name: name, fn: fn}
}

func (t Typed[T]) Name() string { return t.name }

// Field runs the heuristic. It never panics.
func (t Typed[T]) Field(doc *dom.Document) models.Field[T] {
	return Safe(t.name, t.fn)(doc)
}

// Extract implements Extractor.
func (t Typed[T]) Extract(doc *dom.Document) (any, bool) {
	return t.Field(doc).Get()
}

// Safe returns fn guarded against panics; a panicking heuristic yields
// NotFound and a warning.
func Safe[T any](name string, fn func(*dom.Document) models.Field[T]) func(*dom.Document) models.Field[T] {
	return func(doc *dom.Document) (f models.Field[T]) {
		defer func() {
			if r := recover(); r != nil {
				slog.Warn("extractor panicked, reporting not found",
					"field", name, "panic", fmt.Sprint(r))
				f = models.NotFound[T]()
			}
		}()
		if doc == nil || doc.Doc == nil {
			return models.NotFound[T]()
		}
		return fn(doc)
	}
}

// Set is one extractor per record slot.
type Set struct {
	CompanyName Typed[string]
	Title       Typed[string]
	Description Typed[string]
	Pricing     Typed[[]string]
	Features    Typed[[]string]
	Team        Typed[[]string]
	Metrics     Typed[map[string]string]
	Contact     Typed[models.ContactInfo]
	SocialLinks Typed[map[string]string]
	RawText     Typed[string]
}

// Default returns the production extractor set.
func Default(cfg config.ExtractConfig) Set {
	return Set{
		CompanyName: New(models.FieldCompanyName, CompanyName),
		Title:       New(models.FieldTitle, Title),
		Description: New(models.FieldDescription, Description),
		Pricing:     New(models.FieldPricing, Pricing),
		Features:    New(models.FieldFeatures, Features),
		Team:        New(models.FieldTeam, Team),
		Metrics:     New(models.FieldMetrics, Metrics),
		Contact:     New(models.FieldContact, Contact),
		SocialLinks: New(models.FieldSocialLinks, SocialLinks),
		RawText:     New(models.FieldRawText, RawText(cfg.RawTextLimit)),
	}
}

// All lists the extractors in canonical slot order.
func (s Set) All() []Extractor {
	return []Extractor{
		s.CompanyName, s.Title, s.Description, s.Pricing, s.Features,
		s.Team, s.Metrics, s.Contact, s.SocialLinks, s.RawText,
	}
}

// distinct appends s to list unless it is empty, already present or the
// list is full. Reports whether the list is now full.
func distinct(list []string, seen map[string]struct{}, s string, limit int) ([]string, bool) {
	if len(list) >= limit {
		return list, true
	}
	if s == "" {
		return list, false
	}
	key := strings.ToLower(s)
	if _, ok := seen[key]; ok {
		return list, false
	}
	seen[key] = struct{}{}
	list = append(list, s)
	return list, len(list) >= limit
}

// foundIfAny wraps a non-empty list as Found.
func foundIfAny(list []string) models.Field[[]string] {
	if len(list) == 0 {
		return models.NotFound[[]string]()
	}
	return models.Found(list)
}
