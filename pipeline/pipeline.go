// Package pipeline is the extraction core: fetch a page, parse it once,
// run every field extractor over it and assemble the ExtractionRecord.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/use-agent/siteprofile/config"
	"github.com/use-agent/siteprofile/dom"
	"github.com/use-agent/siteprofile/extract"
	"github.com/use-agent/siteprofile/models"
)

// Fetcher acquires page markup. *fetcher.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (models.FetchResult, error)
}

// Aggregator runs a set of extractors over one document.
type Aggregator struct {
	set   extract.Set
	limit int
}

// NewAggregator creates an Aggregator running at most limit extractors
// at once; limit <= 0 means one per slot.
func NewAggregator(set extract.Set, limit int) *Aggregator {
	if limit <= 0 {
		limit = len(models.FieldNames)
	}
	return &Aggregator{set: set, limit: limit}
}

// Aggregate runs every extractor over doc and assembles the record. It
// always returns every slot; a fetched page is a success even when no
// field was found.
func (a *Aggregator) Aggregate(ctx context.Context, doc *dom.Document, fetch models.FetchResult) models.ExtractionRecord {
	start := time.Now()
	rec := models.ExtractionRecord{
		FinalURL:   fetch.FinalURL,
		Rendered:   fetch.Rendered,
		StatusCode: fetch.StatusCode,
	}

	// Each goroutine owns exactly one slot of rec. Extractors recover their
	// own panics, so nothing here returns an error.
	var g errgroup.Group
	g.SetLimit(a.limit)
	g.Go(func() error { rec.CompanyName = a.set.CompanyName.Field(doc); return nil })
	g.Go(func() error { rec.Title = a.set.Title.Field(doc); return nil })
	g.Go(func() error { rec.Description = a.set.Description.Field(doc); return nil })
	g.Go(func() error { rec.Pricing = a.set.Pricing.Field(doc); return nil })
	g.Go(func() error { rec.Features = a.set.Features.Field(doc); return nil })
	g.Go(func() error { rec.Team = a.set.Team.Field(doc); return nil })
	g.Go(func() error { rec.Metrics = a.set.Metrics.Field(doc); return nil })
	g.Go(func() error { rec.Contact = a.set.Contact.Field(doc); return nil })
	g.Go(func() error { rec.SocialLinks = a.set.SocialLinks.Field(doc); return nil })
	g.Go(func() error { rec.RawText = a.set.RawText.Field(doc); return nil })
	_ = g.Wait()

	rec.FieldsFound = make([]string, 0, len(models.FieldNames))
	for _, name := range models.FieldNames {
		if rec.Found(name) {
			rec.FieldsFound = append(rec.FieldsFound, name)
		}
	}
	rec.Success = true

	slog.DebugContext(ctx, "extraction complete",
		"url", fetch.FinalURL,
		"fields_found", len(rec.FieldsFound),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return rec
}

// Pipeline is fetch -> parse -> aggregate. It is safe for concurrent use.
type Pipeline struct {
	fetcher    Fetcher
	aggregator *Aggregator
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithExtractors replaces the default extractor set.
func WithExtractors(set extract.Set, limit int) Option {
	return func(p *Pipeline) { p.aggregator = NewAggregator(set, limit) }
}

// New creates a Pipeline using the default extractors.
func New(f Fetcher, cfg config.ExtractConfig, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:    f,
		aggregator: NewAggregator(extract.Default(cfg), cfg.Parallelism),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Extract profiles the site at rawURL. A fetch failure returns a nil
// record and a *models.FetchError; extraction itself never fails.
func (p *Pipeline) Extract(ctx context.Context, rawURL string) (*models.ExtractionRecord, error) {
	res, err := p.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, models.Classify(err, "fetch failed")
	}

	finalURL := res.FinalURL
	if finalURL == "" {
		finalURL = rawURL
		res.FinalURL = rawURL
	}
	doc := dom.Parse(res.HTML, finalURL)

	rec := p.aggregator.Aggregate(ctx, doc, res)
	rec.URL = rawURL
	return &rec, nil
}
