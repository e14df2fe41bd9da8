// Package fetcher decides how a page is acquired: a fast static fetch
// first, escalating to a rendering engine when the markup looks
// script-rendered or the static fetch fails.
package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/use-agent/siteprofile/models"
)

// Fetcher is the document acquisition front door. It is safe for
// concurrent use; no state is shared between calls.
type Fetcher struct {
	static     Engine
	renderer   Engine // nil disables escalation
	timeout    time.Duration
	thresholds Thresholds
}

// Option customises a Fetcher.
type Option func(*Fetcher)

// WithRenderer enables escalation to r.
func WithRenderer(r Engine) Option {
	return func(f *Fetcher) { f.renderer = r }
}

// WithTimeout bounds the static fetch.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithThresholds sets the escalation heuristic thresholds.
func WithThresholds(th Thresholds) Option {
	return func(f *Fetcher) { f.thresholds = th }
}

// New creates a Fetcher around the given static engine.
func New(static Engine, opts ...Option) *Fetcher {
	f := &Fetcher{
		static:     static,
		timeout:    8 * time.Second,
		thresholds: DefaultThresholds,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ValidateURL checks that raw is an absolute http(s) URL with a host.
func ValidateURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, models.NewFetchError(models.ErrCodeInvalidURL, "url is empty", nil)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, models.NewFetchError(models.ErrCodeInvalidURL, "url does not parse", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, models.NewFetchError(models.ErrCodeInvalidURL, "url scheme must be http or https", nil)
	}
	if u.Hostname() == "" {
		return nil, models.NewFetchError(models.ErrCodeInvalidURL, "url has no host", nil)
	}
	return u, nil
}

// Fetch returns the page at rawURL.
//
// Flow:
//  1. Validate the URL; fail fast with INVALID_URL.
//  2. Static fetch bounded by the fetch timeout.
//  3. If the static markup looks script-rendered, or the static fetch
//     failed for a reason a browser might overcome, render instead.
//  4. Return whichever result succeeded; if both failed, the more
//     specific error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (models.FetchResult, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return models.FetchResult{}, err
	}
	target := u.String()

	staticCtx, cancel := context.WithTimeout(ctx, f.timeout)
	res, staticErr := f.static.Fetch(staticCtx, target)
	cancel()

	if staticErr == nil {
		needs, reason := NeedsRendering(res.HTML, f.thresholds)
		if !needs {
			return res, nil
		}
		if f.renderer == nil {
			slog.Debug("static result looks script-rendered, no renderer configured",
				"url", target, "reason", reason)
			return res, nil
		}
		slog.Info("escalating to renderer", "url", target, "reason", reason)

		rendered, renderErr := f.render(ctx, target)
		if renderErr != nil {
			// A thin static page beats no page.
			slog.Warn("render failed, keeping static result",
				"url", target, "error", renderErr)
			return res, nil
		}
		return rendered, nil
	}

	if f.renderer == nil || !worthRendering(staticErr) || ctx.Err() != nil {
		return models.FetchResult{}, staticErr
	}
	slog.Info("static fetch failed, escalating to renderer",
		"url", target, "error", staticErr)

	rendered, renderErr := f.render(ctx, target)
	if renderErr != nil {
		return models.FetchResult{}, models.MoreSpecific(staticErr, renderErr)
	}
	return rendered, nil
}

func (f *Fetcher) render(ctx context.Context, target string) (models.FetchResult, error) {
	res, err := f.renderer.Fetch(ctx, target)
	if err != nil {
		return models.FetchResult{}, models.Classify(err, "render failed")
	}
	res.Rendered = true
	return res, nil
}

// worthRendering is false for failures a browser cannot fix: the host
// does not resolve, or the URL itself is unusable.
func worthRendering(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return false
	}
	return !models.IsCode(err, models.ErrCodeInvalidURL)
}
