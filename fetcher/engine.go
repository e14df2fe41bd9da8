package fetcher

import (
	"context"

	"github.com/use-agent/siteprofile/models"
)

// Engine is the interface that all fetch engines must implement.
type Engine interface {
	// Name returns the engine identifier (e.g. "static", "render").
	Name() string

	// Fetch retrieves the page at url. Errors are *models.FetchError.
	Fetch(ctx context.Context, url string) (models.FetchResult, error)
}
