package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/siteprofile/models"
)

// Extractor is the extraction core. *pipeline.Pipeline satisfies it.
type Extractor interface {
	Extract(ctx context.Context, url string) (*models.ExtractionRecord, error)
}

// Scrape returns a handler for POST /scrape.
//
// Flow:
//  1. Parse & validate the request body.
//  2. Extractor.Extract under the request timeout.
//  3. Respond with the full record, or a single error and no data.
func Scrape(ex Extractor, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewFetchError(models.ErrCodeInvalidInput, "request body must be JSON with a \"url\" field", err), start)
			return
		}
		req.URL = strings.TrimSpace(req.URL)
		if req.URL == "" {
			respondError(c, models.NewFetchError(models.ErrCodeInvalidInput, "url is required", nil), start)
			return
		}

		// ── 2. Extract ──────────────────────────────────────────────
		ctx := c.Request.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		rec, err := ex.Extract(ctx, req.URL)
		if err != nil {
			respondError(c, err, start)
			return
		}

		// ── 3. Respond ──────────────────────────────────────────────
		c.JSON(http.StatusOK, models.ScrapeResponse{
			Success:  true,
			Data:     rec,
			TimingMs: time.Since(start).Milliseconds(),
		})
	}
}

// respondError maps err to an HTTP status and writes the error envelope.
// Errors without a code are reported as INTERNAL_ERROR.
func respondError(c *gin.Context, err error, start time.Time) {
	var fe *models.FetchError
	if !errors.As(err, &fe) {
		fe = models.NewFetchError(models.ErrCodeInternal, err.Error(), err)
	}
	status := mapErrorToStatus(fe)
	if status >= http.StatusInternalServerError {
		slog.Warn("scrape failed", "request_id", c.GetString("request_id"), "code", fe.Code, "error", fe)
	}

	c.JSON(status, models.ScrapeResponse{
		Success:  false,
		Error:    fe.ToDetail(),
		TimingMs: time.Since(start).Milliseconds(),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.FetchError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput, models.ErrCodeInvalidURL:
		return http.StatusBadRequest // 400
	case models.ErrCodeConnection, models.ErrCodeHTTP, models.ErrCodeNavigation:
		return http.StatusBadGateway // 502
	case models.ErrCodeRenderLaunch:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	default:
		return http.StatusInternalServerError // 500
	}
}
