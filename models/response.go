package models

// ScrapeResponse is the envelope for POST /scrape.
//
// On success Data holds the full record with every field slot present.
// On failure only Error is set; no partial field map is returned.
type ScrapeResponse struct {
	Success bool              `json:"success"`
	Data    *ExtractionRecord `json:"data,omitempty"`
	Error   *ErrorDetail      `json:"error,omitempty"`

	// TimingMs is the total handler time in milliseconds.
	TimingMs int64 `json:"timing_ms"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}
