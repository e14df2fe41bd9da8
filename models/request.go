package models

// ScrapeRequest is the payload for POST /scrape.
type ScrapeRequest struct {
	// URL is the company site to profile. Required; http or https only.
	URL string `json:"url" binding:"required"`
}
