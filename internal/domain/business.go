package domain

import "time"

// BusinessListing is a prospective B2B client scraped from a map service.
type BusinessListing struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Rating       string    `json:"rating"`
	Address      string    `json:"address"`
	Website      string    `json:"website,omitempty"`
	ReviewsCount int       `json:"reviews_count"`
	ScrapedAt    time.Time `json:"scraped_at"`
}

// ScrapeRequest is the body for POST /v1/scraper/search.
type ScrapeRequest struct {
	Query    string `json:"query"`
	Location string `json:"location"`
}

// ScrapeResponse wraps a listing search.
type ScrapeResponse struct {
	Count       int               `json:"count"`
	Leads       []BusinessListing `json:"leads"`
	SearchQuery string            `json:"search_query"`
}
