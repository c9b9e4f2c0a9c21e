package cache

import "time"

// Article is a single news item. URL is its identity.
type Article struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Source      string    `json:"source,omitempty"`
	Author      string    `json:"author,omitempty"`
	Content     string    `json:"content,omitempty"`
	Published   time.Time `json:"published"`
	SavedAt     time.Time `json:"saved_at,omitempty"`
}

// Page is one page of results from a news source.
type Page struct {
	Articles     []Article `json:"articles"`
	TotalResults int       `json:"total_results"`
	// Stale is set when the page came from the response cache because the
	// network was unreachable.
	Stale bool `json:"stale,omitempty"`
}

type QueryOpts struct {
	Search string
	Source string
	Limit  int
}

type Stats struct {
	Saved     int
	Responses int
	Size      int64
}
