package model

// SearchResult is a single record extracted from an engine's result page.
// Values are comparable so consecutive pages can be checked for equality.
type SearchResult struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
}
