package models

// SearchHit is a single section matching a search query.
type SearchHit struct {
	SectionID string  `json:"section_id"`
	Title     string  `json:"title,omitempty"`
	Snippet   string  `json:"snippet,omitempty"`
	Score     float64 `json:"score"`
	Rank      int     `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Hits      []*SearchHit `json:"hits"`
	Total     int          `json:"total"`
	QueryTime int64        `json:"query_time_ms"`
	Query     string       `json:"query"`
	// AutoFuzzy indicates that fuzzy matching was enabled automatically because
	// the exact query returned nothing.
	AutoFuzzy bool `json:"auto_fuzzy,omitempty"`
	// DidYouMean is a corrected query offered when nothing matched.
	DidYouMean string `json:"did_you_mean,omitempty"`
}
