package models

// SearchResult is a single search hit: the matched document id, its score,
// and the match highlights reported by the index (char offsets relative to
// each attribute's full text, unsorted).
type SearchResult struct {
	ID         string      `json:"id"`
	Score      float64     `json:"score"`
	Highlights []Highlight `json:"highlights"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
}
