package search

type SearchRequest struct {
	Query    string `json:"query"`
	Limit    int    `json:"limit,omitempty" description:"Max results (default: 5)"`
	School   string `json:"school,omitempty" description:"Filter: hanafi, maliki, syafii, hanbali"`
	Category string `json:"category,omitempty" description:"Filter: chunk category tag"`
}

type SearchResult struct {
	ChunkID  string            `json:"chunk_id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Score    float64           `json:"score"`
	Rank     int               `json:"rank"`
	Source   string            `json:"source"`
}

type SearchResponse struct {
	Query  string         `json:"query"`
	Result []SearchResult `json:"result"`
	Count  int            `json:"count"`
}

type ContextResponse struct {
	Query   string `json:"query"`
	Context string `json:"context"`
}
