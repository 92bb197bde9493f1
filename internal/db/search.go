package db

// KNNQuery is the input for vector similarity search. TagFilter, when
// non-empty, restricts the KNN candidate set to entries whose TagField
// matches the value (an FT pre-filter).
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	TagField     string
	TagFilter    string
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search. Score is cosine
// similarity in [0,1], highest first.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
