package search

// Result is a single search hit returned to the caller.
type Result struct {
	ID           string `json:"id"`
	LocationName string `json:"locationName"`
	MissionType  string `json:"missionType"`
	Floor        string `json:"floor,omitempty"`
	Archived     bool   `json:"archived"`
	Snippet      string `json:"snippet,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text            string
	MissionType     string // empty = all types
	IncludeArchived bool
	Limit           int
	Offset          int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search over tags.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer pushes tag records into a search index.
type Indexer interface {
	IndexTag(t TagRecord) error
	DeleteTag(id string) error
}

// TagRecord is the data we index per tag.
type TagRecord struct {
	ID             string `json:"id"`
	LocationName   string `json:"locationName"`
	MissionType    string `json:"missionType"`
	MissionSubtype string `json:"subType,omitempty"`
	Floor          string `json:"floor,omitempty"`
	Archived       bool   `json:"archived"`
	LatestStatus   string `json:"latestStatus,omitempty"`
}
