package types

// Ingest request defaults applied by Normalize.
const (
	DefaultKeyword   = "artificial intelligence"
	DefaultLimit     = 10
	DefaultThreshold = 0.7
)

// IngestRequest is the JSON body accepted by the ingestion entry point.
// Every field is optional; Normalize fills in defaults.
type IngestRequest struct {
	Keyword                string     `json:"keyword,omitempty"`
	Limit                  int        `json:"limit,omitempty"`
	Source                 SourceType `json:"source,omitempty"`
	TestMode               bool       `json:"testMode,omitempty"`
	SkipDuplicates         *bool      `json:"skipDuplicates,omitempty"`
	DeduplicationThreshold float64    `json:"deduplicationThreshold,omitempty"`
}

// Normalize applies request defaults in place. skipDuplicates defaults to
// true, which is why the field is a pointer: absent and false mean
// different things.
func (r *IngestRequest) Normalize() {
	if r.Keyword == "" {
		r.Keyword = DefaultKeyword
	}
	if r.Limit <= 0 {
		r.Limit = DefaultLimit
	}
	if r.Source == "" {
		r.Source = SourceNewsAPI
	}
	if r.SkipDuplicates == nil {
		skip := true
		r.SkipDuplicates = &skip
	}
	if r.DeduplicationThreshold <= 0 || r.DeduplicationThreshold > 1 {
		r.DeduplicationThreshold = DefaultThreshold
	}
}

// IngestResponse is returned by every invocation, success or failure.
// Articles and DuplicateGroups are populated only in test mode to keep
// normal responses small.
type IngestResponse struct {
	Success         bool                         `json:"success"`
	Count           int                          `json:"count"`
	Message         string                       `json:"message"`
	Articles        []Article                    `json:"articles,omitempty"`
	DuplicateGroups map[string][]SimilarityMatch `json:"duplicateGroups,omitempty"`
}
