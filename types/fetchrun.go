package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SourceType identifies where a fetch run pulled its articles from.
type SourceType string

const (
	SourceNewsAPI SourceType = "news_api"
	SourceRSS     SourceType = "rss"
)

// RunStatus is the lifecycle state of a fetch run. A run transitions
// pending -> success or pending -> error exactly once.
type RunStatus string

const (
	RunPending RunStatus = "pending"
	RunSuccess RunStatus = "success"
	RunError   RunStatus = "error"
)

// Metadata is a free-form JSONB column echoing the effective run parameters.
type Metadata map[string]any

// Value implements driver.Valuer for JSONB storage.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB storage.
func (m *Metadata) Scan(src any) error {
	if src == nil {
		*m = Metadata{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("metadata: cannot scan %T", src)
	}
}

// FetchRun is the audit record for one ingestion invocation. Counters and
// execution time are populated only on the terminal status transition.
type FetchRun struct {
	ID                string     `db:"id" json:"id"`
	SourceType        SourceType `db:"source_type" json:"source_type"`
	Status            RunStatus  `db:"status" json:"status"`
	ArticlesFetched   int        `db:"articles_fetched" json:"articles_fetched"`
	ArticlesAdded     int        `db:"articles_added" json:"articles_added"`
	ArticlesUpdated   int        `db:"articles_updated" json:"articles_updated"`
	DuplicatesSkipped int        `db:"duplicates_skipped" json:"duplicates_skipped"`
	ExecutionTimeMs   int64      `db:"execution_time_ms" json:"execution_time_ms"`
	ErrorMessage      *string    `db:"error_message" json:"error_message,omitempty"`
	Metadata          Metadata   `db:"metadata" json:"metadata"`
	StartedAt         time.Time  `db:"started_at" json:"started_at"`
	CompletedAt       *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// NewRunID returns a fresh fetch-run identifier.
func NewRunID() string {
	return uuid.NewString()
}
