package types

import (
	"time"

	"github.com/google/uuid"
)

// Complexity levels derived from the technical vocabulary scan.
const (
	ComplexityBasic        = "basic"
	ComplexityIntermediate = "intermediate"
	ComplexityAdvanced     = "advanced"
)

// Article represents a single ingested article with its dedup metadata.
// Title and URL act as the natural dedup keys; the store enforces
// uniqueness on both.
type Article struct {
	ID              string    `db:"id" json:"id"`
	Title           string    `db:"title" json:"title"`
	Description     string    `db:"description" json:"description"`
	Content         string    `db:"content" json:"content"`
	URL             *string   `db:"url" json:"url,omitempty"`
	ImageURL        string    `db:"image_url" json:"image_url,omitempty"`
	Source          string    `db:"source" json:"source"`
	Category        string    `db:"category" json:"category"`
	PublishedAt     time.Time `db:"published_at" json:"published_at"`
	ReadingTime     int       `db:"reading_time_minutes" json:"reading_time_minutes"`
	Complexity      string    `db:"complexity" json:"complexity"`
	ImpactScore     int       `db:"impact_score" json:"impact_score"`
	IsDuplicate     bool      `db:"is_duplicate" json:"is_duplicate"`
	DuplicateOf     *string   `db:"duplicate_of" json:"duplicate_of,omitempty"`
	SimilarityScore *float64  `db:"similarity_score" json:"similarity_score,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// SimilarityMatch is one near-duplicate candidate from the recent window.
// It is produced during classification and consumed for logging and
// grouping; it is never persisted on its own.
type SimilarityMatch struct {
	ArticleID string  `json:"article_id"`
	Title     string  `json:"title"`
	Source    string  `json:"source"`
	URL       string  `json:"url,omitempty"`
	Score     float64 `json:"score"`
}

// NewArticleID returns a fresh opaque article identifier.
func NewArticleID() string {
	return uuid.NewString()
}

// MarkDuplicate sets the dedup fields together so is_duplicate can never
// be true without duplicate_of and similarity_score.
func (a *Article) MarkDuplicate(of string, score float64) {
	a.IsDuplicate = true
	a.DuplicateOf = &of
	a.SimilarityScore = &score
}
