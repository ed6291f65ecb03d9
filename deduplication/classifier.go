// Package deduplication decides whether an incoming article is a
// near-duplicate of something already stored. URL identity is checked
// first and short-circuits the lexical heuristic; otherwise titles are
// scored against a bounded recent window of stored articles.
package deduplication

import (
	"context"

	"go.uber.org/zap"

	"newswire/similarity"
	"newswire/types"
)

const (
	// clusterBandRatio loosens the duplicate threshold for the advisory
	// near-match cluster.
	clusterBandRatio = 0.8
	// maxClusterSize caps the advisory cluster.
	maxClusterSize = 5

	defaultWindowDays  = 7
	defaultWindowLimit = 100
)

// ArticleIndex is the read-only slice of the content store the classifier
// needs.
type ArticleIndex interface {
	FindByURL(ctx context.Context, url string) (*types.Article, error)
	RecentWindow(ctx context.Context, sinceDays, limit int) ([]types.Article, error)
}

// Classification is the outcome of a duplicate check. DuplicateOf and
// Similarity are set whenever IsDuplicate is true. SimilarArticles is the
// advisory cluster of near matches; it does not drive the decision.
type Classification struct {
	IsDuplicate     bool
	DuplicateOf     string
	Similarity      float64
	SimilarArticles []types.SimilarityMatch
}

// ClassifierConfig wires the classifier's dependencies.
type ClassifierConfig struct {
	Index ArticleIndex
	// Bloom is the optional probabilistic URL filter. When it reports a
	// URL as definitely unseen, the exact-match store lookup is skipped.
	Bloom       *RedisBloom
	WindowDays  int
	WindowLimit int
	Logger      *zap.Logger
}

// Classifier checks candidates against the content store.
type Classifier struct {
	index       ArticleIndex
	bloom       *RedisBloom
	windowDays  int
	windowLimit int
	logger      *zap.Logger
}

// NewClassifier creates a classifier. WindowDays and WindowLimit default
// to 7 days and 100 rows.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = defaultWindowDays
	}
	if cfg.WindowLimit <= 0 {
		cfg.WindowLimit = defaultWindowLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Classifier{
		index:       cfg.Index,
		bloom:       cfg.Bloom,
		windowDays:  cfg.WindowDays,
		windowLimit: cfg.WindowLimit,
		logger:      cfg.Logger,
	}
}

// Classify decides whether the article duplicates stored content. Store
// read failures fail open: the article is treated as new so ingestion
// keeps moving, and the error is logged.
func (c *Classifier) Classify(ctx context.Context, article *types.Article, threshold float64) Classification {
	if threshold <= 0 || threshold > 1 {
		threshold = types.DefaultThreshold
	}

	// Step 1: exact canonical-URL match beats any lexical heuristic.
	if match := c.checkURL(ctx, article); match != nil {
		return Classification{
			IsDuplicate: true,
			DuplicateOf: match.ID,
			Similarity:  1.0,
			SimilarArticles: []types.SimilarityMatch{{
				ArticleID: match.ID,
				Title:     match.Title,
				Source:    match.Source,
				URL:       derefURL(match.URL),
				Score:     1.0,
			}},
		}
	}

	// Step 2: lexical comparison over the bounded recent window.
	window, err := c.index.RecentWindow(ctx, c.windowDays, c.windowLimit)
	if err != nil {
		c.logger.Error("recent window lookup failed, failing open",
			zap.String("title", article.Title), zap.Error(err))
		return Classification{}
	}

	var (
		best      *types.Article
		bestScore float64
		cluster   []types.SimilarityMatch
	)
	band := threshold * clusterBandRatio

	for i := range window {
		candidate := &window[i]
		score := similarity.Score(article.Title, candidate.Title)

		if score >= band && len(cluster) < maxClusterSize {
			cluster = append(cluster, types.SimilarityMatch{
				ArticleID: candidate.ID,
				Title:     candidate.Title,
				Source:    candidate.Source,
				URL:       derefURL(candidate.URL),
				Score:     score,
			})
		}

		if score > bestScore {
			bestScore = score
			best = candidate
		}
	}

	// Step 3: decision.
	if best != nil && bestScore >= threshold {
		c.logger.Info("lexical duplicate detected",
			zap.String("title", article.Title),
			zap.String("duplicate_of", best.ID),
			zap.Float64("score", bestScore))
		return Classification{
			IsDuplicate:     true,
			DuplicateOf:     best.ID,
			Similarity:      bestScore,
			SimilarArticles: cluster,
		}
	}

	return Classification{SimilarArticles: cluster}
}

// checkURL returns the stored article with the same canonical URL, or nil.
// The bloom filter has no false negatives, so a definite miss skips the
// store lookup entirely; bloom errors degrade to a normal lookup.
func (c *Classifier) checkURL(ctx context.Context, article *types.Article) *types.Article {
	url := derefURL(article.URL)
	if url == "" {
		return nil
	}

	if c.bloom != nil {
		seen, err := c.bloom.MightContain(ctx, HashURL(url))
		if err != nil {
			c.logger.Warn("bloom check failed, falling back to store lookup", zap.Error(err))
		} else if !seen {
			return nil
		}
	}

	match, err := c.index.FindByURL(ctx, url)
	if err != nil {
		c.logger.Error("url lookup failed, failing open",
			zap.String("url", url), zap.Error(err))
		return nil
	}
	return match
}

// Remember records a newly stored article's URL in the bloom filter so
// future runs can skip the exact-match lookup for unseen URLs. Best
// effort: filter errors are logged, never surfaced.
func (c *Classifier) Remember(ctx context.Context, article *types.Article) {
	url := derefURL(article.URL)
	if c.bloom == nil || url == "" {
		return
	}
	if err := c.bloom.Add(ctx, HashURL(url)); err != nil {
		c.logger.Warn("bloom add failed", zap.String("url", url), zap.Error(err))
	}
}

func derefURL(u *string) string {
	if u == nil {
		return ""
	}
	return *u
}
