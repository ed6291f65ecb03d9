// Package storage is the gateway to the Postgres content store: the
// articles table and the fetch_runs audit table. Unique constraints on
// article title and url are the backstop against concurrent runs inserting
// the same article twice; see schema.sql.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"newswire/types"
)

var articleColumns = []string{
	"id", "title", "description", "content", "url", "image_url",
	"source", "category", "published_at", "reading_time_minutes",
	"complexity", "impact_score", "is_duplicate", "duplicate_of",
	"similarity_score", "created_at", "updated_at",
}

// Store wraps the database handle with a per-query timeout and a
// dollar-placeholder statement builder.
type Store struct {
	db      *sqlx.DB
	builder sq.StatementBuilderType
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a gateway over an open database handle. queryTimeout bounds
// every individual query.
func New(db *sqlx.DB, queryTimeout time.Duration, logger *zap.Logger) *Store {
	if queryTimeout <= 0 {
		queryTimeout = 10 * time.Second
	}
	return &Store{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		timeout: queryTimeout,
		logger:  logger,
	}
}

// Open connects to Postgres and verifies the connection.
func Open(dsn string, queryTimeout time.Duration, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, opErr("connect", err)
	}
	return New(db, queryTimeout, logger), nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// FindByURL returns the article with the exact canonical URL, or nil when
// none exists.
func (s *Store) FindByURL(ctx context.Context, url string) (*types.Article, error) {
	query, args, err := s.builder.
		Select(articleColumns...).
		From("articles").
		Where(sq.Eq{"url": url}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, opErr("find_by_url", err)
	}

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var article types.Article
	if err := s.db.GetContext(ctx, &article, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, opErr("find_by_url", err)
	}
	return &article, nil
}

// FindByTitle returns the article with the exact title, or nil when none
// exists. Title is the upsert key, so this decides insert vs update.
func (s *Store) FindByTitle(ctx context.Context, title string) (*types.Article, error) {
	query, args, err := s.builder.
		Select(articleColumns...).
		From("articles").
		Where(sq.Eq{"title": title}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, opErr("find_by_title", err)
	}

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var article types.Article
	if err := s.db.GetContext(ctx, &article, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, opErr("find_by_title", err)
	}
	return &article, nil
}

// RecentWindow returns articles created in the trailing sinceDays days,
// newest first, capped at limit rows. This is the bounded comparison set
// for lexical duplicate detection.
func (s *Store) RecentWindow(ctx context.Context, sinceDays, limit int) ([]types.Article, error) {
	cutoff := time.Now().AddDate(0, 0, -sinceDays)

	query, args, err := s.builder.
		Select(articleColumns...).
		From("articles").
		Where(sq.GtOrEq{"created_at": cutoff}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, opErr("recent_window", err)
	}

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	articles := []types.Article{}
	if err := s.db.SelectContext(ctx, &articles, query, args...); err != nil {
		return nil, opErr("recent_window", err)
	}
	return articles, nil
}

// Upsert writes the article. A row already carrying the article's id is
// rewritten in place, including its title; this is how a re-fetched URL
// whose headline changed keeps its row instead of colliding with the url
// unique constraint. Otherwise the article is inserted, with a title
// conflict refreshing the existing row under its stored id.
func (s *Store) Upsert(ctx context.Context, article *types.Article) error {
	if article.ID == "" {
		article.ID = types.NewArticleID()
	} else {
		updated, err := s.updateByID(ctx, article)
		if err != nil {
			return opErr("upsert", err)
		}
		if updated {
			return nil
		}
	}

	query, args, err := s.builder.
		Insert("articles").
		Columns("id", "title", "description", "content", "url", "image_url",
			"source", "category", "published_at", "reading_time_minutes",
			"complexity", "impact_score", "is_duplicate", "duplicate_of",
			"similarity_score").
		Values(article.ID, article.Title, article.Description, article.Content,
			article.URL, article.ImageURL, article.Source, article.Category,
			article.PublishedAt, article.ReadingTime, article.Complexity,
			article.ImpactScore, article.IsDuplicate, article.DuplicateOf,
			article.SimilarityScore).
		Suffix(`ON CONFLICT (title) DO UPDATE SET
			description = EXCLUDED.description,
			content = EXCLUDED.content,
			url = EXCLUDED.url,
			image_url = EXCLUDED.image_url,
			source = EXCLUDED.source,
			category = EXCLUDED.category,
			published_at = EXCLUDED.published_at,
			reading_time_minutes = EXCLUDED.reading_time_minutes,
			complexity = EXCLUDED.complexity,
			impact_score = EXCLUDED.impact_score,
			is_duplicate = EXCLUDED.is_duplicate,
			duplicate_of = EXCLUDED.duplicate_of,
			similarity_score = EXCLUDED.similarity_score,
			updated_at = NOW()`).
		ToSql()
	if err != nil {
		return opErr("upsert", err)
	}

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return opErr("upsert", err)
	}
	return nil
}

// updateByID rewrites the row holding the article's id. Returns false
// when no such row exists and the caller should insert instead.
func (s *Store) updateByID(ctx context.Context, article *types.Article) (bool, error) {
	query, args, err := s.builder.
		Update("articles").
		Set("title", article.Title).
		Set("description", article.Description).
		Set("content", article.Content).
		Set("url", article.URL).
		Set("image_url", article.ImageURL).
		Set("source", article.Source).
		Set("category", article.Category).
		Set("published_at", article.PublishedAt).
		Set("reading_time_minutes", article.ReadingTime).
		Set("complexity", article.Complexity).
		Set("impact_score", article.ImpactScore).
		Set("is_duplicate", article.IsDuplicate).
		Set("duplicate_of", article.DuplicateOf).
		Set("similarity_score", article.SimilarityScore).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": article.ID}).
		ToSql()
	if err != nil {
		return false, err
	}

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
