package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"newswire/types"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "postgres")
	return New(db, 5*time.Second, zap.NewNop()), mock
}

func articleRows(articles ...types.Article) *sqlmock.Rows {
	rows := sqlmock.NewRows(articleColumns)
	for _, a := range articles {
		rows.AddRow(a.ID, a.Title, a.Description, a.Content, a.URL, a.ImageURL,
			a.Source, a.Category, a.PublishedAt, a.ReadingTime, a.Complexity,
			a.ImpactScore, a.IsDuplicate, a.DuplicateOf, a.SimilarityScore,
			a.CreatedAt, a.UpdatedAt)
	}
	return rows
}

func TestFindByURLHit(t *testing.T) {
	store, mock := newTestStore(t)

	url := "https://example.com/robots"
	stored := types.Article{ID: "a1", Title: "Robots learn to walk", URL: &url}

	mock.ExpectQuery(`SELECT .+ FROM articles WHERE url = \$1`).
		WithArgs(url).
		WillReturnRows(articleRows(stored))

	got, err := store.FindByURL(context.Background(), url)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "a1", got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByURLMissReturnsNil(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT .+ FROM articles WHERE url = \$1`).
		WithArgs("https://example.com/none").
		WillReturnRows(articleRows())

	got, err := store.FindByURL(context.Background(), "https://example.com/none")
	require.NoError(t, err)
	require.Nil(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByTitleSurfacesTypedError(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT .+ FROM articles WHERE title = \$1`).
		WillReturnError(context.DeadlineExceeded)

	_, err := store.FindByTitle(context.Background(), "anything")
	require.Error(t, err)

	var opError *OpError
	require.ErrorAs(t, err, &opError)
	require.Equal(t, "find_by_title", opError.Op)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentWindowQueryShape(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT .+ FROM articles WHERE created_at >= \$1 ORDER BY created_at DESC LIMIT 100`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(articleRows(
			types.Article{ID: "new", Title: "Newest"},
			types.Article{ID: "old", Title: "Older"},
		))

	window, err := store.RecentWindow(context.Background(), 7, 100)
	require.NoError(t, err)
	require.Len(t, window, 2)
	require.Equal(t, "new", window[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertGeneratesIDAndWrites(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec(`INSERT INTO articles .+ ON CONFLICT \(title\) DO UPDATE SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	article := &types.Article{Title: "Fresh story", Source: "wire"}
	require.NoError(t, store.Upsert(context.Background(), article))
	require.NotEmpty(t, article.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertKeepsProvidedID(t *testing.T) {
	store, mock := newTestStore(t)

	// The provided id matches no row, so the write falls through to the
	// insert.
	mock.ExpectExec(`UPDATE articles SET .+ WHERE id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO articles`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	article := &types.Article{ID: "keep-me", Title: "Existing story"}
	require.NoError(t, store.Upsert(context.Background(), article))
	require.Equal(t, "keep-me", article.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRewritesRowByID(t *testing.T) {
	store, mock := newTestStore(t)

	// An id hit rewrites the row, title included, with no insert; this
	// is the path a re-fetched URL with a changed headline takes.
	mock.ExpectExec(`UPDATE articles SET .+ WHERE id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	url := "https://example.com/launch"
	article := &types.Article{ID: "stored-1", Title: "Updated headline", URL: &url}
	require.NoError(t, store.Upsert(context.Background(), article))
	require.NoError(t, mock.ExpectationsWereMet())
}
