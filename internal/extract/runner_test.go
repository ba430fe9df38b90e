package extract_test

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"newspulse/analytics/internal/database"
	"newspulse/analytics/internal/database/migrations"
	"newspulse/analytics/internal/extract"
	"newspulse/analytics/internal/storage"
	"newspulse/analytics/internal/textproc"
	"newspulse/analytics/internal/tfidf"
	"newspulse/analytics/internal/workpool"
)

func newTestRepo(t *testing.T) (storage.Repository, *database.DB) {
	t.Helper()

	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.RunMigrations(db.DB))

	wrapped := &database.DB{DB: db}
	return storage.NewRepository(wrapped), wrapped
}

func newRunner(repo storage.Repository, t *testing.T) *extract.Runner {
	pool := workpool.New(2, 4)
	t.Cleanup(pool.Close)
	extractor := tfidf.New(textproc.NewTokenizer(nil), tfidf.Config{})
	return extract.NewRunner(repo, extractor, pool, extract.Config{KeywordsPerDoc: 5})
}

func seed(t *testing.T, db *database.DB, id, title, content string) {
	t.Helper()
	var body any
	if content != "" {
		body = content
	}
	_, err := db.Exec(
		`INSERT INTO news_item (id, title, url, published_at, content) VALUES (?, ?, ?, ?, ?)`,
		id, title, "https://example.test/"+id, "2024-01-02", body)
	require.NoError(t, err)
}

func TestRunExtractsAndMarks(t *testing.T) {
	repo, db := newTestRepo(t)
	seed(t, db, "n1", "markets", "market rally continues on strong earnings")
	seed(t, db, "n2", "weather", "storm warning issued for the coast")

	runner := newRunner(repo, t)
	require.NoError(t, runner.Run(context.Background()))

	for _, id := range []string{"n1", "n2"} {
		doc, err := repo.DocumentByID(context.Background(), id)
		require.NoError(t, err)
		require.True(t, doc.Extracted)

		weights, err := repo.KeywordWeights(context.Background(), id)
		require.NoError(t, err)
		require.NotEmpty(t, weights)
	}

	processed, keywords, skipped := runner.Stats()
	require.EqualValues(t, 2, processed)
	require.Greater(t, keywords, int64(0))
	require.EqualValues(t, 0, skipped)

	// Second run finds nothing left to extract.
	require.NoError(t, runner.Run(context.Background()))
	processed, _, _ = runner.Stats()
	require.EqualValues(t, 2, processed)
}

func TestRunEmptyStore(t *testing.T) {
	repo, _ := newTestRepo(t)

	runner := newRunner(repo, t)
	require.NoError(t, runner.Run(context.Background()))

	processed, keywords, skipped := runner.Stats()
	require.Zero(t, processed)
	require.Zero(t, keywords)
	require.Zero(t, skipped)
}

func TestRunFallsBackToTitle(t *testing.T) {
	repo, db := newTestRepo(t)
	seed(t, db, "n1", "volcano eruption alert", "")

	runner := newRunner(repo, t)
	require.NoError(t, runner.Run(context.Background()))

	weights, err := repo.KeywordWeights(context.Background(), "n1")
	require.NoError(t, err)
	require.Contains(t, weights, "volcano")
}

func TestRunCancelledBeforeFit(t *testing.T) {
	repo, db := newTestRepo(t)
	seed(t, db, "n1", "markets", "market rally")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := newRunner(repo, t)
	require.Error(t, runner.Run(ctx))

	// No partial state: nothing persisted, nothing marked.
	doc, err := repo.DocumentByID(context.Background(), "n1")
	require.NoError(t, err)
	require.False(t, doc.Extracted)
}
