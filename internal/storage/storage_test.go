package storage_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"newspulse/analytics/internal/database"
	"newspulse/analytics/internal/database/migrations"
	"newspulse/analytics/internal/models"
	"newspulse/analytics/internal/storage"
)

func newTestRepo(t *testing.T) (storage.Repository, *database.DB) {
	t.Helper()

	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)
	require.NoError(t, migrations.RunMigrations(db.DB))

	wrapped := &database.DB{DB: db}
	return storage.NewRepository(wrapped), wrapped
}

func seedDocument(t *testing.T, db *database.DB, id, title, published string) {
	t.Helper()
	var publishedAt any
	if published != "" {
		publishedAt = published
	}
	_, err := db.Exec(
		`INSERT INTO news_item (id, title, url, published_at, source) VALUES (?, ?, ?, ?, ?)`,
		id, title, "https://example.test/"+id, publishedAt, "wire")
	require.NoError(t, err)
}

func seedBatch(t *testing.T, db *database.DB, id int64, from, date, data string) {
	t.Helper()
	var payload any
	if data != "" {
		payload = data
	}
	_, err := db.Exec(
		`INSERT INTO news_info (id, name, news_from, news_date, data) VALUES (?, ?, ?, ?, ?)`,
		id, from+" daily", from, date, payload)
	require.NoError(t, err)
}

func keywordCount(t *testing.T, db *database.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM news_keywords`))
	return n
}

func TestSaveKeywordWeightsIdempotent(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	seedDocument(t, db, "n1", "first", "2024-01-02")

	batch := []models.KeywordWeight{
		{NewsID: "n1", Keyword: "storm", Weight: 0.8, Method: "tfidf"},
		{NewsID: "n1", Keyword: "flood", Weight: 0.5, Method: "tfidf"},
	}

	require.NoError(t, repo.SaveKeywordWeights(ctx, batch))
	require.NoError(t, repo.SaveKeywordWeights(ctx, batch))
	require.Equal(t, 2, keywordCount(t, db))

	// Re-extraction with a new weight refreshes the row instead of
	// duplicating it.
	batch[0].Weight = 0.9
	require.NoError(t, repo.SaveKeywordWeights(ctx, batch))
	require.Equal(t, 2, keywordCount(t, db))

	weights, err := repo.KeywordWeights(ctx, "n1")
	require.NoError(t, err)
	require.Equal(t, map[string]float64{"storm": 0.9, "flood": 0.5}, weights)
}

func TestSaveKeywordWeightsMarksExtracted(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	seedDocument(t, db, "n1", "first", "2024-01-02")
	seedDocument(t, db, "n2", "second", "2024-01-02")

	err := repo.SaveKeywordWeights(ctx, []models.KeywordWeight{
		{NewsID: "n1", Keyword: "storm", Weight: 0.8},
		{NewsID: "n1", Keyword: "flood", Weight: 0.5},
		{NewsID: "n2", Keyword: "storm", Weight: 0.3},
	})
	require.NoError(t, err)

	for _, id := range []string{"n1", "n2"} {
		doc, err := repo.DocumentByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, doc)
		require.True(t, doc.Extracted)
		require.True(t, doc.ExtractedAt.Valid)
	}
}

func TestSaveKeywordWeightsEmptyNoop(t *testing.T) {
	repo, db := newTestRepo(t)

	require.NoError(t, repo.SaveKeywordWeights(context.Background(), nil))
	require.Equal(t, 0, keywordCount(t, db))
}

func TestSaveKeywordWeightsAtomicRollback(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	seedDocument(t, db, "n1", "first", "2024-01-02")

	// The second row violates the foreign key, so the whole unit must
	// roll back: no keyword row and no flag flip from this batch.
	err := repo.SaveKeywordWeights(ctx, []models.KeywordWeight{
		{NewsID: "n1", Keyword: "storm", Weight: 0.8},
		{NewsID: "missing", Keyword: "storm", Weight: 0.4},
	})
	require.Error(t, err)

	require.Equal(t, 0, keywordCount(t, db))
	doc, err := repo.DocumentByID(ctx, "n1")
	require.NoError(t, err)
	require.False(t, doc.Extracted)
	require.False(t, doc.ExtractedAt.Valid)
}

func TestUnextractedDocuments(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	seedDocument(t, db, "n1", "oldest", "2024-01-01")
	seedDocument(t, db, "n2", "newest", "2024-01-03")
	seedDocument(t, db, "n3", "middle", "2024-01-02")

	docs, err := repo.UnextractedDocuments(ctx, nil, nil, 10)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	require.Equal(t, "n2", docs[0].ID) // newest published first

	// Extracted documents drop out of the selection.
	require.NoError(t, repo.SaveKeywordWeights(ctx, []models.KeywordWeight{
		{NewsID: "n2", Keyword: "storm", Weight: 0.8},
	}))
	docs, err = repo.UnextractedDocuments(ctx, nil, nil, 10)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	// Date bounds are inclusive.
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	docs, err = repo.UnextractedDocuments(ctx, &start, nil, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "n3", docs[0].ID)

	// Limit caps the result.
	docs, err = repo.UnextractedDocuments(ctx, nil, nil, 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestDocumentByIDAbsent(t *testing.T) {
	repo, _ := newTestRepo(t)

	doc, err := repo.DocumentByID(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, doc)
}

func TestKeywordWeightsExcluding(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	seedDocument(t, db, "n1", "first", "2024-01-02")
	seedDocument(t, db, "n2", "second", "2024-01-02")

	require.NoError(t, repo.SaveKeywordWeights(ctx, []models.KeywordWeight{
		{NewsID: "n1", Keyword: "storm", Weight: 0.8},
		{NewsID: "n2", Keyword: "storm", Weight: 0.3},
		{NewsID: "n2", Keyword: "flood", Weight: 0.6},
	}))

	rows, err := repo.KeywordWeightsExcluding(ctx, "n1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		require.Equal(t, "n2", row.NewsID)
	}
}

func TestSearchByKeywords(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	seedDocument(t, db, "n1", "storm coverage", "2024-01-02")
	seedDocument(t, db, "n2", "flood coverage", "2024-01-02")

	require.NoError(t, repo.SaveKeywordWeights(ctx, []models.KeywordWeight{
		{NewsID: "n1", Keyword: "storm", Weight: 0.8},
		{NewsID: "n1", Keyword: "coast", Weight: 0.2},
		{NewsID: "n2", Keyword: "storm", Weight: 0.3},
	}))

	results, err := repo.SearchByKeywords(ctx, []string{"storm"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "n1", results[0].ID)
	require.InDelta(t, 0.8, results[0].Score, 1e-9)

	results, err = repo.SearchByKeywords(ctx, nil, 10, 0)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSaveDocumentsMarksBatchExtracted(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	seedBatch(t, db, 1, "wire", "2024-01-02", `{"items":[{"title":"a"}]}`)

	docs := []models.Document{
		{
			ID:          "n1",
			BatchID:     sql.NullInt64{Int64: 1, Valid: true},
			Title:       "a",
			URL:         "https://example.test/n1",
			PublishedAt: sql.NullTime{Time: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Valid: true},
		},
	}
	require.NoError(t, repo.SaveDocuments(ctx, docs))

	// Idempotent: replaying the batch leaves a single document row.
	require.NoError(t, repo.SaveDocuments(ctx, docs))
	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM news_item`))
	require.Equal(t, 1, n)

	batches, err := repo.SourceBatches(ctx, nil, nil, 10)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.True(t, batches[0].Extracted)
}
