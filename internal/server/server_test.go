package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newspulse/analytics/internal/database"
	"newspulse/analytics/internal/database/migrations"
	"newspulse/analytics/internal/models"
	"newspulse/analytics/internal/server"
	"newspulse/analytics/internal/textproc"
	"newspulse/analytics/internal/tfidf"
	"newspulse/analytics/internal/wordcloud"
	"newspulse/analytics/internal/workpool"
)

func newTestServer(t *testing.T) (*httptest.Server, *database.DB) {
	t.Helper()

	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.RunMigrations(db.DB))
	wrapped := &database.DB{DB: db}

	tok := textproc.NewTokenizer(textproc.NewStopwords("the", "a"))
	pool := workpool.New(2, 16)
	t.Cleanup(pool.Close)

	deps := server.Deps{
		DB:            wrapped,
		Extractor:     tfidf.New(tok, tfidf.Config{}),
		Generator:     wordcloud.NewGenerator(tok, wordcloud.Config{}),
		Pool:          pool,
		WordcloudRoot: t.TempDir(),
	}

	ts := httptest.NewServer(server.NewRouter(deps, zerolog.Nop()))
	t.Cleanup(ts.Close)
	return ts, wrapped
}

func get(t *testing.T, ts *httptest.Server, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var body map[string]any
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp, body
}

func TestHealthCheck(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := get(t, ts, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTopTermsEmptyStore(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := get(t, ts, "/api/analysis/tfidf")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["terms"])
}

func TestTopTermsFromBatches(t *testing.T) {
	ts, db := newTestServer(t)

	payload := `{"items":[{"title":"storm warning issued","extra":{"hover":"coastal storm flooding"}},` +
		`{"title":"storm damage reported","extra":{"hover":""}}]}`
	_, err := db.Exec(
		`INSERT INTO news_info (name, news_from, news_date, data) VALUES (?, ?, ?, ?)`,
		"wire daily", "wire", "2026-08-30", payload)
	require.NoError(t, err)

	resp, body := get(t, ts, "/api/analysis/tfidf?n=3")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	terms, ok := body["terms"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, terms)
	top, ok := terms[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "storm", top["term"])
}

func TestTopTermsRejectsBadParams(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := get(t, ts, "/api/analysis/tfidf?n=0")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = get(t, ts, "/api/analysis/tfidf?start_date=30-08-2026")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = get(t, ts, "/api/analysis/tfidf?end_date=not-a-date")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWordcloudEmptyStore(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := get(t, ts, "/api/analysis/wordcloud")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLatestWordcloudMissing(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := get(t, ts, "/api/analysis/wordcloud/latest")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, ts, "/api/analysis/wordcloud/latest?date=2026-08-30")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, ts, "/api/analysis/wordcloud/latest?date=bogus")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRelatedNewsUnknownDocument(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := get(t, ts, "/api/news/missing/related")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRelatedNewsRanksByOverlap(t *testing.T) {
	ts, db := newTestServer(t)

	for _, id := range []string{"n1", "n2", "n3"} {
		_, err := db.Exec(
			`INSERT INTO news_item (id, title, url) VALUES (?, ?, ?)`,
			id, "title "+id, "https://example.test/"+id)
		require.NoError(t, err)
	}
	rows := []struct {
		id, keyword string
		weight      float64
	}{
		{"n1", "storm", 0.9},
		{"n1", "coast", 0.4},
		{"n2", "storm", 0.8},
		{"n3", "coast", 0.2},
	}
	for _, row := range rows {
		_, err := db.Exec(
			`INSERT INTO news_keywords (news_id, keyword, weight, method) VALUES (?, ?, ?, ?)`,
			row.id, row.keyword, row.weight, models.MethodTFIDF)
		require.NoError(t, err)
	}

	resp, body := get(t, ts, "/api/news/n1/related?limit=5")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["total"])

	items, ok := body["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "n2", first["id"])
}

func TestSearchNews(t *testing.T) {
	ts, db := newTestServer(t)

	_, err := db.Exec(
		`INSERT INTO news_item (id, title, url) VALUES (?, ?, ?)`,
		"n1", "quake coverage", "https://example.test/n1")
	require.NoError(t, err)
	_, err = db.Exec(
		`INSERT INTO news_keywords (news_id, keyword, weight, method) VALUES (?, ?, ?, ?)`,
		"n1", "quake", 0.7, models.MethodTFIDF)
	require.NoError(t, err)

	resp, body := get(t, ts, "/api/search/news?q=quake")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])

	resp, _ = get(t, ts, "/api/search/news")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = get(t, ts, "/api/search/news?q=quake&limit=0")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
