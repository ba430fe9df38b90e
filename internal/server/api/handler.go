// Package api implements the thin HTTP handlers over the analytics core.
// Request validation happens here; the core only ever sees well-formed
// input.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"newspulse/analytics/internal/corpus"
	"newspulse/analytics/internal/related"
	"newspulse/analytics/internal/storage"
	"newspulse/analytics/internal/tfidf"
	"newspulse/analytics/internal/wordcloud"
	"newspulse/analytics/internal/workpool"
)

const (
	defaultTopTerms     = 50
	maxTopTerms         = 500
	defaultRelatedLimit = 5
	defaultSearchLimit  = 20
	maxSearchLimit      = 100
	analysisFetchLimit  = 5000
	dateFormat          = "2006-01-02"
)

// Handler holds dependencies for the analysis endpoints.
type Handler struct {
	repo          storage.Repository
	extractor     *tfidf.Extractor
	scorer        *related.Scorer
	generator     *wordcloud.Generator
	pool          *workpool.Pool
	wordcloudRoot string
}

// NewHandler creates a new handler instance.
func NewHandler(
	repo storage.Repository,
	extractor *tfidf.Extractor,
	scorer *related.Scorer,
	generator *wordcloud.Generator,
	pool *workpool.Pool,
	wordcloudRoot string,
) *Handler {
	return &Handler{
		repo:          repo,
		extractor:     extractor,
		scorer:        scorer,
		generator:     generator,
		pool:          pool,
		wordcloudRoot: wordcloudRoot,
	}
}

// NewsItem is the wire shape of one document in API responses.
type NewsItem struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Source      string  `json:"source,omitempty"`
	PublishedAt string  `json:"published_at,omitempty"`
	Score       float64 `json:"score"`
}

// GetTopTerms handles GET /api/analysis/tfidf.
func (h *Handler) GetTopTerms(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	n := defaultTopTerms
	if nStr := r.URL.Query().Get("n"); nStr != "" {
		parsed, err := strconv.Atoi(nStr)
		if err != nil || parsed <= 0 || parsed > maxTopTerms {
			log.Warn().Str("n", nStr).Msg("Invalid 'n' parameter")
			http.Error(w, fmt.Sprintf("Invalid 'n' parameter: must be between 1 and %d", maxTopTerms), http.StatusBadRequest)
			return
		}
		n = parsed
	}

	start, end, ok := h.dateRange(w, r)
	if !ok {
		return
	}

	batches, err := h.repo.SourceBatches(r.Context(), start, end, analysisFetchLimit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load source batches")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	texts := corpus.Build(batches, corpus.ByDate).Flatten()
	if len(texts) == 0 {
		writeJSON(w, map[string]any{"terms": []tfidf.Term{}})
		return
	}

	terms, err := workpool.Submit(r.Context(), h.pool, func() ([]tfidf.Term, error) {
		return h.extractor.TopTerms(texts, n), nil
	})
	if err != nil {
		log.Error().Err(err).Msg("TF-IDF fit aborted")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if terms == nil {
		terms = []tfidf.Term{}
	}

	writeJSON(w, map[string]any{"terms": terms})
}

// RenderWordclouds handles GET /api/analysis/wordcloud.
func (h *Handler) RenderWordclouds(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	start, end, ok := h.dateRange(w, r)
	if !ok {
		return
	}

	batches, err := h.repo.SourceBatches(r.Context(), start, end, analysisFetchLimit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load source batches")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	grouping := corpus.Build(batches, corpus.ByDate)
	if grouping.Len() == 0 {
		http.Error(w, "No documents", http.StatusNotFound)
		return
	}

	paths, err := workpool.Submit(r.Context(), h.pool, func() ([]string, error) {
		return h.generator.Render(r.Context(), grouping, h.wordcloudRoot)
	})
	if err != nil {
		log.Error().Err(err).Msg("Word cloud rendering failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{"count": len(paths), "paths": paths})
}

// GetLatestWordcloud handles GET /api/analysis/wordcloud/latest. Without a
// date parameter it resolves the most recent date-named group first.
func (h *Handler) GetLatestWordcloud(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	group := r.URL.Query().Get("date")
	if group != "" {
		if _, err := time.Parse(dateFormat, group); err != nil {
			log.Warn().Str("date", group).Msg("Invalid 'date' parameter")
			http.Error(w, "Invalid 'date' parameter: expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	} else {
		var err error
		group, err = wordcloud.LatestGroup(h.wordcloudRoot)
		if err != nil {
			if errors.Is(err, wordcloud.ErrNotFound) {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			log.Error().Err(err).Msg("Failed to resolve latest group")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}

	path, err := wordcloud.LatestImage(h.wordcloudRoot, group)
	if err != nil {
		if errors.Is(err, wordcloud.ErrNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Msg("Failed to resolve latest image")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.ServeFile(w, r, path)
}

// GetRelatedNews handles GET /api/news/{newsID}/related.
func (h *Handler) GetRelatedNews(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	newsID := chi.URLParam(r, "newsID")

	limit := defaultRelatedLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			log.Warn().Str("limit", limitStr).Msg("Invalid 'limit' parameter")
			http.Error(w, "Invalid 'limit' parameter", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	results, err := h.scorer.Related(r.Context(), newsID, limit)
	if err != nil {
		if errors.Is(err, related.ErrNoKeywords) {
			http.Error(w, "No keywords for document", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("news_id", newsID).Msg("Related news scoring failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	items := make([]NewsItem, 0, len(results))
	for _, res := range results {
		item := NewsItem{
			ID:    res.Document.ID,
			Title: res.Document.Title,
			URL:   res.Document.URL,
			Score: res.Score,
		}
		if res.Document.Source.Valid {
			item.Source = res.Document.Source.String
		}
		if res.Document.PublishedAt.Valid {
			item.PublishedAt = res.Document.PublishedAt.Time.Format(dateFormat)
		}
		items = append(items, item)
	}

	writeJSON(w, map[string]any{"total": len(items), "items": items})
}

// SearchNews handles GET /api/search/news.
func (h *Handler) SearchNews(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		http.Error(w, "Missing 'q' parameter", http.StatusBadRequest)
		return
	}

	limit := defaultSearchLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 || parsed > maxSearchLimit {
			http.Error(w, fmt.Sprintf("Invalid 'limit' parameter: must be between 1 and %d", maxSearchLimit), http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		parsed, err := strconv.Atoi(offsetStr)
		if err != nil || parsed < 0 {
			http.Error(w, "Invalid 'offset' parameter", http.StatusBadRequest)
			return
		}
		offset = parsed
	}

	results, err := h.repo.SearchByKeywords(r.Context(), strings.Fields(q), limit, offset)
	if err != nil {
		log.Error().Err(err).Str("q", q).Msg("Keyword search failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	items := make([]NewsItem, 0, len(results))
	for _, res := range results {
		item := NewsItem{
			ID:    res.ID,
			Title: res.Title,
			URL:   res.URL,
			Score: res.Score,
		}
		if res.Source.Valid {
			item.Source = res.Source.String
		}
		if res.PublishedAt.Valid {
			item.PublishedAt = res.PublishedAt.Time.Format(dateFormat)
		}
		items = append(items, item)
	}

	writeJSON(w, map[string]any{"total": len(items), "items": items})
}

// dateRange parses optional start_date/end_date parameters. A malformed
// date is rejected here, before any core logic runs.
func (h *Handler) dateRange(w http.ResponseWriter, r *http.Request) (start, end *time.Time, ok bool) {
	for _, param := range []struct {
		name string
		dst  **time.Time
	}{
		{"start_date", &start},
		{"end_date", &end},
	} {
		value := r.URL.Query().Get(param.name)
		if value == "" {
			continue
		}
		parsed, err := time.Parse(dateFormat, value)
		if err != nil {
			hlog.FromRequest(r).Warn().Str(param.name, value).Msg("Invalid date parameter")
			http.Error(w, fmt.Sprintf("Invalid '%s' parameter: expected YYYY-MM-DD", param.name), http.StatusBadRequest)
			return nil, nil, false
		}
		*param.dst = &parsed
	}
	return start, end, true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Headers are already written; nothing left to do but log.
		// The access log middleware records the truncated response.
		return
	}
}
