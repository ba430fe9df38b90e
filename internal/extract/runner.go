// Package extract orchestrates one keyword-extraction run: fetch
// not-yet-extracted documents, fit TF-IDF off the caller's goroutine and
// persist the weights atomically with the extracted-state transition.
package extract

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"newspulse/analytics/internal/models"
	"newspulse/analytics/internal/storage"
	"newspulse/analytics/internal/textproc"
	"newspulse/analytics/internal/tfidf"
	"newspulse/analytics/internal/workpool"
)

// Config bounds one extraction run.
type Config struct {
	FetchLimit     int // max documents per run
	KeywordsPerDoc int // top-K keywords persisted per document
}

// Runner executes extraction runs. Two overlapping runs may select the same
// documents before either commits; the upsert makes double-processing
// idempotent in effect, so no per-document lock is held.
type Runner struct {
	repo      storage.Repository
	extractor *tfidf.Extractor
	pool      *workpool.Pool
	cfg       Config

	processed atomic.Int64
	keywords  atomic.Int64
	skipped   atomic.Int64
}

// NewRunner creates a runner over the repository, extractor and worker
// pool.
func NewRunner(repo storage.Repository, extractor *tfidf.Extractor, pool *workpool.Pool, cfg Config) *Runner {
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = 1000
	}
	if cfg.KeywordsPerDoc <= 0 {
		cfg.KeywordsPerDoc = 20
	}
	return &Runner{repo: repo, extractor: extractor, pool: pool, cfg: cfg}
}

// Run executes one extraction run over all unextracted documents.
func (r *Runner) Run(ctx context.Context) error {
	return r.RunRange(ctx, nil, nil)
}

// RunRange executes one extraction run bounded to the published-date range.
// The TF-IDF fit happens on the worker pool; persistence only starts after
// the fit returns to this caller, so cancellation never leaves partial
// state.
func (r *Runner) RunRange(ctx context.Context, start, end *time.Time) error {
	docs, err := r.repo.UnextractedDocuments(ctx, start, end, r.cfg.FetchLimit)
	if err != nil {
		return fmt.Errorf("failed to load unextracted documents: %w", err)
	}
	if len(docs) == 0 {
		log.Info().Msg("No unextracted documents, nothing to do")
		return nil
	}

	log.Info().Int("documents", len(docs)).Msg("Starting keyword extraction")

	inputs := make([]tfidf.Document, len(docs))
	for i, doc := range docs {
		inputs[i] = tfidf.Document{ID: doc.ID, Text: textproc.Clean(doc.Text())}
	}

	extracted, err := workpool.Submit(ctx, r.pool, func() ([]tfidf.Keyword, error) {
		return r.extractor.DocumentKeywords(inputs, r.cfg.KeywordsPerDoc), nil
	})
	if err != nil {
		return fmt.Errorf("extraction aborted: %w", err)
	}

	if len(extracted) == 0 {
		r.skipped.Add(int64(len(docs)))
		log.Info().Int("documents", len(docs)).Msg("No keywords produced for batch")
		return nil
	}

	rows := make([]models.KeywordWeight, len(extracted))
	withKeywords := make(map[string]struct{})
	for i, kw := range extracted {
		rows[i] = models.KeywordWeight{
			NewsID:  kw.NewsID,
			Keyword: kw.Keyword,
			Weight:  kw.Weight,
			Method:  kw.Method,
		}
		withKeywords[kw.NewsID] = struct{}{}
	}

	if err := r.repo.SaveKeywordWeights(ctx, rows); err != nil {
		return fmt.Errorf("failed to persist keyword batch: %w", err)
	}

	r.processed.Add(int64(len(withKeywords)))
	r.keywords.Add(int64(len(rows)))
	r.skipped.Add(int64(len(docs) - len(withKeywords)))

	log.Info().
		Int("documents", len(withKeywords)).
		Int("keywords", len(rows)).
		Int("skipped", len(docs)-len(withKeywords)).
		Msg("Extraction run finished")
	return nil
}

// Stats returns cumulative run statistics.
func (r *Runner) Stats() (processed, keywords, skipped int64) {
	return r.processed.Load(), r.keywords.Load(), r.skipped.Load()
}
