// Package storage provides the repository over the relational store: row
// fetches for the analytics pipeline and the atomic keyword persistence
// unit.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"newspulse/analytics/internal/database"
	"newspulse/analytics/internal/models"
)

// KeywordRow is one (news_id, keyword, weight) tuple from the similarity
// scan.
type KeywordRow struct {
	NewsID  string  `db:"news_id"`
	Keyword string  `db:"keyword"`
	Weight  float64 `db:"weight"`
}

// SearchResult is one search hit with its aggregated keyword-weight score.
type SearchResult struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	URL         string         `db:"url"`
	Source      sql.NullString `db:"source"`
	PublishedAt sql.NullTime   `db:"published_at"`
	Score       float64        `db:"score"`
}

// Repository defines operations for accessing documents, batches and
// keyword weights.
type Repository interface {
	UnextractedDocuments(ctx context.Context, start, end *time.Time, limit int) ([]models.Document, error)
	DocumentByID(ctx context.Context, id string) (*models.Document, error)
	DocumentsByIDs(ctx context.Context, ids []string) ([]models.Document, error)
	SourceBatches(ctx context.Context, start, end *time.Time, limit int) ([]models.SourceBatch, error)
	KeywordWeights(ctx context.Context, newsID string) (map[string]float64, error)
	KeywordWeightsExcluding(ctx context.Context, newsID string) ([]KeywordRow, error)
	SearchByKeywords(ctx context.Context, terms []string, limit, offset int) ([]SearchResult, error)
	SaveKeywordWeights(ctx context.Context, rows []models.KeywordWeight) error
	SaveDocuments(ctx context.Context, docs []models.Document) error
}

// sqlxRepository implements Repository using sqlx.
type sqlxRepository struct {
	db *database.DB
}

// NewRepository creates a new repository instance.
func NewRepository(db *database.DB) Repository {
	return &sqlxRepository{db: db}
}

// UnextractedDocuments retrieves documents with extracted=0, optionally
// date-bounded, newest published first, capped at limit.
func (r *sqlxRepository) UnextractedDocuments(ctx context.Context, start, end *time.Time, limit int) ([]models.Document, error) {
	query := `SELECT * FROM news_item WHERE extracted = 0`
	var args []any

	if start != nil {
		query += ` AND published_at >= ?`
		args = append(args, start.Format("2006-01-02"))
	}
	if end != nil {
		query += ` AND published_at <= ?`
		args = append(args, end.Format("2006-01-02"))
	}
	query += ` ORDER BY published_at DESC LIMIT ?`
	args = append(args, limit)

	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []models.Document{}, nil
		}
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return docs, nil
}

// DocumentByID retrieves one document, nil when absent.
func (r *sqlxRepository) DocumentByID(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := r.db.GetContext(ctx, &doc, `SELECT * FROM news_item WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return &doc, nil
}

// DocumentsByIDs retrieves the documents for the given ids. Missing ids are
// silently absent from the result.
func (r *sqlxRepository) DocumentsByIDs(ctx context.Context, ids []string) ([]models.Document, error) {
	if len(ids) == 0 {
		return []models.Document{}, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM news_item WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return docs, nil
}

// SourceBatches retrieves batch rows, optionally date-bounded, newest news
// date first, capped at limit.
func (r *sqlxRepository) SourceBatches(ctx context.Context, start, end *time.Time, limit int) ([]models.SourceBatch, error) {
	query := `SELECT * FROM news_info WHERE 1 = 1`
	var args []any

	if start != nil {
		query += ` AND news_date >= ?`
		args = append(args, start.Format("2006-01-02"))
	}
	if end != nil {
		query += ` AND news_date <= ?`
		args = append(args, end.Format("2006-01-02"))
	}
	query += ` ORDER BY news_date DESC LIMIT ?`
	args = append(args, limit)

	var batches []models.SourceBatch
	if err := r.db.SelectContext(ctx, &batches, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []models.SourceBatch{}, nil
		}
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return batches, nil
}

// KeywordWeights retrieves the keyword->weight mapping persisted for one
// document. An empty map means no keywords have been extracted.
func (r *sqlxRepository) KeywordWeights(ctx context.Context, newsID string) (map[string]float64, error) {
	var rows []KeywordRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT news_id, keyword, weight FROM news_keywords WHERE news_id = ?`, newsID)
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}

	weights := make(map[string]float64, len(rows))
	for _, row := range rows {
		weights[row.Keyword] = row.Weight
	}
	return weights, nil
}

// KeywordWeightsExcluding retrieves the keyword rows of every document
// except the given one, for the similarity scan.
func (r *sqlxRepository) KeywordWeightsExcluding(ctx context.Context, newsID string) ([]KeywordRow, error) {
	var rows []KeywordRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT news_id, keyword, weight FROM news_keywords WHERE news_id != ?`, newsID)
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return rows, nil
}

// SearchByKeywords aggregates persisted weights over LIKE-matched keywords,
// ranks document ids by summed weight and backfills document details.
func (r *sqlxRepository) SearchByKeywords(ctx context.Context, terms []string, limit, offset int) ([]SearchResult, error) {
	if len(terms) == 0 {
		return []SearchResult{}, nil
	}

	query := `SELECT news_id, COALESCE(SUM(weight), 0) AS score FROM news_keywords WHERE `
	var args []any
	for i, term := range terms {
		if i > 0 {
			query += ` OR `
		}
		query += `keyword LIKE ?`
		args = append(args, "%"+term+"%")
	}
	query += ` GROUP BY news_id ORDER BY score DESC, news_id ASC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	var scored []struct {
		NewsID string  `db:"news_id"`
		Score  float64 `db:"score"`
	}
	if err := r.db.SelectContext(ctx, &scored, query, args...); err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	if len(scored) == 0 {
		return []SearchResult{}, nil
	}

	ids := make([]string, 0, len(scored))
	scores := make(map[string]float64, len(scored))
	for _, s := range scored {
		ids = append(ids, s.NewsID)
		scores[s.NewsID] = s.Score
	}

	docs, err := r.DocumentsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Document, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
	}

	// Preserve the aggregation order.
	results := make([]SearchResult, 0, len(ids))
	for _, id := range ids {
		doc, ok := byID[id]
		if !ok {
			continue
		}
		results = append(results, SearchResult{
			ID:          doc.ID,
			Title:       doc.Title,
			URL:         doc.URL,
			Source:      doc.Source,
			PublishedAt: doc.PublishedAt,
			Score:       scores[id],
		})
	}
	return results, nil
}
