package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"newspulse/analytics/internal/models"
)

// SaveKeywordWeights persists a batch of keyword weights and flips the
// owning documents' extracted flag in one transaction. The upsert is keyed
// on (news_id, keyword, method): re-extraction refreshes the weight, never
// duplicates a row. Empty input is a no-op with no transaction. Any failure
// rolls back the whole unit.
func (r *sqlxRepository) SaveKeywordWeights(ctx context.Context, rows []models.KeywordWeight) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO news_keywords (news_id, keyword, weight, method)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(news_id, keyword, method) DO UPDATE SET
			weight = excluded.weight,
			method = excluded.method,
			updated_at = CURRENT_TIMESTAMP;`)
	if err != nil {
		return fmt.Errorf("failed to prepare keyword upsert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		method := row.Method
		if method == "" {
			method = models.MethodTFIDF
		}
		if _, err := stmt.ExecContext(ctx, row.NewsID, row.Keyword, row.Weight, method); err != nil {
			return fmt.Errorf("failed to upsert keyword %q for %s: %w", row.Keyword, row.NewsID, err)
		}
	}

	ids := dedupeIDs(rows)
	if err := markDocumentsExtracted(ctx, tx, ids); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Debug().
		Int("keywords", len(rows)).
		Int("documents", len(ids)).
		Msg("Keyword batch persisted")
	return nil
}

// SaveDocuments upserts document rows delivered in batch payloads and marks
// their owning batches extracted in the same transaction.
func (r *sqlxRepository) SaveDocuments(ctx context.Context, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO news_item (id, news_info_id, title, url, published_at, source, content)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			url = excluded.url,
			published_at = excluded.published_at,
			source = excluded.source,
			content = excluded.content,
			updated_at = CURRENT_TIMESTAMP;`)
	if err != nil {
		return fmt.Errorf("failed to prepare document upsert: %w", err)
	}
	defer stmt.Close()

	batchIDs := make(map[int64]struct{})
	for _, doc := range docs {
		// Dates are stored as YYYY-MM-DD text so SQL date-bound
		// comparisons stay plain string comparisons.
		var published any
		if doc.PublishedAt.Valid {
			published = doc.PublishedAt.Time.Format("2006-01-02")
		}
		if _, err := stmt.ExecContext(ctx,
			doc.ID, doc.BatchID, doc.Title, doc.URL,
			published, doc.Source, doc.Content,
		); err != nil {
			return fmt.Errorf("failed to upsert document %s: %w", doc.ID, err)
		}
		if doc.BatchID.Valid {
			batchIDs[doc.BatchID.Int64] = struct{}{}
		}
	}

	if len(batchIDs) > 0 {
		ids := make([]int64, 0, len(batchIDs))
		for id := range batchIDs {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		query, args, err := sqlx.In(`
			UPDATE news_info
			SET extracted = 1, extracted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
			WHERE id IN (?)`, ids)
		if err != nil {
			return fmt.Errorf("failed to build batch update: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("failed to mark batches extracted: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Debug().
		Int("documents", len(docs)).
		Int("batches", len(batchIDs)).
		Msg("Document batch persisted")
	return nil
}

// markDocumentsExtracted sets extracted=1 with a fresh timestamp for all ids
// in one batched update inside the caller's transaction.
func markDocumentsExtracted(ctx context.Context, tx *sqlx.Tx, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`
		UPDATE news_item
		SET extracted = 1, extracted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("failed to build extracted update: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to mark documents extracted: %w", err)
	}
	return nil
}

// dedupeIDs returns the sorted set of document ids referenced by the batch.
func dedupeIDs(rows []models.KeywordWeight) []string {
	seen := make(map[string]struct{}, len(rows))
	var ids []string
	for _, row := range rows {
		if _, ok := seen[row.NewsID]; ok {
			continue
		}
		seen[row.NewsID] = struct{}{}
		ids = append(ids, row.NewsID)
	}
	sort.Strings(ids)
	return ids
}
