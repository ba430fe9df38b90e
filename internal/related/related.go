// Package related ranks candidate documents against a target document by
// overlap of persisted keyword weights.
package related

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"newspulse/analytics/internal/models"
	"newspulse/analytics/internal/storage"
)

// ErrNoKeywords signals that the target document has no persisted keywords.
// It is an absence outcome, not a failure; the caller decides the
// user-facing behavior.
var ErrNoKeywords = errors.New("no keywords for document")

// Candidate is one scored candidate document id.
type Candidate struct {
	NewsID string
	Score  float64
}

// Score accumulates min(targetWeight, candidateWeight) for every keyword a
// candidate shares with the target. Capping each contribution at the
// target's own weight keeps one outlier heavy keyword from dominating
// beyond the target's relative emphasis. Results are ordered by score
// descending, then id ascending for determinism.
func Score(target map[string]float64, rows []storage.KeywordRow) []Candidate {
	if len(target) == 0 || len(rows) == 0 {
		return nil
	}

	scores := make(map[string]float64)
	for _, row := range rows {
		targetWeight, ok := target[row.Keyword]
		if !ok {
			continue
		}
		scores[row.NewsID] += math.Min(targetWeight, row.Weight)
	}
	if len(scores) == 0 {
		return nil
	}

	candidates := make([]Candidate, 0, len(scores))
	for id, score := range scores {
		candidates = append(candidates, Candidate{NewsID: id, Score: score})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].NewsID < candidates[j].NewsID
	})
	return candidates
}

// RelatedNews is one recommendation: the candidate document with its
// similarity score.
type RelatedNews struct {
	Document models.Document
	Score    float64
}

// Scorer composes the repository with the overlap metric.
type Scorer struct {
	repo storage.Repository
}

// NewScorer creates a scorer backed by the repository.
func NewScorer(repo storage.Repository) *Scorer {
	return &Scorer{repo: repo}
}

// Related returns up to limit candidates ranked against the target
// document. ErrNoKeywords is returned when the target has no persisted
// keywords; an empty result means no candidate shares any keyword.
func (s *Scorer) Related(ctx context.Context, newsID string, limit int) ([]RelatedNews, error) {
	target, err := s.repo.KeywordWeights(ctx, newsID)
	if err != nil {
		return nil, fmt.Errorf("failed to load target keywords: %w", err)
	}
	if len(target) == 0 {
		return nil, ErrNoKeywords
	}

	rows, err := s.repo.KeywordWeightsExcluding(ctx, newsID)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate keywords: %w", err)
	}

	candidates := Score(target, rows)
	if len(candidates) == 0 {
		return []RelatedNews{}, nil
	}
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.NewsID)
	}

	docs, err := s.repo.DocumentsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate documents: %w", err)
	}
	byID := make(map[string]models.Document, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
	}

	// Preserve ranking order while backfilling details.
	results := make([]RelatedNews, 0, len(candidates))
	for _, c := range candidates {
		doc, ok := byID[c.NewsID]
		if !ok {
			continue
		}
		results = append(results, RelatedNews{Document: doc, Score: c.Score})
	}
	return results, nil
}
