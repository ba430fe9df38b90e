// Package corpus flattens source batch payloads into keyed collections of
// normalized document texts.
package corpus

import (
	"encoding/json"
	"strconv"

	"github.com/rs/zerolog/log"

	"newspulse/analytics/internal/models"
	"newspulse/analytics/internal/textproc"
)

// KeyFunc selects the bucket key for a batch. Call sites group differently
// (by date for trend products, by batch id for per-batch extraction), so the
// selector is always explicit.
type KeyFunc func(b models.SourceBatch) string

// ByDate keys batches by their news date in YYYY-MM-DD form.
func ByDate(b models.SourceBatch) string {
	return b.NewsDate.Format("2006-01-02")
}

// ByBatchID keys batches by their own id.
func ByBatchID(b models.SourceBatch) string {
	return strconv.FormatInt(b.ID, 10)
}

// Grouping buckets normalized texts by key. Key order follows first
// insertion; texts within a bucket keep append order.
type Grouping struct {
	keys    []string
	buckets map[string][]string
}

// NewGrouping creates an empty grouping.
func NewGrouping() *Grouping {
	return &Grouping{buckets: make(map[string][]string)}
}

// Add appends a text to the bucket for key, creating the bucket lazily.
func (g *Grouping) Add(key, text string) {
	if _, ok := g.buckets[key]; !ok {
		g.keys = append(g.keys, key)
	}
	g.buckets[key] = append(g.buckets[key], text)
}

// Keys returns bucket keys in first-insertion order.
func (g *Grouping) Keys() []string {
	return g.keys
}

// Texts returns the texts bucketed under key, nil when the bucket does not
// exist.
func (g *Grouping) Texts(key string) []string {
	return g.buckets[key]
}

// Len returns the number of buckets.
func (g *Grouping) Len() int {
	return len(g.keys)
}

// Flatten returns every text across all buckets in grouping order, the flat
// corpus used for a global TF-IDF fit.
func (g *Grouping) Flatten() []string {
	var out []string
	for _, key := range g.keys {
		out = append(out, g.buckets[key]...)
	}
	return out
}

// Build decodes each batch's JSON payload, concatenates item title and hover
// text, normalizes the result and appends it to the bucket named by key.
// Batches with no payload, undecodable payloads or empty item lists
// contribute nothing.
func Build(batches []models.SourceBatch, key KeyFunc) *Grouping {
	g := NewGrouping()
	for _, batch := range batches {
		if len(batch.Data) == 0 {
			continue
		}

		var payload models.BatchPayload
		if err := json.Unmarshal(batch.Data, &payload); err != nil {
			log.Debug().
				Err(err).
				Int64("batch_id", batch.ID).
				Msg("Skipping batch with undecodable payload")
			continue
		}

		for _, item := range payload.Items {
			text := item.Title
			if item.Extra.Hover != "" {
				text += " " + item.Extra.Hover
			}
			g.Add(key(batch), textproc.Clean(text))
		}
	}
	return g
}
