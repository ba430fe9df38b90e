package models

import (
	"database/sql"
	"time"
)

// SourceBatch represents a row in the 'news_info' table. The Data column
// holds the raw payload delivered by the upstream collector, a JSON object
// with an "items" list of document stubs.
type SourceBatch struct {
	ID          int64        `db:"id"`
	Name        string       `db:"name"`
	NewsFrom    string       `db:"news_from"`
	NewsDate    time.Time    `db:"news_date"`
	Data        []byte       `db:"data"` // JSON payload {"items": [{"title": ..., "extra": {"hover": ...}}]}
	Extracted   bool         `db:"extracted"`
	ExtractedAt sql.NullTime `db:"extracted_at"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
}

// NewSourceBatch creates a new SourceBatch with default values
func NewSourceBatch() *SourceBatch {
	now := time.Now()
	return &SourceBatch{
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// BatchPayload is the decoded shape of SourceBatch.Data.
type BatchPayload struct {
	Items []BatchItem `json:"items"`
}

// BatchItem is one embedded document stub inside a batch payload.
type BatchItem struct {
	Title string     `json:"title"`
	Extra BatchExtra `json:"extra"`
}

// BatchExtra carries optional auxiliary text attached to a stub.
type BatchExtra struct {
	Hover string `json:"hover"`
}
