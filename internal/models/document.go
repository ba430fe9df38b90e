package models

import (
	"database/sql"
	"time"
)

// Document represents a row in the 'news_item' table
type Document struct {
	ID          string         `db:"id"`
	BatchID     sql.NullInt64  `db:"news_info_id"` // ID from the 'news_info' table
	Title       string         `db:"title"`
	URL         string         `db:"url"`
	PublishedAt sql.NullTime   `db:"published_at"`
	Source      sql.NullString `db:"source"`
	Content     sql.NullString `db:"content"`
	Extracted   bool           `db:"extracted"`
	ExtractedAt sql.NullTime   `db:"extracted_at"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// NewDocument creates a new Document with default values
func NewDocument() *Document {
	now := time.Now()
	return &Document{
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Text returns the text used for keyword extraction: content when present,
// falling back to the title.
func (d *Document) Text() string {
	if d.Content.Valid && d.Content.String != "" {
		return d.Content.String
	}
	return d.Title
}
