package models

import "time"

// MethodTFIDF is the default extraction method tag. The method column is an
// open string so other strategies can coexist per document without a schema
// change.
const MethodTFIDF = "tfidf"

// KeywordWeight represents a row in the 'news_keywords' table. At most one
// row exists per (news_id, keyword, method).
type KeywordWeight struct {
	NewsID    string    `db:"news_id"`
	Keyword   string    `db:"keyword"`
	Weight    float64   `db:"weight"`
	Method    string    `db:"method"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
