// Package tfidf implements a deterministic TF-IDF vectorizer over in-memory
// text, producing either a corpus-level ranked term list or per-document
// keyword weights.
package tfidf

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"newspulse/analytics/internal/models"
	"newspulse/analytics/internal/textproc"
)

const defaultMaxFeatures = 2000

// Config bounds the fitted vocabulary.
type Config struct {
	MaxFeatures int     // vocabulary ceiling, defaults to 2000 when <= 0
	NgramMin    int     // smallest n-gram length, defaults to 1
	NgramMax    int     // largest n-gram length, defaults to NgramMin
	MinDF       int     // drop terms appearing in fewer documents, defaults to 1
	MaxDF       float64 // drop terms appearing in more than this fraction of documents, defaults to 1.0
}

func (c Config) normalized() Config {
	if c.MaxFeatures <= 0 {
		c.MaxFeatures = defaultMaxFeatures
	}
	if c.NgramMin <= 0 {
		c.NgramMin = 1
	}
	if c.NgramMax < c.NgramMin {
		c.NgramMax = c.NgramMin
	}
	if c.MinDF <= 0 {
		c.MinDF = 1
	}
	if c.MaxDF <= 0 || c.MaxDF > 1 {
		c.MaxDF = 1
	}
	return c
}

// Term is one ranked corpus-level term.
type Term struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

// Document is one extraction input: an id plus the text chosen by the
// caller (content preferred, title fallback).
type Document struct {
	ID   string
	Text string
}

// Keyword is one per-document extraction output tuple.
type Keyword struct {
	NewsID  string
	Keyword string
	Weight  float64
	Method  string
}

// Extractor fits TF-IDF weightings. It holds no mutable state between calls
// and is safe for concurrent use.
type Extractor struct {
	cfg Config
	tok *textproc.Tokenizer
}

// New creates an extractor from the tokenizer and config.
func New(tok *textproc.Tokenizer, cfg Config) *Extractor {
	return &Extractor{cfg: cfg.normalized(), tok: tok}
}

// TopTerms fits a TF-IDF weighting across all texts, averages weights per
// term over the documents and returns the n highest-scoring terms. Ties are
// broken by shorter term, then lexicographically, so output is deterministic.
// Empty input yields nil.
func (e *Extractor) TopTerms(texts []string, n int) []Term {
	if n <= 0 || len(texts) == 0 {
		return nil
	}

	model := e.fit(texts)
	if len(model.vocab) == 0 {
		return nil
	}

	sums := make([]float64, len(model.vocab))
	for _, row := range model.rows {
		for idx, w := range row {
			sums[idx] += w
		}
	}

	inv := 1.0 / float64(len(texts))
	terms := make([]Term, 0, len(model.vocab))
	for idx, sum := range sums {
		if sum <= 0 {
			continue
		}
		terms = append(terms, Term{Term: model.vocab[idx], Score: sum * inv})
	}

	sortTerms(terms)
	if len(terms) > n {
		terms = terms[:n]
	}
	return terms
}

// DocumentKeywords fits one TF-IDF model across the batch and independently
// selects the k highest-weighted terms per document. A document with empty
// text yields no keywords without affecting its siblings; a batch of only
// empty texts degrades to a placeholder fit and yields nothing.
func (e *Extractor) DocumentKeywords(docs []Document, k int) []Keyword {
	if k <= 0 || len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			// Placeholder keeps the fit well-formed for all-empty batches.
			texts[i] = " "
		} else {
			texts[i] = doc.Text
		}
	}

	model := e.fit(texts)
	if len(model.vocab) == 0 {
		return nil
	}

	var out []Keyword
	for i, doc := range docs {
		row := model.rows[i]
		if len(row) == 0 {
			continue
		}

		terms := make([]Term, 0, len(row))
		for idx, w := range row {
			if w > 0 {
				terms = append(terms, Term{Term: model.vocab[idx], Score: w})
			}
		}
		sortTerms(terms)
		if len(terms) > k {
			terms = terms[:k]
		}

		for _, term := range terms {
			out = append(out, Keyword{
				NewsID:  doc.ID,
				Keyword: term.Term,
				Weight:  term.Score,
				Method:  models.MethodTFIDF,
			})
		}
	}
	return out
}

// fitted holds one fit: the sorted vocabulary and per-document l2-normalized
// weight rows, sparse by vocabulary index.
type fitted struct {
	vocab []string
	rows  []map[int]float64
}

// fit tokenizes every text, builds the bounded vocabulary and computes
// smooth-idf l2-normalized weights per document.
func (e *Extractor) fit(texts []string) fitted {
	nDocs := len(texts)
	counts := make([]map[string]int, nDocs)
	df := make(map[string]int)
	totals := make(map[string]int)

	for i, text := range texts {
		grams := ngrams(e.tok.Tokenize(text), e.cfg.NgramMin, e.cfg.NgramMax)
		c := make(map[string]int, len(grams))
		for _, g := range grams {
			c[g]++
		}
		counts[i] = c
		for g, n := range c {
			df[g]++
			totals[g] += n
		}
	}

	maxDFCount := nDocs
	if e.cfg.MaxDF < 1 {
		maxDFCount = int(math.Floor(e.cfg.MaxDF * float64(nDocs)))
	}

	vocab := make([]string, 0, len(df))
	for term, d := range df {
		if d < e.cfg.MinDF || d > maxDFCount {
			continue
		}
		vocab = append(vocab, term)
	}

	// Vocabulary ceiling keeps the highest-frequency terms across the
	// corpus; ties resolve lexicographically for determinism.
	if len(vocab) > e.cfg.MaxFeatures {
		sort.Slice(vocab, func(i, j int) bool {
			if totals[vocab[i]] != totals[vocab[j]] {
				return totals[vocab[i]] > totals[vocab[j]]
			}
			return vocab[i] < vocab[j]
		})
		vocab = vocab[:e.cfg.MaxFeatures]
	}
	sort.Strings(vocab)

	index := make(map[string]int, len(vocab))
	for i, term := range vocab {
		index[term] = i
	}

	idf := make([]float64, len(vocab))
	for i, term := range vocab {
		idf[i] = math.Log(float64(1+nDocs)/float64(1+df[term])) + 1
	}

	rows := make([]map[int]float64, nDocs)
	for i, c := range counts {
		row := make(map[int]float64)
		var norm float64
		for term, tf := range c {
			idx, ok := index[term]
			if !ok {
				continue
			}
			w := float64(tf) * idf[idx]
			row[idx] = w
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for idx := range row {
				row[idx] /= norm
			}
		}
		rows[i] = row
	}

	return fitted{vocab: vocab, rows: rows}
}

// ngrams joins consecutive tokens with spaces for every length in
// [min, max].
func ngrams(tokens []string, min, max int) []string {
	if len(tokens) == 0 {
		return nil
	}
	var out []string
	for n := min; n <= max; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

// sortTerms orders by score descending, then shorter term, then
// lexicographic.
func sortTerms(terms []Term) {
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Score != terms[j].Score {
			return terms[i].Score > terms[j].Score
		}
		li, lj := utf8.RuneCountInString(terms[i].Term), utf8.RuneCountInString(terms[j].Term)
		if li != lj {
			return li < lj
		}
		return terms[i].Term < terms[j].Term
	})
}
