package textproc

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
)

// Stopwords is an immutable set of tokens excluded from tokenizer output.
// It is constructed once by whoever composes the pipeline and passed in
// explicitly; there is no package-level stopword state.
type Stopwords map[string]struct{}

// NewStopwords builds a stopword set from a literal list of terms.
func NewStopwords(terms ...string) Stopwords {
	s := make(Stopwords, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			s[term] = struct{}{}
		}
	}
	return s
}

// LoadStopwords reads a newline-delimited stopword file. Blank lines are
// skipped.
func LoadStopwords(path string) (Stopwords, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stopwords file: %w", err)
	}
	defer f.Close()

	s := make(Stopwords)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		term := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if term != "" {
			s[term] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stopwords file: %w", err)
	}
	return s, nil
}

// Contains reports whether the token is a stopword. A nil set matches
// nothing.
func (s Stopwords) Contains(token string) bool {
	_, ok := s[token]
	return ok
}

// Tokenizer segments text into lowercase word tokens on Unicode word
// boundaries and filters stopwords. It holds no mutable state and is safe
// for concurrent use.
type Tokenizer struct {
	stop Stopwords
}

// NewTokenizer creates a tokenizer with the provided stopword set (nil is
// allowed).
func NewTokenizer(stop Stopwords) *Tokenizer {
	return &Tokenizer{stop: stop}
}

// Tokenize returns the word tokens of text. Punctuation-only and whitespace
// segments are dropped, as are stopwords. Empty input yields nil.
func (t *Tokenizer) Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var out []string
	tokens := words.FromString(text)
	for tokens.Next() {
		token := strings.ToLower(strings.TrimSpace(tokens.Value()))
		if token == "" || !hasWordContent(token) {
			continue
		}
		if t.stop.Contains(token) {
			continue
		}
		out = append(out, token)
	}
	return out
}

// hasWordContent reports whether the token carries at least one letter or
// digit.
func hasWordContent(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
