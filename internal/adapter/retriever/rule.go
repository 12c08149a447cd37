package retriever

import (
	"strings"

	"bookrec/internal/domain"
)

// Query is a prepared query: the raw text, its embedding and the
// normalized form used for keyword matching.
type Query struct {
	Text       string
	Vector     []float32
	Normalized string
}

// NewQuery prepares a query for the rules.
func NewQuery(text string, vector []float32) Query {
	return Query{
		Text:       text,
		Vector:     vector,
		Normalized: strings.ToLower(strings.TrimSpace(text)),
	}
}

// Seen tracks isbns already emitted by an earlier rule.
type Seen map[string]struct{}

func (s Seen) Has(isbn string) bool {
	_, ok := s[isbn]
	return ok
}

func (s Seen) Add(isbn string) {
	s[isbn] = struct{}{}
}

// Rule is one result-producing signal. Rules run in evaluation order and
// share a Seen set, so a book is emitted at most once across all rules.
type Rule interface {
	// Signal is stamped on every result the rule emits.
	Signal() domain.Signal

	// Precedence orders rule outputs in the concatenation that precedes
	// the stable sort; lower goes first.
	Precedence() int

	// Apply emits scored books for rows not yet in seen and records them.
	Apply(q Query, store *domain.EmbeddingStore, seen Seen) []domain.ScoredBook
}

func scored(b domain.Book, score float64) domain.ScoredBook {
	return domain.ScoredBook{Book: b, Score: score}
}
