package retriever

import (
	"strings"
	"unicode/utf8"

	"bookrec/internal/domain"
)

// AuthorBoostScore is above any cosine similarity, so author matches always
// outrank purely semantic matches.
const AuthorBoostScore = 2.0

const DefaultKeywordMinLength = 3

// AuthorRule emits every row whose author contains the normalized query,
// scanning the whole store in row order.
type AuthorRule struct {
	MinLength int
}

func NewAuthorRule(minLength int) *AuthorRule {
	if minLength <= 0 {
		minLength = DefaultKeywordMinLength
	}
	return &AuthorRule{MinLength: minLength}
}

func (r *AuthorRule) Signal() domain.Signal { return domain.SignalKeyword }

func (r *AuthorRule) Precedence() int { return 0 }

func (r *AuthorRule) Apply(q Query, store *domain.EmbeddingStore, seen Seen) []domain.ScoredBook {
	if utf8.RuneCountInString(q.Normalized) < r.MinLength {
		return nil
	}

	var results []domain.ScoredBook
	for _, meta := range store.Metadata {
		if meta.Author == "" || !strings.Contains(strings.ToLower(meta.Author), q.Normalized) {
			continue
		}
		if seen.Has(meta.ISBN) {
			continue
		}
		seen.Add(meta.ISBN)
		results = append(results, scored(meta, AuthorBoostScore))
	}
	return results
}
