package retriever

import (
	"cmp"
	"slices"

	"bookrec/internal/domain"
)

// Hybrid blends several rules into one ranking.
type Hybrid struct {
	rules []Rule
}

// NewHybrid creates a ranker. Rules are evaluated in the given order, which
// decides which rule claims a book both would emit.
func NewHybrid(rules ...Rule) *Hybrid {
	return &Hybrid{rules: rules}
}

// NewDefaultHybrid is the author boost plus the semantic pass. The author
// rule is evaluated first so that a matching book inside the semantic
// candidate pool is still boosted instead of keeping its cosine score.
func NewDefaultHybrid(candidatePool, keywordMinLength int) *Hybrid {
	return NewHybrid(NewAuthorRule(keywordMinLength), NewSemanticRule(candidatePool))
}

// Rank runs every rule, concatenates their outputs by precedence, stable
// sorts by score descending and truncates to topK.
func (h *Hybrid) Rank(q Query, store *domain.EmbeddingStore, topK int) []domain.ScoredBook {
	if topK <= 0 {
		return []domain.ScoredBook{}
	}

	type output struct {
		precedence int
		results    []domain.ScoredBook
	}

	seen := make(Seen)
	outputs := make([]output, 0, len(h.rules))
	total := 0
	for _, rule := range h.rules {
		res := rule.Apply(q, store, seen)
		signal := rule.Signal()
		for i := range res {
			res[i].Signal = signal
		}
		outputs = append(outputs, output{precedence: rule.Precedence(), results: res})
		total += len(res)
	}

	slices.SortStableFunc(outputs, func(a, b output) int {
		return cmp.Compare(a.precedence, b.precedence)
	})

	merged := make([]domain.ScoredBook, 0, total)
	for _, o := range outputs {
		merged = append(merged, o.results...)
	}

	slices.SortStableFunc(merged, func(a, b domain.ScoredBook) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged
}
