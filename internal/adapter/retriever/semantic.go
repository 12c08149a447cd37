package retriever

import (
	"cmp"
	"slices"

	"bookrec/internal/domain"
)

const DefaultCandidatePool = 50

// SemanticRule scores every stored vector by cosine similarity with the
// query and emits the best CandidatePool rows, best first.
type SemanticRule struct {
	CandidatePool int
}

func NewSemanticRule(candidatePool int) *SemanticRule {
	if candidatePool <= 0 {
		candidatePool = DefaultCandidatePool
	}
	return &SemanticRule{CandidatePool: candidatePool}
}

func (r *SemanticRule) Signal() domain.Signal { return domain.SignalSemantic }

func (r *SemanticRule) Precedence() int { return 1 }

func (r *SemanticRule) Apply(q Query, store *domain.EmbeddingStore, seen Seen) []domain.ScoredBook {
	n := store.Len()
	if n == 0 {
		return nil
	}

	scores := make([]float64, n)
	for i, v := range store.Vectors {
		scores[i] = sanitize(cosineSimilarity(q.Vector, v))
	}

	indices := topIndices(scores, min(n, r.CandidatePool))

	results := make([]domain.ScoredBook, 0, len(indices))
	for _, idx := range indices {
		meta := store.Metadata[idx]
		if seen.Has(meta.ISBN) {
			continue
		}
		seen.Add(meta.ISBN)
		results = append(results, scored(meta, scores[idx]))
	}
	return results
}

// topIndices returns the k highest-scoring indices, score descending and
// lower index first among equal scores.
func topIndices(scores []float64, k int) []int {
	indices := make([]int, len(scores))
	for i := range indices {
		indices[i] = i
	}
	slices.SortFunc(indices, func(a, b int) int {
		if c := cmp.Compare(scores[b], scores[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return indices[:k]
}
