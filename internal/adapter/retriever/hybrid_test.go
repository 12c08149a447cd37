package retriever

import (
	"fmt"
	"math"
	"testing"

	"bookrec/internal/domain"
)

func newStore(books []domain.Book, vectors [][]float32) *domain.EmbeddingStore {
	ids := make([]string, len(books))
	for i, b := range books {
		ids[i] = b.ISBN
	}
	return &domain.EmbeddingStore{IDs: ids, Metadata: books, Vectors: vectors, ModelName: "test"}
}

func asimovStore() *domain.EmbeddingStore {
	return newStore(
		[]domain.Book{
			{ISBN: "A", Author: "Asimov", Title: "Foundation"},
			{ISBN: "B", Author: "Clarke"},
			{ISBN: "C", Author: "Asimov Jr"},
		},
		[][]float32{
			{1, 0},
			{0, 1},
			{0.2, 1},
		},
	)
}

func TestHybrid_AuthorBoostOutranksSemantic(t *testing.T) {
	h := NewDefaultHybrid(50, 3)
	// the query vector is closest to B, yet the author matches must lead
	results := h.Rank(NewQuery("asimov", []float32{0, 1}), asimovStore(), 5)

	got := ISBNs(results)
	want := []string{"A", "C", "B"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if results[0].Score != AuthorBoostScore || results[1].Score != AuthorBoostScore {
		t.Errorf("author matches should carry the boost score, got %.2f and %.2f", results[0].Score, results[1].Score)
	}
	if results[2].Signal != domain.SignalSemantic {
		t.Errorf("expected B to come from the semantic rule, got %s", results[2].Signal)
	}
}

func TestHybrid_ShortQuerySkipsKeyword(t *testing.T) {
	h := NewDefaultHybrid(50, 3)
	results := h.Rank(NewQuery(" As ", []float32{0, 1}), asimovStore(), 5)

	for _, r := range results {
		if r.Signal == domain.SignalKeyword {
			t.Fatalf("query of 2 characters must not trigger the author rule: %+v", r)
		}
	}
	if results[0].ISBN != "B" {
		t.Errorf("expected pure semantic order starting with B, got %v", ISBNs(results))
	}
}

func TestHybrid_SemanticOrderAndTies(t *testing.T) {
	store := newStore(
		[]domain.Book{{ISBN: "1"}, {ISBN: "2"}, {ISBN: "3"}, {ISBN: "4"}},
		[][]float32{{0, 1}, {1, 0}, {0, 1}, {1, 1}},
	)
	results := NewDefaultHybrid(50, 3).Rank(NewQuery("xyz", []float32{1, 0}), store, 10)

	// 2 is exact, 4 is at 45 degrees, 1 and 3 tie at 0 and keep index order
	want := []string{"2", "4", "1", "3"}
	if fmt.Sprint(ISBNs(results)) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, ISBNs(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("scores not descending at %d", i)
		}
	}
}

func TestHybrid_Dedup(t *testing.T) {
	store := newStore(
		[]domain.Book{
			{ISBN: "X", Author: "Ursula Le Guin"},
			{ISBN: "X", Author: "Ursula Le Guin"},
			{ISBN: "Y", Author: "Le Guin"},
			{ISBN: "Z", Author: "Someone"},
			{ISBN: "Z", Author: "Someone"},
		},
		[][]float32{{1, 0}, {1, 0}, {0, 1}, {1, 0.1}, {1, 0.1}},
	)
	for _, q := range []string{"le guin", "nothing matches"} {
		results := NewDefaultHybrid(50, 3).Rank(NewQuery(q, []float32{1, 0}), store, 10)
		seen := map[string]bool{}
		for _, r := range results {
			if seen[r.ISBN] {
				t.Fatalf("query %q: duplicate isbn %s in %v", q, r.ISBN, ISBNs(results))
			}
			seen[r.ISBN] = true
		}
		if len(results) != 3 {
			t.Errorf("query %q: expected 3 unique books, got %v", q, ISBNs(results))
		}
	}
}

func TestHybrid_KeywordScansBeyondCandidatePool(t *testing.T) {
	books := make([]domain.Book, 0, 60)
	vectors := make([][]float32, 0, 60)
	for i := 0; i < 59; i++ {
		books = append(books, domain.Book{ISBN: fmt.Sprintf("s%02d", i), Author: "Nobody"})
		vectors = append(vectors, []float32{1, float32(i) / 100})
	}
	books = append(books, domain.Book{ISBN: "tolkien", Author: "J.R.R. Tolkien"})
	vectors = append(vectors, []float32{-1, 0})

	results := NewDefaultHybrid(50, 3).Rank(NewQuery("Tolkien", []float32{1, 0}), newStore(books, vectors), 5)
	if results[0].ISBN != "tolkien" {
		t.Fatalf("author match outside the semantic pool should rank first, got %v", ISBNs(results))
	}

	all := NewDefaultHybrid(50, 3).Rank(NewQuery("Tolkien", []float32{1, 0}), newStore(books, vectors), 1000)
	if len(all) != 51 {
		t.Errorf("expected 50 semantic candidates plus 1 author match, got %d", len(all))
	}
}

func TestHybrid_BoundedOutput(t *testing.T) {
	store := asimovStore()
	for _, k := range []int{-1, 0, 1, 2, 3, 10} {
		results := NewDefaultHybrid(50, 3).Rank(NewQuery("space", []float32{1, 1}), store, k)
		limit := min(max(k, 0), store.Len())
		if len(results) > limit {
			t.Errorf("k=%d: got %d results, limit %d", k, len(results), limit)
		}
		if results == nil {
			t.Errorf("k=%d: expected empty slice, got nil", k)
		}
	}
}

func TestHybrid_EmptyStore(t *testing.T) {
	results := NewDefaultHybrid(50, 3).Rank(NewQuery("anything", []float32{1, 0}), &domain.EmbeddingStore{}, 5)
	if len(results) != 0 {
		t.Errorf("expected no results, got %v", results)
	}
}

func TestHybrid_Idempotent(t *testing.T) {
	h := NewDefaultHybrid(2, 3)
	q := NewQuery("asimov", []float32{0.3, 0.7})
	first := h.Rank(q, asimovStore(), 3)
	second := h.Rank(q, asimovStore(), 3)
	if fmt.Sprint(first) != fmt.Sprint(second) {
		t.Errorf("expected identical results:\n%v\n%v", first, second)
	}
}

func TestSemanticRule_SanitizesDegenerateVectors(t *testing.T) {
	store := newStore(
		[]domain.Book{{ISBN: "zero"}, {ISBN: "good"}, {ISBN: "short"}},
		[][]float32{{0, 0}, {1, 0}, {1, 0}},
	)
	store.Vectors[2] = []float32{1}

	results := NewSemanticRule(50).Apply(NewQuery("q", []float32{1, 0}), store, make(Seen))
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].ISBN != "good" {
		t.Errorf("expected good first, got %v", ISBNs(results))
	}
	for _, r := range results[1:] {
		if r.Score != 0 {
			t.Errorf("degenerate row %s should score 0, got %v", r.ISBN, r.Score)
		}
	}
}

func TestSanitize(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{math.NaN(), 0},
		{math.Inf(1), 1},
		{math.Inf(-1), 0},
		{0.25, 0.25},
		{-0.5, -0.5},
	}
	for _, tc := range cases {
		if got := sanitize(tc.in); got != tc.want {
			t.Errorf("sanitize(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := cosineSimilarity([]float32{1, 0}, []float32{2, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("parallel vectors should score 1, got %v", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{-3, 0}); math.Abs(got+1) > 1e-9 {
		t.Errorf("opposite vectors should score -1, got %v", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{0, 0}); !math.IsNaN(got) {
		t.Errorf("zero vector should give NaN before sanitizing, got %v", got)
	}
}

type fixedRule struct {
	signal domain.Signal
	isbn   string
	score  float64
}

func (r fixedRule) Signal() domain.Signal { return r.signal }

func (r fixedRule) Precedence() int { return 2 }

func (r fixedRule) Apply(q Query, store *domain.EmbeddingStore, seen Seen) []domain.ScoredBook {
	if seen.Has(r.isbn) {
		return nil
	}
	seen.Add(r.isbn)
	return []domain.ScoredBook{{Book: domain.Book{ISBN: r.isbn}, Score: r.score}}
}

func TestHybrid_StampsRuleSignal(t *testing.T) {
	h := NewHybrid(NewAuthorRule(3), NewSemanticRule(50), fixedRule{signal: "editorial", isbn: "pick", score: 5})
	results := h.Rank(NewQuery("asimov", []float32{0, 1}), asimovStore(), 10)

	want := map[string]domain.Signal{
		"pick": "editorial",
		"A":    domain.SignalKeyword,
		"C":    domain.SignalKeyword,
		"B":    domain.SignalSemantic,
	}
	if len(results) != len(want) {
		t.Fatalf("expected %d results, got %v", len(want), ISBNs(results))
	}
	if results[0].ISBN != "pick" {
		t.Errorf("highest score should lead regardless of precedence, got %v", ISBNs(results))
	}
	for _, r := range results {
		if r.Signal != want[r.ISBN] {
			t.Errorf("%s: signal %q, want %q", r.ISBN, r.Signal, want[r.ISBN])
		}
	}
}
