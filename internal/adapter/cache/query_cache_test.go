package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"bookrec/internal/domain"
)

func results(isbns ...string) []domain.ScoredBook {
	out := make([]domain.ScoredBook, len(isbns))
	for i, isbn := range isbns {
		out[i] = domain.ScoredBook{Book: domain.Book{ISBN: isbn}, Score: float64(len(isbns) - i)}
	}
	return out
}

func TestQueryCache_GetPut(t *testing.T) {
	c := NewQueryCache(10, time.Minute)

	if _, ok := c.Get("dune", 5); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Put("dune", 5, results("a", "b"))

	got, ok := c.Get("dune", 5)
	if !ok {
		t.Fatal("expected hit")
	}
	if len(got) != 2 || got[0].ISBN != "a" {
		t.Errorf("unexpected results: %v", got)
	}

	if _, ok := c.Get("dune", 3); ok {
		t.Error("different topK must not share an entry")
	}
}

func TestQueryCache_ReturnsCopies(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	in := results("a", "b")
	c.Put("q", 2, in)
	in[0].ISBN = "mutated"

	got, _ := c.Get("q", 2)
	if got[0].ISBN != "a" {
		t.Fatalf("cache shares memory with caller input: %v", got)
	}
	got[1].ISBN = "mutated"

	again, _ := c.Get("q", 2)
	if again[1].ISBN != "b" {
		t.Fatalf("cache shares memory with returned slice: %v", again)
	}
}

func TestQueryCache_Eviction(t *testing.T) {
	c := NewQueryCache(2, time.Minute)
	c.Put("one", 1, results("1"))
	c.Put("two", 1, results("2"))

	// touch "one" so "two" becomes the oldest
	c.Get("one", 1)
	c.Put("three", 1, results("3"))

	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
	if _, ok := c.Get("two", 1); ok {
		t.Error("expected least recently used entry to be evicted")
	}
	if _, ok := c.Get("one", 1); !ok {
		t.Error("expected recently used entry to survive")
	}
}

func TestQueryCache_TTL(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	clock := time.Unix(1000, 0)
	c.now = func() time.Time { return clock }

	c.Put("q", 1, results("a"))

	clock = clock.Add(59 * time.Second)
	if _, ok := c.Get("q", 1); !ok {
		t.Fatal("expected entry to be live before ttl")
	}

	clock = clock.Add(time.Second)
	if _, ok := c.Get("q", 1); ok {
		t.Error("expected expired entry to miss")
	}
	if c.Size() != 0 {
		t.Errorf("expected expired entry to be removed, size %d", c.Size())
	}
}

func TestQueryCache_PutRefreshesExpiry(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	clock := time.Unix(1000, 0)
	c.now = func() time.Time { return clock }

	c.Put("q", 1, results("old"))
	clock = clock.Add(50 * time.Second)
	c.Put("q", 1, results("new"))
	clock = clock.Add(50 * time.Second)

	got, ok := c.Get("q", 1)
	if !ok {
		t.Fatal("a refreshed entry must not expire on its original deadline")
	}
	if got[0].ISBN != "new" {
		t.Errorf("expected refreshed results, got %v", got)
	}
	if c.Size() != 1 {
		t.Errorf("refresh must not add an entry, size %d", c.Size())
	}
}

func TestQueryCache_ConcurrentAccess(t *testing.T) {
	c := NewQueryCache(8, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				q := fmt.Sprintf("q%d", (g+i)%12)
				c.Put(q, 3, results(q))
				if got, ok := c.Get(q, 3); ok && got[0].ISBN != q {
					t.Errorf("entry for %s holds %v", q, got)
				}
				if i%50 == 0 {
					c.Invalidate()
				}
			}
		}(g)
	}
	wg.Wait()

	if c.Size() > 8 {
		t.Errorf("size %d exceeds capacity", c.Size())
	}
}

func TestQueryCache_Invalidate(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	c.Put("q", 1, results("a"))
	c.Invalidate()

	if _, ok := c.Get("q", 1); ok {
		t.Error("expected miss after invalidate")
	}
	if c.Size() != 0 {
		t.Errorf("expected empty cache, got %d", c.Size())
	}
}

type countingRecommender struct {
	calls int
	err   error
}

func (r *countingRecommender) Recommend(ctx context.Context, query string, topK int) ([]domain.ScoredBook, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return results("x", "y")[:min(topK, 2)], nil
}

func TestCachedRecommender(t *testing.T) {
	next := &countingRecommender{}
	rec := NewCachedRecommender(next, NewQueryCache(10, time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := rec.Recommend(ctx, "foundation", 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 results, got %d", len(got))
		}
	}
	if next.calls != 1 {
		t.Errorf("expected 1 underlying call, got %d", next.calls)
	}

	rec.Invalidate()
	if _, err := rec.Recommend(ctx, "foundation", 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.calls != 2 {
		t.Errorf("expected a fresh call after invalidate, got %d calls", next.calls)
	}
}

func TestCachedRecommender_ErrorsNotCached(t *testing.T) {
	boom := errors.New("boom")
	next := &countingRecommender{err: boom}
	rec := NewCachedRecommender(next, NewQueryCache(10, time.Minute))

	for i := 0; i < 2; i++ {
		if _, err := rec.Recommend(context.Background(), "q", 1); !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
	}
	if next.calls != 2 {
		t.Errorf("errors must not be cached, got %d calls", next.calls)
	}
}
