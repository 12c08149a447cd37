package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"sync"
	"time"

	"bookrec/internal/domain"
	"bookrec/internal/metrics"
	"bookrec/internal/port"
)

// QueryCache is a bounded LRU of ranked results keyed by (query, topK).
// Entries expire after ttl and are dropped wholesale by Invalidate.
type QueryCache struct {
	mu        sync.Mutex
	items     map[string]*list.Element
	evictList *list.List
	maxSize   int
	ttl       time.Duration
	now       func() time.Time
}

type cacheEntry struct {
	key     string
	results []domain.ScoredBook
	expires time.Time
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		items:     make(map[string]*list.Element, maxSize),
		evictList: list.New(),
		maxSize:   maxSize,
		ttl:       ttl,
		now:       time.Now,
	}
}

// cacheKey uses the raw query text; the encoder sees it verbatim.
func cacheKey(query string, topK int) string {
	data := []byte(query)
	data = append(data, 0, byte(topK>>24), byte(topK>>16), byte(topK>>8), byte(topK))
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

// Get returns a copy of the cached results. An expired entry is removed
// under the same lock that found it.
func (c *QueryCache) Get(query string, topK int) ([]domain.ScoredBook, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[cacheKey(query, topK)]
	if !ok {
		return nil, false
	}
	ent := el.Value.(*cacheEntry)
	if !c.now().Before(ent.expires) {
		c.removeElement(el)
		return nil, false
	}
	c.evictList.MoveToFront(el)
	return slices.Clone(ent.results), true
}

// Put stores a copy of results, evicting the least recently used entry
// when full.
func (c *QueryCache) Put(query string, topK int, results []domain.ScoredBook) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(query, topK)
	expires := c.now().Add(c.ttl)

	if el, ok := c.items[key]; ok {
		ent := el.Value.(*cacheEntry)
		ent.results = slices.Clone(results)
		ent.expires = expires
		c.evictList.MoveToFront(el)
		return
	}

	for c.evictList.Len() >= c.maxSize {
		c.removeElement(c.evictList.Back())
	}
	c.items[key] = c.evictList.PushFront(&cacheEntry{
		key:     key,
		results: slices.Clone(results),
		expires: expires,
	})
}

// Invalidate drops every entry. Called whenever a new store is loaded.
func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.items)
	c.evictList.Init()
}

func (c *QueryCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

func (c *QueryCache) removeElement(el *list.Element) {
	c.evictList.Remove(el)
	delete(c.items, el.Value.(*cacheEntry).key)
}

// CachedRecommender serves repeated queries from a QueryCache.
// Errors are never cached.
type CachedRecommender struct {
	next  port.Recommender
	cache *QueryCache
}

func NewCachedRecommender(next port.Recommender, cache *QueryCache) *CachedRecommender {
	return &CachedRecommender{
		next:  next,
		cache: cache,
	}
}

func (r *CachedRecommender) Recommend(ctx context.Context, query string, topK int) ([]domain.ScoredBook, error) {
	if results, hit := r.cache.Get(query, topK); hit {
		metrics.QueryCacheHits.Inc()
		return results, nil
	}
	metrics.QueryCacheMisses.Inc()

	results, err := r.next.Recommend(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	r.cache.Put(query, topK, results)

	return results, nil
}

// Invalidate clears the underlying cache.
func (r *CachedRecommender) Invalidate() {
	r.cache.Invalidate()
}
