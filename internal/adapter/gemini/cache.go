// Package gemini adapts the Gemini generative API to the advice service and
// memoizes its answers in a bounded LRU cache.
package gemini

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/couchcryptid/air-quality-service/internal/advice"
	"github.com/couchcryptid/air-quality-service/internal/observability"
)

// CachedAdvisor wraps an Advisor with an in-memory LRU cache keyed by prompt.
// The prompt embeds the category, AQI, pollutant levels and question, so
// identical questions about the same prediction are answered once.
type CachedAdvisor struct {
	inner   advice.Advisor
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedAdvisor creates a cache decorator around an advisor.
func NewCachedAdvisor(inner advice.Advisor, maxEntries int, metrics *observability.Metrics) *CachedAdvisor {
	return &CachedAdvisor{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedAdvisor) Generate(ctx context.Context, prompt string) (string, error) {
	sum := sha256.Sum256([]byte(prompt))
	key := hex.EncodeToString(sum[:])

	if text, ok := c.cache.get(key); ok {
		c.metrics.AdviceCache.WithLabelValues("hit").Inc()
		return text, nil
	}
	c.metrics.AdviceCache.WithLabelValues("miss").Inc()

	text, err := c.inner.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	// Blank answers are left uncached so the next ask retries upstream.
	if text != "" {
		c.cache.put(key, text)
	}
	return text, nil
}

// lruCache is a thread-safe LRU of answer texts. A size of zero or less
// disables caching.
type lruCache struct {
	size  int
	mu    sync.Mutex
	order *list.List // front is most recently used
	items map[string]*list.Element
}

type cacheEntry struct {
	key  string
	text string
}

func newLRUCache(size int) *lruCache {
	return &lruCache{
		size:  size,
		order: list.New(),
		items: make(map[string]*list.Element),
	}
}

func (c *lruCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return "", false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).text, true
}

func (c *lruCache) put(key, text string) {
	if c.size <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*cacheEntry).text = text
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&cacheEntry{key: key, text: text})

	for c.order.Len() > c.size {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
