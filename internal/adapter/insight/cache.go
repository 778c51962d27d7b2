package insight

import (
	"container/list"
	"context"
	"sync"

	"github.com/couchcryptid/precip-map/internal/domain"
	"github.com/couchcryptid/precip-map/internal/observability"
)

// CachedFinder wraps an AssetFinder with an in-memory LRU cache.
type CachedFinder struct {
	inner   domain.AssetFinder
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedFinder creates a cache decorator around an asset finder.
func NewCachedFinder(inner domain.AssetFinder, maxEntries int, metrics *observability.Metrics) *CachedFinder {
	return &CachedFinder{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedFinder) Find(ctx context.Context, id domain.AssetID) (domain.Asset, error) {
	if asset, ok := c.cache.get(id); ok {
		c.metrics.AssetCache.WithLabelValues("hit").Inc()
		return asset, nil
	}
	c.metrics.AssetCache.WithLabelValues("miss").Inc()

	asset, err := c.inner.Find(ctx, id)
	if err != nil {
		return asset, err
	}
	c.cache.put(id, asset)
	return asset, nil
}

// lruCache is a thread-safe LRU of assets by id. The list front is the
// most recently used entry.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	order      *list.List
	entries    map[domain.AssetID]*list.Element
}

type entry struct {
	key   domain.AssetID
	value domain.Asset
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[domain.AssetID]*list.Element),
	}
}

func (c *lruCache) get(key domain.AssetID) (domain.Asset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return domain.Asset{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).value, true
}

func (c *lruCache) put(key domain.AssetID, value domain.Asset) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).value = value
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&entry{key: key, value: value})
	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).key)
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
