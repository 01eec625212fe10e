package planner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cambium/cambium"
)

// Cache memoizes Plan results for identical (source, target, cardinality,
// options) inputs: an RWMutex-guarded map, a max size, and a TTL. It lives
// in-process only; it never touches durable storage, so it is distinct
// from the overlay/planstore content-addressed cache. hits/misses are
// updated atomically so Get can take only a read lock on the map while
// still being safe if the cache is ever shared across goroutines.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	maxSize int
	ttl     time.Duration
	hits    int64
	misses  int64
}

type cacheEntry struct {
	plan      *Plan
	timestamp time.Time
}

// NewCache builds a Cache. maxSize <= 0 defaults to 1000 entries; ttl <= 0
// defaults to 5 minutes.
func NewCache(maxSize int, ttl time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if ttl <= 0 {
		ttl = cacheTTLDefault
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get returns a cached plan for the given inputs, if present and not
// expired.
func (c *Cache) Get(source cambium.Properties, target cambium.PropertyPattern, inCard, outCard cambium.Cardinality, opts PlannerOptions) (*Plan, bool) {
	if c == nil {
		return nil, false
	}
	key := cacheKey(source, target, inCard, outCard, opts)

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	if time.Since(entry.timestamp) > c.ttl {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&c.hits, 1)
	return entry.plan, true
}

// Set stores plan under the key derived from the given inputs, evicting an
// arbitrary entry if the cache is at capacity: a simple size cap that
// doesn't bother tracking precise LRU order.
func (c *Cache) Set(source cambium.Properties, target cambium.PropertyPattern, inCard, outCard cambium.Cardinality, opts PlannerOptions, plan *Plan) {
	if c == nil {
		return
	}
	key := cacheKey(source, target, inCard, outCard, opts)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}
	c.entries[key] = cacheEntry{plan: plan, timestamp: time.Now()}
}

// Stats returns (hits, misses) observed so far.
func (c *Cache) Stats() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

func cacheKey(source cambium.Properties, target cambium.PropertyPattern, inCard, outCard cambium.Cardinality, opts PlannerOptions) string {
	h := sha256.New()
	fmt.Fprintf(h, "in=%s out=%s hops=%d bag=%d\n", inCard, outCard, opts.MaxHops, opts.MaxBagSize)

	keys := source.Keys()
	sort.Strings(keys)
	for _, k := range keys {
		v, _ := source.Get(k)
		fmt.Fprintf(h, "src.%s=%d:%s\n", k, v.Kind(), v.String())
	}
	for _, c := range target.Constraints() {
		fmt.Fprintf(h, "target.%d(%s)=%s\n", c.Kind(), c.Key(), constraintPayload(c))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// constraintPayload renders the part of a Constraint that Kind()/Key()
// alone don't capture, so that two constraints of the same kind and key
// but different comparison data (e.g. Eq(format,"yaml") vs
// Eq(format,"webp")) never collide in a cache key.
func constraintPayload(c cambium.Constraint) string {
	switch c.Kind() {
	case cambium.ConstraintEq, cambium.ConstraintNotEq:
		return fmt.Sprintf("%d:%s", c.Value().Kind(), c.Value().String())
	case cambium.ConstraintIn:
		var b strings.Builder
		for _, v := range c.Set() {
			fmt.Fprintf(&b, "%d:%s,", v.Kind(), v.String())
		}
		return b.String()
	case cambium.ConstraintRegex:
		return c.Pattern()
	default:
		return ""
	}
}
