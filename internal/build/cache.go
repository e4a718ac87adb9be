package build

import (
	"encoding/hex"
	"fmt"

	"github.com/maypok86/otter"
	"golang.org/x/crypto/blake2b"

	"github.com/conduit-lang/docmeta/compiler"
)

// DefaultCacheSize is the number of compiled documents kept in memory
const DefaultCacheSize = 4096

// Cache keeps successful compilations keyed by a content hash of the
// document path and source, so an unchanged document is never recompiled.
// Cached results are shared and must be treated as read-only.
type Cache struct {
	entries otter.Cache[string, *compiler.Result]
}

// CacheStats contains cache statistics
type CacheStats struct {
	TotalEntries int
	Hits         int64
	Misses       int64
	HitRate      float64
}

// NewCache creates a cache holding up to size results
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}

	entries, err := otter.MustBuilder[string, *compiler.Result](size).
		CollectStats().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create compile cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// HashSource returns the hex blake2b-256 hash of a document source
func HashSource(source string) string {
	sum := blake2b.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Key derives the cache key of a document
func Key(path, source string) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached result for key
func (c *Cache) Get(key string) (*compiler.Result, bool) {
	return c.entries.Get(key)
}

// Put stores a compiled result
func (c *Cache) Put(key string, result *compiler.Result) {
	c.entries.Set(key, result)
}

// Invalidate removes a key from the cache
func (c *Cache) Invalidate(key string) {
	c.entries.Delete(key)
}

// Clear removes all entries from the cache
func (c *Cache) Clear() {
	c.entries.Clear()
}

// Stats returns cache statistics
func (c *Cache) Stats() CacheStats {
	s := c.entries.Stats()
	return CacheStats{
		TotalEntries: c.entries.Size(),
		Hits:         s.Hits(),
		Misses:       s.Misses(),
		HitRate:      s.Ratio(),
	}
}

// Close stops the cache's background work
func (c *Cache) Close() {
	c.entries.Close()
}
