package session

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultDedupCacheSize bounds the in-process hash-to-table cache so a
// single huge import can't grow it unboundedly; it's a cache in front of
// the database lookup, not a source of truth.
const defaultDedupCacheSize = 100_000

// DedupCache is an in-process cache of hash -> media table lookups,
// avoiding a database round trip for hashes already found in the database.
// One cache is shared by every import run through the same Orchestrator.
type DedupCache struct {
	cache *lru.Cache[string, string]
}

// NewDedupCache creates an empty cache holding up to defaultDedupCacheSize
// hashes.
func NewDedupCache() *DedupCache {
	c, err := lru.New[string, string](defaultDedupCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which never
		// happens with the constant above.
		panic(err)
	}
	return &DedupCache{cache: c}
}

// Get returns the media table a hash was previously recorded in, if cached.
func (d *DedupCache) Get(hash string) (table string, found bool) {
	return d.cache.Get(hash)
}

// Put records that hash belongs to table, so a later lookup through this
// cache skips the database.
func (d *DedupCache) Put(hash, table string) {
	d.cache.Add(hash, table)
}

// Len reports how many hashes are currently cached, for diagnostics.
func (d *DedupCache) Len() int {
	return d.cache.Len()
}
