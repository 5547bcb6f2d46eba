// Package cache implements the process-wide node cache of spec §3: a hash
// keyed by (btree_id, level, first-ptr value) ensuring a node has at most
// one in-memory representation. Grounded on the teacher's HashIndex
// (pkg/store/hash_index.go) — a sync.RWMutex-guarded map[string]*V with
// Put/Get/Delete/Size — generalized from byte-string keys to the
// (btreeID, level, key) cache key. The reserve pool's "ready free node"
// cache (spec §4.1) is not here: pkg/nodepool keeps it under its own
// mutex (spec §5: btree_cache.lock and btree_reserve_cache_lock are
// separate mutexes).
package cache

import (
	"fmt"
	"sync"

	"github.com/ssargent/btreefs/pkg/bkey"
)

// Key identifies a cached node's in-memory slot.
type Key struct {
	BtreeID uint32
	Level   uint8
	First   bkey.Key
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%d/%s", k.BtreeID, k.Level, k.First)
}

// NodeCache is the process-wide node hash of spec §3 "Node cache". The
// LRU eviction itself is out of scope for this engine (no disk-backed
// eviction path is exercised); what matters for the topology engine is
// the "at most one in-memory representation" guarantee and the
// exclude-roots-from-reaping rule, both enforced here.
type NodeCache[T any] struct {
	mu      sync.RWMutex
	entries map[Key]T
	roots   map[Key]bool
}

// New returns an empty node cache.
func New[T any]() *NodeCache[T] {
	return &NodeCache[T]{entries: make(map[Key]T), roots: make(map[Key]bool)}
}

// HashInsert inserts n under key, per spec §6 "hash_insert". If an entry
// already exists under key, it is replaced — callers are responsible for
// ensuring they hold the node's intent lock first so this can't race a
// concurrent insert of the same logical node.
func (c *NodeCache[T]) HashInsert(key Key, n T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = n
}

// HashRemove evicts key, per spec §6 "hash_remove".
func (c *NodeCache[T]) HashRemove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	delete(c.roots, key)
}

// Lookup returns the cached node for key, if present.
func (c *NodeCache[T]) Lookup(key Key) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// MarkRoot excludes key from LRU reaping, per spec §3 "Roots are excluded
// from LRU reaping."
func (c *NodeCache[T]) MarkRoot(key Key, isRoot bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if isRoot {
		c.roots[key] = true
	} else {
		delete(c.roots, key)
	}
}

// IsRoot reports whether key is currently marked as a root.
func (c *NodeCache[T]) IsRoot(key Key) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roots[key]
}

// Size reports the number of live cached nodes.
func (c *NodeCache[T]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reapable returns keys eligible for LRU reaping: everything except
// marked roots. The cannibalize lock (package nodepool) serializes actual
// reaping; this method only computes the candidate set.
func (c *NodeCache[T]) Reapable() []Key {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Key, 0, len(c.entries))
	for k := range c.entries {
		if !c.roots[k] {
			out = append(out, k)
		}
	}
	return out
}
