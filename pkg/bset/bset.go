// Package bset implements the sorted-run primitive (bset primitive,
// spec §6 "Bset primitive") that an interior node's single in-memory bset
// is built from: key packing is out of scope (see package bformat), but
// sort order, whiteout compaction and the aux-search-tree rebuild hook are
// provided here so the node constructor and key-insert fixup have
// something concrete to call.
package bset

import (
	"sort"

	"github.com/ssargent/btreefs/pkg/bkey"
)

// BSet is a single sorted run of keys sharing one packed format. A live
// interior node normally has exactly one bset once Format Planner/Node
// Constructor have run (spec §4.3 "Both resulting nodes have a single
// bset"); multiple bsets only arise transiently before a compaction.
type BSet struct {
	keys []bkey.BKey
}

// New returns an empty bset.
func New() *BSet { return &BSet{} }

// FromSorted wraps an already-sorted slice without copying defensively;
// callers that hand over ownership of keys must not mutate it afterward.
func FromSorted(keys []bkey.BKey) *BSet { return &BSet{keys: keys} }

// Len reports the number of keys, including whiteouts.
func (b *BSet) Len() int { return len(b.keys) }

// Keys returns the live (non-whiteout) keys in sorted order.
func (b *BSet) Keys() []bkey.BKey {
	out := make([]bkey.BKey, 0, len(b.keys))
	for _, k := range b.keys {
		if !k.Whiteout {
			out = append(out, k)
		}
	}
	return out
}

// All returns every key including whiteouts, in sorted order.
func (b *BSet) All() []bkey.BKey {
	out := make([]bkey.BKey, len(b.keys))
	copy(out, b.keys)
	return out
}

// U64s is the total packed size of every key currently in the bset
// (whiteouts included, since they still occupy space until compacted).
func (b *BSet) U64s() uint32 {
	var n uint32
	for _, k := range b.keys {
		n += k.U64s()
	}
	return n
}

// Search returns the index of the first key >= pos (an "iterator
// positioned within p's bset", spec §4.4 step 1).
func (b *BSet) Search(pos bkey.Key) int {
	return sort.Search(len(b.keys), func(i int) bool {
		return !b.keys[i].Pos.Less(pos)
	})
}

// At returns the key currently at pos, if any, per spec §4.4's "advance
// the iterator to the first key >= k.pos" — used by callers that need to
// know what (if anything) a splice is about to displace.
func (b *BSet) At(pos bkey.Key) (bkey.BKey, bool) {
	i := b.Search(pos)
	if i < len(b.keys) && b.keys[i].Pos.Equal(pos) {
		return b.keys[i], true
	}
	return bkey.BKey{}, false
}

// Insert splices k into the bset at its sorted position, replacing any
// existing key at the same position (overwrite-in-place, the common case
// for a btree-pointer update). Returns the index inserted at.
func (b *BSet) Insert(k bkey.BKey) int {
	i := b.Search(k.Pos)
	if i < len(b.keys) && b.keys[i].Pos.Equal(k.Pos) {
		b.keys[i] = k
		return i
	}
	b.keys = append(b.keys, bkey.BKey{})
	copy(b.keys[i+1:], b.keys[i:])
	b.keys[i] = k
	return i
}

// CompactWhiteouts drops whiteout markers, keeping only live keys. Must be
// called before a node is used as a split source: spec §4.3's pivot
// policy forbids choosing a whiteout as the pivot, so the caller compacts
// first.
func (b *BSet) CompactWhiteouts() {
	live := b.keys[:0]
	for _, k := range b.keys {
		if !k.Whiteout {
			live = append(live, k)
		}
	}
	b.keys = live
}

// Merge returns a new bset containing the sort-merged union of a and b,
// with whiteouts still present (the caller decides whether to compact).
// Used by merge() (spec §4.3.3) to combine two siblings' live runs.
func Merge(a, b *BSet) *BSet {
	out := make([]bkey.BKey, 0, a.Len()+b.Len())
	out = append(out, a.keys...)
	out = append(out, b.keys...)
	sort.Slice(out, func(i, j int) bool { return out[i].Pos.Less(out[j].Pos) })
	return &BSet{keys: out}
}

// RebuildAuxTree is a no-op placeholder for the real bset's auxiliary
// binary-search-tree rebuild (an indexing structure over the packed run
// used to speed up Search on disk-format bsets). In-memory Search above
// already does the equivalent job for this engine's slice-backed bset, so
// callers invoke this only to mark the point at which a real
// implementation would rebuild it — keeping the call site in
// construct.go aligned with spec §4.3's "rebuild auxiliary search trees".
func (b *BSet) RebuildAuxTree() {}
