// Package btree implements the interior-node topology-update engine of
// spec §2–§5: the Node Constructor, Key-Insert Fixup, Topology Op
// Coordinator, Reachability Graph and Root Table/Publication components,
// plus the Node data model they all share. The leaf key/value path, key
// packing, journal I/O, bucket allocation and node locking are the
// external collaborators of spec §6, implemented in sibling packages
// (bkey, bset, bformat, journal, alloc, nodelock, cache) and consumed
// here through the interfaces in collaborators.go.
package btree

import (
	"sync"
	"sync/atomic"

	"github.com/ssargent/btreefs/pkg/alloc"
	"github.com/ssargent/btreefs/pkg/bformat"
	"github.com/ssargent/btreefs/pkg/bkey"
	"github.com/ssargent/btreefs/pkg/bset"
	"github.com/ssargent/btreefs/pkg/cache"
	"github.com/ssargent/btreefs/pkg/nodelock"
)

// NodeFlags are the per-node bits of spec §3.
type NodeFlags struct {
	Dirty     bool // has unwritten changes
	NeedWrite bool
	Dying     bool // scheduled for free
	Fake      bool // placeholder root at filesystem bringup
	NoEvict   bool // in reserve
}

// Node is a fixed-maximum-byte interior or leaf block, per spec §3. Level
// 0 is a leaf; this engine only mutates interior nodes but models leaves
// far enough to be a child pointer target.
type Node struct {
	Lock *nodelock.Lock

	// Parent is this node's current parent in the live tree, maintained
	// by the topology ops as they splice new nodes in (spec §3's "parent
	// pointer" — used to walk intent up an ascent without a separate
	// iterator, per design note "Recursive tree descent during
	// publication"). nil at the root.
	Parent *Node

	BtreeID uint32
	Level   uint8
	MinKey  bkey.Key
	MaxKey  bkey.Key
	Seq     uint64

	BSet   *bset.BSet
	format bformat.Format

	Flags NodeFlags

	// Ptrs is this node's own on-disk location(s), one per metadata
	// replica — what a parent's btree-pointer value for this node would
	// contain.
	Ptrs []bkey.DevicePtr

	// Buckets are the open-bucket pins backing Ptrs, held until the
	// node's first write completes (spec §4.1's "open-buckets pinned").
	Buckets []alloc.OpenBucket

	// willMakeReachable is the tagged back-reference of spec §3 and §9:
	// a weak-by-convention pointer to the Update that will publish this
	// node. Cleared by compare-and-swap on first write completion. Held
	// as an atomic.Pointer so clearing it and testing it race-free
	// doesn't require taking the node's own lock (write completion runs
	// on an arbitrary I/O-completion goroutine, not holding any node
	// lock).
	willMakeReachable atomic.Pointer[Update]

	// writeBlocked lists updates that mutated this node as a parent and
	// are waiting on their own new children to become durable before
	// this node may be written (spec §3, §4.4 step 3).
	writeBlockedMu sync.Mutex
	writeBlocked   []*Update

	// written reports whether this node's first on-disk write has
	// completed.
	written atomic.Bool
}

// NewNode allocates a bare node with a fresh lock. Callers fill in range,
// format and bset via the Node Constructor (construct.go).
func NewNode(btreeID uint32, level uint8) *Node {
	return &Node{
		Lock:    nodelock.New(),
		BtreeID: btreeID,
		Level:   level,
		BSet:    bset.New(),
	}
}

// Format reports the node's current packed-key format, as chosen by the
// Format Planner the last time this node was (re)constructed.
func (n *Node) Format() bformat.Format { return n.format }

// CacheKey derives this node's node-cache key: (btree_id, level,
// first-ptr value), per spec §3 "Node cache". MinKey stands in for the
// "first-ptr value" for every node, before and after allocation; the
// node's device pointers never enter the key, so UpdateKey rehashes only
// when MinKey changes.
func (n *Node) CacheKey() cache.Key {
	return cache.Key{BtreeID: n.BtreeID, Level: n.Level, First: n.MinKey}
}

// SetWillMakeReachable installs u as the update that will publish n,
// per spec §3/§9. Must be called exactly once, by add_new_node.
func (n *Node) SetWillMakeReachable(u *Update) {
	n.willMakeReachable.Store(u)
}

// WillMakeReachable returns the update that will publish n, or nil if
// already cleared (or never set — e.g. an existing node being mutated in
// place rather than a newly constructed one).
func (n *Node) WillMakeReachable() *Update {
	return n.willMakeReachable.Load()
}

// ClearWillMakeReachable atomically clears the back-reference and
// reports the update that had been referenced, so the caller (the
// write-completion path) can decrement exactly that update's completion
// counter exactly once even under a concurrent drop_new_node race — this
// resolves the Open Question of spec §9 in favor of "whichever of
// write-completion or drop_new_node wins the compare-and-swap owns the
// decrement" (see DESIGN.md).
func (n *Node) ClearWillMakeReachable() *Update {
	return n.willMakeReachable.Swap(nil)
}

// MarkWritten records that this node's first on-disk write has
// completed. Returns false if it was already marked (callers must only
// decrement a completion counter on the transition).
func (n *Node) MarkWritten() bool {
	return n.written.CompareAndSwap(false, true)
}

// Written reports whether this node's first write has completed.
func (n *Node) Written() bool { return n.written.Load() }

// AddWriteBlocked registers u on n's write_blocked list (spec §4.4 step
// 3): u mutated n as a parent and n must not be written until u's new
// children are durable.
func (n *Node) AddWriteBlocked(u *Update) {
	n.writeBlockedMu.Lock()
	n.writeBlocked = append(n.writeBlocked, u)
	n.writeBlockedMu.Unlock()
}

// TakeWriteBlocked atomically drains and returns n's write_blocked list,
// used by will_free_node when n is about to be replaced and any updates
// waiting on it must be reparented (spec §4.6 "Reparenting").
func (n *Node) TakeWriteBlocked() []*Update {
	n.writeBlockedMu.Lock()
	defer n.writeBlockedMu.Unlock()
	out := n.writeBlocked
	n.writeBlocked = nil
	return out
}

// RemoveWriteBlocked unlinks u from n's write_blocked list, used at
// publication time (spec §4.6 nodes_written step 2: "unlink from
// p.write_blocked").
func (n *Node) RemoveWriteBlocked(u *Update) {
	n.writeBlockedMu.Lock()
	defer n.writeBlockedMu.Unlock()
	for i, w := range n.writeBlocked {
		if w == u {
			n.writeBlocked = append(n.writeBlocked[:i], n.writeBlocked[i+1:]...)
			return
		}
	}
}

// CoversContiguously checks the range-cover invariant of spec §8 property
// 1 for n acting as a parent of children, in sorted order: children cover
// [n.MinKey, n.MaxKey] with no gaps or overlaps, the first child's MinKey
// equals n.MinKey, and the last child's MaxKey equals n.MaxKey.
func CoversContiguously(parentMin, parentMax bkey.Key, children []struct{ Min, Max bkey.Key }) bool {
	if len(children) == 0 {
		return false
	}
	if !children[0].Min.Equal(parentMin) {
		return false
	}
	if !children[len(children)-1].Max.Equal(parentMax) {
		return false
	}
	for i := 1; i < len(children); i++ {
		if !children[i].Min.Equal(children[i-1].Max.Successor()) {
			return false
		}
	}
	return true
}
