package btree

import (
	"context"

	"github.com/ssargent/btreefs/pkg/bkey"
	"github.com/ssargent/btreefs/pkg/btreeerr"
	"github.com/ssargent/btreefs/pkg/cache"
	"github.com/ssargent/btreefs/pkg/metrics"
)

// cacheShimKey derives a throwaway cache key distinct from k (k with
// First.Offset incremented), used as the rehash shim of spec §4.5
// update_key. UpdateKey removes both the shim and the old entry before
// hashing the node under its new key, so the node is briefly absent from
// the cache while its key changes.
func cacheShimKey(k cache.Key) cache.Key {
	shim := k
	shim.First.Offset++
	return shim
}

// nodeKeyOf builds the btree-pointer key a parent would hold for a
// freshly constructed child node, per spec §3's v2 pointer (carrying the
// child's exact min_key and bset sequence number).
func nodeKeyOf(fs *Filesystem, n *Node) bkey.BKey {
	return bkey.BKey{
		Pos:     n.MaxKey,
		Pointer: bkey.NewPointerV2(fs.Alloc.SectorsAppendPtrs(n.Buckets), n.MinKey, n.Seq),
	}
}

// DoSplit is the Split algorithm of spec §4.5: do_split(b, keys?, flags).
// SplitLeaf and the internal ascent both funnel through here.
//
// Implements the ascent as an explicit loop, per design note "Recursive
// tree descent during publication" — a parent insertion that itself
// overflows becomes the next loop iteration (equivalent to insert_node's
// "escalate to do_split(parent, keys, flags)"), bounded by
// BtreeMaxDepth, rather than function recursion. One Update is opened
// for the whole ascent and reused at every level: its nr_nodes
// reservation is sized to cover a full root-to-leaf cascade up front, so
// no level of the ascent can stall waiting on a fresh reservation.
func (fs *Filesystem) DoSplit(ctx context.Context, b *Node, keys []bkey.BKey, flags Flags) error {
	nrNodes := 2*fs.Cfg.BtreeMaxDepth + 1
	u, err := fs.Start(ctx, b.BtreeID, nrNodes, flags, nil)
	if err != nil {
		return err
	}
	u.fs.Metrics.Started(metrics.OpSplit)

	cur := b
	pending := keys

	for depth := 0; ; depth++ {
		if depth >= fs.Cfg.BtreeMaxDepth {
			u.free()
			return btreeerr.New(btreeerr.Fatal, "btree: split ascent exceeded max depth")
		}

		for n := cur; n != nil; n = n.Parent {
			u.ensureIntent(n)
		}

		u.willFreeNode(cur)

		n1, err := u.AllocReplacement(cur)
		if err != nil {
			u.free()
			return err
		}
		if len(pending) > 0 {
			if err := u.InsertKeys(n1, pending); err != nil {
				u.free()
				return err
			}
		}
		u.addNewNode(n1)
		n1.Parent = cur.Parent

		var newKeys []bkey.BKey
		var n2 *Node
		if n1.BSet.U64s() > fs.Cfg.SplitThreshold {
			CompactBeforeSplit(n1)
			n2, err = u.Split(n1)
			if err != nil {
				u.free()
				return err
			}
			u.addNewNode(n2)
			n2.Parent = cur.Parent
			newKeys = []bkey.BKey{nodeKeyOf(fs, n1), nodeKeyOf(fs, n2)}
		} else {
			newKeys = []bkey.BKey{nodeKeyOf(fs, n1)}
		}

		fs.Cache.HashRemove(cur.CacheKey())

		parent := cur.Parent
		if parent == nil {
			if n2 != nil {
				n3, err := u.RootAlloc(cur.BtreeID, cur.Level+1)
				if err != nil {
					u.free()
					return err
				}
				if err := u.InsertKeys(n3, newKeys); err != nil {
					u.free()
					return err
				}
				n1.Parent = n3
				n2.Parent = n3
				u.SetRoot(n3)
			} else {
				u.SetRoot(n1)
			}
			u.WriteNewNodes()
			u.fs.Metrics.Completed(metrics.OpSplit)
			return nil
		}

		projected := parent.BSet.U64s()
		for _, k := range newKeys {
			projected += k.U64s()
		}
		if projected <= fs.Cfg.SplitThreshold {
			u.setMode(Mode{Kind: UpdatingNode, Parent: parent})
			if err := u.InsertKeys(parent, newKeys); err != nil {
				u.free()
				return err
			}
			u.WriteNewNodes()
			u.fs.Metrics.Completed(metrics.OpSplit)
			return nil
		}

		cur = parent
		pending = newKeys
	}
}

// InsertNode is the Insert-node algorithm of spec §4.5: when a caller
// already knows keys must go into a specific interior node (rather than
// starting from a leaf that might need splitting), this is the entry
// point. It runs DoSplit(parent, keys): parent is replaced by a freshly
// allocated copy with keys inserted into it (and split if that copy
// exceeds SplitThreshold); keys are never spliced into parent in place,
// even when they would fit. Exposed for GC/rebalance
// callers (spec §2 "a caller... opens an Update") that have already
// located the parent.
func (fs *Filesystem) InsertNode(ctx context.Context, parent *Node, keys []bkey.BKey, flags Flags) error {
	return fs.DoSplit(ctx, parent, keys, flags)
}

// MaybeMerge is the Foreground Merge algorithm of spec §4.5: compute the
// combined size of b∪sib as the sum of both bsets' U64s (no union format
// is planned for this test); if it is at or below THRESHOLD, open a
// new Update, will_free_node both siblings, build the merged node, and
// enqueue a delete of prev's key plus an insert of the merged key into
// the parent via the same ascent DoSplit drives. Otherwise this call is
// a no-op (the caller's hysteresis-band bookkeeping on sib_u64s lives on
// the caller's side of the iterator, outside this engine's scope).
func (fs *Filesystem) MaybeMerge(ctx context.Context, prev, next, parent *Node, flags Flags) error {
	if !fs.GC.TryRLock() {
		if flags.has(NoUnlock) {
			return btreeerr.ErrRestart
		}
		fs.Metrics.GCLockWait()
		fs.GC.RLock()
	}
	defer fs.GC.RUnlock()

	merged := unionU64s(prev, next)
	if merged > fs.Cfg.MergeThreshold {
		return nil
	}

	nrNodes := 1
	u, err := fs.Start(ctx, prev.BtreeID, nrNodes, flags, nil)
	if err != nil {
		return err
	}
	u.fs.Metrics.Started(metrics.OpMerge)

	u.ensureIntent(prev)
	u.ensureIntent(next)
	if parent != nil {
		u.ensureIntent(parent)
	}

	u.willFreeNode(prev)
	u.willFreeNode(next)

	n, err := u.Merge(prev, next)
	if err != nil {
		u.free()
		return err
	}
	u.addNewNode(n)
	n.Parent = parent

	fs.Cache.HashRemove(prev.CacheKey())
	fs.Cache.HashRemove(next.CacheKey())

	prevKey := bkey.BKey{Pos: prev.MaxKey, Whiteout: true}
	newKey := nodeKeyOf(fs, n)

	if parent != nil {
		u.setMode(Mode{Kind: UpdatingNode, Parent: parent})
		if err := u.InsertKeys(parent, []bkey.BKey{prevKey, newKey}); err != nil {
			u.free()
			return err
		}
	} else {
		u.SetRoot(n)
	}

	u.WriteNewNodes()
	u.fs.Metrics.Completed(metrics.OpMerge)
	return nil
}

func unionU64s(a, b *Node) uint32 {
	total := a.BSet.U64s() + b.BSet.U64s()
	return total
}

// Rewrite is the Rewrite algorithm of spec §4.5: a single-node refresh.
// Allocate a replacement, write it, insert its pointer in the parent (or
// become the new root), free the old — spec scenario S4 "Rewrite under
// GC".
func (fs *Filesystem) Rewrite(ctx context.Context, b, parent *Node, flags Flags) error {
	if !flags.has(GCLockHeld) {
		if !fs.GC.TryRLock() {
			if flags.has(NoUnlock) {
				return btreeerr.ErrRestart
			}
			fs.Metrics.GCLockWait()
			fs.GC.RLock()
		}
		defer fs.GC.RUnlock()
	}

	u, err := fs.Start(ctx, b.BtreeID, 1, flags, nil)
	if err != nil {
		return err
	}
	u.fs.Metrics.Started(metrics.OpRewrite)

	u.ensureIntent(b)
	if parent != nil {
		u.ensureIntent(parent)
	}

	u.willFreeNode(b)

	n, err := u.AllocReplacement(b)
	if err != nil {
		u.free()
		return err
	}
	u.addNewNode(n)
	n.Parent = parent

	fs.Cache.HashRemove(b.CacheKey())

	if parent != nil {
		u.setMode(Mode{Kind: UpdatingNode, Parent: parent})
		if err := u.InsertKeys(parent, []bkey.BKey{nodeKeyOf(fs, n)}); err != nil {
			u.free()
			return err
		}
	} else {
		u.SetRoot(n)
	}

	u.WriteNewNodes()
	u.fs.Metrics.Completed(metrics.OpRewrite)
	return nil
}

// UpdateKey changes only b's pointer (e.g. data rebalanced to a new
// device) without rewriting contents — spec §4.5 update_key. If the
// pointer's hash value changes (a different node-cache key would
// result), a throwaway rehash shim is used: the node is hashed under a
// shim key derived from its old key, MinKey is changed, the shim and old
// entries are removed, and the node is hashed under its new key.
func (fs *Filesystem) UpdateKey(ctx context.Context, b, parent *Node, newPtr bkey.Pointer, flags Flags) error {
	u, err := fs.Start(ctx, b.BtreeID, 0, flags, nil)
	if err != nil {
		return err
	}
	u.fs.Metrics.Started(metrics.OpUpdateKey)

	u.ensureIntent(b)
	if parent != nil {
		u.ensureIntent(parent)
	}

	oldKey := b.CacheKey()
	newMinKey := newPtr.MinKey

	b.Lock.Upgrade()
	rehash := !newMinKey.Equal(b.MinKey)
	if rehash {
		shimKey := cacheShimKey(oldKey)
		fs.Cache.HashInsert(shimKey, b)
		b.MinKey = newMinKey
		fs.Cache.HashRemove(shimKey)
		fs.Cache.HashRemove(oldKey)
		fs.Cache.HashInsert(b.CacheKey(), b)
	}

	b.Ptrs = newPtr.Ptrs
	b.Lock.Downgrade()

	newKey := bkey.BKey{Pos: b.MaxKey, Pointer: newPtr}
	if parent != nil {
		u.setMode(Mode{Kind: UpdatingNode, Parent: parent})
		if err := u.InsertKeys(parent, []bkey.BKey{newKey}); err != nil {
			u.free()
			return err
		}
		u.fs.Metrics.Completed(metrics.OpUpdateKey)
		// update_key does not itself durable-write new nodes (it has none);
		// the publication worker still needs to fire on the parent's
		// pending write, so treat the op as already "written".
		u.WriteNewNodes()
		return nil
	}

	u.free()
	u.fs.Metrics.Completed(metrics.OpUpdateKey)
	return nil
}
