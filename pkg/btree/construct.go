package btree

import (
	"github.com/ssargent/btreefs/pkg/bformat"
	"github.com/ssargent/btreefs/pkg/bkey"
	"github.com/ssargent/btreefs/pkg/bset"
	"github.com/ssargent/btreefs/pkg/btreeerr"
)

// newFromReserve pops one preallocated node slot and wires its device
// pointers, shared by all four Node Constructor entry points.
func (u *Update) newFromReserve(btreeID uint32, level uint8) (*Node, error) {
	obs, ok := u.popReserved()
	if !ok {
		return nil, btreeerr.New(btreeerr.ReserveExhausted, "btree: no preallocated node available")
	}
	n := NewNode(btreeID, level)
	n.Buckets = obs
	n.Ptrs = u.fs.Alloc.SectorsAppendPtrs(obs)
	return n, nil
}

// AllocReplacement pops a preallocated node, copies [min_key, max_key]
// and sequence number + 1 from src, installs the planner's chosen
// format, and re-sorts src's live keys into it dropping whiteouts — spec
// §4.3 entry point 1.
func (u *Update) AllocReplacement(src *Node) (*Node, error) {
	n, err := u.newFromReserve(src.BtreeID, src.Level)
	if err != nil {
		return nil, err
	}
	n.MinKey = src.MinKey
	n.MaxKey = src.MaxKey
	n.Seq = src.Seq + 1

	keys := src.BSet.Keys()
	n.format = planFormat(keys, u.fs.Cfg.BlockSize)
	n.BSet = bset.FromSorted(keys)
	return n, nil
}

// Split pops a second node n2, walks n1's single bset with a cursor,
// stops at the first key past floor(3*u64s/5), uses that key as the
// pivot (never a whiteout — n1.BSet.Keys() already excludes whiteouts,
// satisfying spec §8 property 3 without a separate compaction step here
// since the caller is required to compact first per §4.4), sets
// n1.max_key = pivot and n2.min_key = successor(pivot), and copies the
// remainder into n2's bset — spec §4.3 entry point 2.
func (u *Update) Split(n1 *Node) (*Node, error) {
	n2, err := u.newFromReserve(n1.BtreeID, n1.Level)
	if err != nil {
		return nil, err
	}

	keys := n1.BSet.Keys()
	if len(keys) < 2 {
		return nil, btreeerr.New(btreeerr.Fatal, "btree: cannot split a node with fewer than 2 live keys")
	}

	total := uint64(0)
	for _, k := range keys {
		total += k.U64s()
	}
	cutoff := (3 * total) / 5

	idx := 0
	running := uint64(0)
	for i, k := range keys {
		running += k.U64s()
		idx = i
		if running > cutoff {
			break
		}
	}
	if idx == len(keys)-1 && running <= cutoff {
		idx = len(keys) - 2
	}

	pivot := keys[idx].Pos
	origMax := n1.MaxKey

	n1.MaxKey = pivot
	n2.MinKey = pivot.Successor()
	n2.MaxKey = origMax

	lower := keys[:idx+1]
	upper := keys[idx+1:]

	n1.format = planFormat(lower, u.fs.Cfg.BlockSize)
	n1.BSet = bset.FromSorted(lower)
	n2.format = planFormat(upper, u.fs.Cfg.BlockSize)
	n2.BSet = bset.FromSorted(upper)

	return n2, nil
}

// Merge pops a node, sets range [prev.min_key, next.max_key], computes
// the union format, and sort-inserts keys from both sources — spec §4.3
// entry point 3.
func (u *Update) Merge(prev, next *Node) (*Node, error) {
	n, err := u.newFromReserve(prev.BtreeID, prev.Level)
	if err != nil {
		return nil, err
	}
	n.MinKey = prev.MinKey
	n.MaxKey = next.MaxKey
	n.Seq = maxSeq(prev.Seq, next.Seq) + 1

	merged := bset.Merge(prev.BSet, next.BSet)
	n.format = planFormat(merged.Keys(), u.fs.Cfg.BlockSize)
	n.BSet = merged
	return n, nil
}

// RootAlloc pops a node, sets range [POS_MIN, POS_MAX], format from
// empty, and registers it with the reachability graph immediately — spec
// §4.3 entry point 4.
func (u *Update) RootAlloc(btreeID uint32, level uint8) (*Node, error) {
	n, err := u.newFromReserve(btreeID, level)
	if err != nil {
		return nil, err
	}
	n.MinKey = bkey.PosMin
	n.MaxKey = bkey.PosMax
	n.format = bformat.Empty()
	n.BSet = bset.New()
	u.addNewNode(n)
	return n, nil
}

// planFormat returns the format planned for keys. When that format does
// not fit blockSize it is returned anyway: the node's previous format is
// not reused.
func planFormat(keys []bkey.BKey, blockSize int) bformat.Format {
	f, ok := bformat.PlanAndTest(keys, blockSize)
	if !ok {
		return bformat.Plan(keys)
	}
	return f
}

func maxSeq(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
