// Package bkey implements the packed-key position and btree-pointer value
// types used throughout the interior node update engine. The wire encoding
// of a real bset (bit-packed fields, a shared per-bset format) is external
// to this engine; this package only needs a total order, a successor
// operation, and a stable byte encoding good enough for the format planner
// and the journal to reason about.
package bkey

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Key is a btree search position: (inode, offset, snapshot). Interior
// nodes are keyed on Key ranges; POSMin and POSMax bound the whole
// keyspace for a btree id.
type Key struct {
	Inode    uint64
	Offset   uint64
	Snapshot uint32
}

// PosMin and PosMax bound the keyspace of any btree id.
var (
	PosMin = Key{Snapshot: ^uint32(0)}
	PosMax = Key{Inode: ^uint64(0), Offset: ^uint64(0)}
)

// Compare orders keys by (Inode, Offset, Snapshot), descending snapshot:
// at the same (Inode, Offset), larger snapshot ids sort first and
// snapshot 0 sorts last.
func (k Key) Compare(o Key) int {
	if k.Inode != o.Inode {
		if k.Inode < o.Inode {
			return -1
		}
		return 1
	}
	if k.Offset != o.Offset {
		if k.Offset < o.Offset {
			return -1
		}
		return 1
	}
	if k.Snapshot != o.Snapshot {
		if k.Snapshot > o.Snapshot {
			return -1
		}
		return 1
	}
	return 0
}

// Less reports whether k sorts before o.
func (k Key) Less(o Key) bool { return k.Compare(o) < 0 }

// Equal reports key equality.
func (k Key) Equal(o Key) bool { return k.Compare(o) == 0 }

// Successor returns the smallest key strictly greater than k. Offset/Inode
// overflow saturates at PosMax rather than wrapping, since PosMax is itself
// a valid sentinel "no successor" value.
func (k Key) Successor() Key {
	if k == PosMax {
		return PosMax
	}
	if k.Snapshot > 0 {
		k.Snapshot--
		return k
	}
	k.Snapshot = ^uint32(0)
	if k.Offset != ^uint64(0) {
		k.Offset++
		return k
	}
	k.Offset = 0
	k.Inode++
	return k
}

// String renders a key for debug/log output.
func (k Key) String() string {
	return fmt.Sprintf("%d:%d#%d", k.Inode, k.Offset, k.Snapshot)
}

// U64s reports the number of 8-byte words this key occupies once packed
// under the trivial fixed-width format. The real bset format planner
// (package bformat) computes a tighter, variable-width count; this is the
// baseline "unpacked" cost used as a fallback and for tests.
func (k Key) U64s() uint32 { return 3 }

// PointerVersion distinguishes the two wire versions of a btree-pointer
// value, per spec §3: v2 additionally carries the child's exact min_key
// and bset sequence number, which is what lets a parent avoid a fresh
// lookup to discover where its child's range actually starts after a
// reparenting.
type PointerVersion uint8

const (
	PointerV1 PointerVersion = 1
	PointerV2 PointerVersion = 2
)

// DevicePtr is one replica of a node's on-disk extent.
type DevicePtr struct {
	Device uint8
	Bucket uint64
	Gen    uint8
}

// Pointer is the value stored in an interior node for one child: a set of
// device pointers (one per metadata replica) plus, for v2, the child's
// exact MinKey and the child bset's sequence number.
type Pointer struct {
	Version PointerVersion
	Ptrs    []DevicePtr
	MinKey  Key
	BSetSeq uint64
}

// NewPointerV2 builds a v2 btree pointer for a freshly constructed node.
func NewPointerV2(ptrs []DevicePtr, minKey Key, bsetSeq uint64) Pointer {
	return Pointer{Version: PointerV2, Ptrs: append([]DevicePtr(nil), ptrs...), MinKey: minKey, BSetSeq: bsetSeq}
}

// U64s is the packed size estimate for this pointer value: one word per
// device pointer plus, for v2, three words for MinKey and one for BSetSeq.
func (p Pointer) U64s() uint32 {
	n := uint32(len(p.Ptrs))
	if p.Version == PointerV2 {
		n += 3 + 1
	}
	return n
}

// BKey pairs a search key with an interior-node pointer value — the unit
// that Key-Insert Fixup splices into a parent's bset.
type BKey struct {
	Pos      Key
	Pointer  Pointer
	Whiteout bool
}

// U64s is the total packed cost of this key, used by the format planner
// and the SPLIT_THRESHOLD/foreground-merge union-format computations.
func (k BKey) U64s() uint32 {
	if k.Whiteout {
		return k.Pos.U64s()
	}
	return k.Pos.U64s() + k.Pointer.U64s()
}

// Encode produces a stable, order-preserving byte encoding of Pos, used as
// the node cache key and for deterministic test fixtures. It is not the
// on-disk bset wire format.
func (k Key) Encode() []byte {
	buf := make([]byte, 20)
	binary.BigEndian.PutUint64(buf[0:8], k.Inode)
	binary.BigEndian.PutUint64(buf[8:16], k.Offset)
	binary.BigEndian.PutUint32(buf[16:20], ^k.Snapshot) // invert so bytes sort with descending snapshot
	return buf
}

// CompareBytes compares two encoded keys lexicographically, consistent
// with Compare. Exposed for collaborators (e.g. the pebble-backed
// allocator) that only see raw keys.
func CompareBytes(a, b []byte) int { return bytes.Compare(a, b) }
