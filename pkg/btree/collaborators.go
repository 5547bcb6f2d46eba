package btree

import (
	"context"

	"github.com/ssargent/btreefs/pkg/alloc"
	"github.com/ssargent/btreefs/pkg/bkey"
	"github.com/ssargent/btreefs/pkg/cache"
	"github.com/ssargent/btreefs/pkg/journal"
	"github.com/ssargent/btreefs/pkg/nodepool"
)

// NodeReserve is the downward Node Reserve Pool interface of spec §6
// ("mem_alloc", "cannibalize_lock/unlock" folded into Get's internal
// top-up). Satisfied by *nodepool.Pool; mocked in tests via
// go.uber.org/mock to exercise Start's back-pressure/Again paths without
// a real allocator.
type NodeReserve interface {
	Get(n int, class nodepool.Class) (*nodepool.Reservation, error)
	Release(r *nodepool.Reservation)
}

// Journal is the downward journal interface of spec §6: "preres_get/put,
// pin_copy/drop, error, add_journal_pin, batched entries appended by
// value." ReserveSeq/AppendBatchAt split sequence assignment from
// append so an Update can hold its journal pin from Start (spec §4.6)
// instead of only from inside the publication worker.
type Journal interface {
	PreresGet(amount uint64) error
	PreresPut(amount uint64)
	Error() error
	SetErrored()
	ReserveSeq() uint64
	AppendBatchAt(ctx context.Context, seq uint64, entries []journal.Entry) error
	AddPin(seq uint64)
	PinCopy(seq uint64)
	PinDrop(seq uint64)
}

// Allocator is the downward allocator interface of spec §6:
// "sectors_start, sectors_append_ptrs, sectors_done, open_buckets_get/
// put."
type Allocator interface {
	SectorsStart(class alloc.ReserveClass) ([]alloc.OpenBucket, error)
	SectorsAppendPtrs(obs []alloc.OpenBucket) []bkey.DevicePtr
	SectorsDone(obs []alloc.OpenBucket)
	OpenBucketsPut(obs []alloc.OpenBucket) error
	MetadataReplicas() int
}

// NodeCache is the downward node-cache interface of spec §6:
// "hash_insert, hash_remove, mem_alloc, cannibalize_lock/unlock" (the
// latter two live in NodeReserve here, since this engine's cannibalize
// path is folded into node reservation, not node lookup).
type NodeCache interface {
	HashInsert(key cache.Key, n *Node)
	HashRemove(key cache.Key)
	Lookup(key cache.Key) (*Node, bool)
	MarkRoot(key cache.Key, isRoot bool)
}

// ReplicaMarker is the downward "replicas/usage marking" collaborator of
// spec §6: `mark_bkey_replicas`, invoked once per key the Key-Insert
// Fixup inserts or deletes so the refcount/ownership layer below this
// engine stays consistent. Out of scope for this engine's own
// correctness (spec §1), so the default implementation is a no-op that
// satisfies the interface; a real filesystem would swap in the actual
// reference-counting store here.
type ReplicaMarker interface {
	MarkInsert(ptr bkey.Pointer)
	MarkOverwrite(ptr bkey.Pointer)
}

// NoopReplicaMarker is the zero-value ReplicaMarker used when no real
// refcount layer is wired in (e.g. in-process tests of the topology
// engine alone).
type NoopReplicaMarker struct{}

func (NoopReplicaMarker) MarkInsert(bkey.Pointer)    {}
func (NoopReplicaMarker) MarkOverwrite(bkey.Pointer) {}
