package btree

import (
	"context"

	"github.com/ssargent/btreefs/pkg/alloc"
	"github.com/ssargent/btreefs/pkg/btreeerr"
	"github.com/ssargent/btreefs/pkg/nodepool"
)

// Start opens a new topology op, per spec §4.5:
//
//  1. Fail fast if the journal is in error state.
//  2. Reserve journal credit = BTREE_UPDATE_JOURNAL_RES.
//  3. Reserve disk space nr_nodes * btree_node_size * metadata_replicas
//     (folded into step 4: this engine's NodeReserve already reserves one
//     disk extent per node).
//  4. Reserve nr_nodes nodes from the pool.
//  5. Link into all_updates.
//
// waiter is a channel the op may be asked to wait on before retrying
// after an Again; nil means the caller accepts NoWait semantics.
func (fs *Filesystem) Start(ctx context.Context, btreeID uint32, nrNodes int, flags Flags, waiter chan struct{}) (*Update, error) {
	if err := fs.Journal.Error(); err != nil {
		return nil, err
	}

	u := &Update{
		fs:      fs,
		log:     fs.Log.WithField("btree_id", btreeID),
		btreeID: btreeID,
		flags:   flags,
		doneCh:  make(chan struct{}),
	}

	if !flags.has(JournalReserved) {
		if err := fs.Journal.PreresGet(fs.Cfg.JournalUpdateRes); err != nil {
			if btreeerr.Is(err, btreeerr.JournalFull) && flags.has(NoUnlock) {
				return nil, btreeerr.New(btreeerr.Restart, "NOUNLOCK caller cannot wait for journal credit: %v", err)
			}
			return nil, err
		}
		u.journalPreRes = fs.Cfg.JournalUpdateRes
	}

	// Take the op's journal pin the moment it takes journal credit, per
	// spec §4.6: held for the op's whole lifetime, not only once it
	// reaches publish(). This is what lets reparent (reachability.go)
	// hand the pin off to an absorbing update while this one is still
	// mid-flight, sitting on some node's write_blocked list.
	seq := fs.Journal.ReserveSeq()
	fs.Journal.AddPin(seq)
	u.journalPinSeq = seq

	class := nodepool.ClassNone
	switch flags.reserveClass() {
	case selectBtree:
		class = nodepool.ClassBtree
	case selectAlloc:
		class = nodepool.ClassAlloc
	}

	reservation, err := fs.Reserve.Get(nrNodes, class)
	if err != nil {
		if u.journalPreRes > 0 {
			fs.Journal.PreresPut(u.journalPreRes)
		}
		fs.Journal.PinDrop(u.journalPinSeq)
		u.journalPinSeq = 0
		if btreeerr.Is(err, btreeerr.Again) && flags.has(NoUnlock) {
			return nil, btreeerr.AgainToRestart(err)
		}
		return nil, err
	}
	u.reserve = reservation

	fs.updatesMu.Lock()
	if fs.allUpdates == nil {
		fs.allUpdates = make(map[*Update]struct{})
	}
	fs.allUpdates[u] = struct{}{}
	fs.updatesMu.Unlock()

	u.log.Debug("update started")
	return u, nil
}

// free returns every scoped resource an Update holds — disk reservation,
// journal pre-reservation, node-pool allocations, open-bucket pins — and
// unlinks it from all_updates. Per spec §9 "Scoped resources", this is
// invoked on every exit path: successful publication (via nodes_written)
// and rollback alike.
func (u *Update) free() {
	fs := u.fs

	u.releaseIntents()

	if u.reserve != nil && u.reserve.Len() > 0 {
		fs.Reserve.Release(u.reserve)
	}
	if u.journalPreRes > 0 {
		fs.Journal.PreresPut(u.journalPreRes)
		u.journalPreRes = 0
	}
	if u.journalPinSeq != 0 {
		fs.Journal.PinDrop(u.journalPinSeq)
		u.journalPinSeq = 0
	}
	for _, seq := range u.absorbedPins {
		fs.Journal.PinDrop(seq)
	}
	u.absorbedPins = nil
	if len(u.openBuckets) > 0 {
		_ = fs.Alloc.OpenBucketsPut(u.openBuckets)
		u.openBuckets = nil
	}

	fs.updatesMu.Lock()
	delete(fs.allUpdates, u)
	fs.updatesMu.Unlock()

	close(u.doneCh)
	u.log.Debug("update freed")
}

// popReserved pops one preallocated node slot's open buckets from u's
// reservation, per the Node Constructor's "pops a preallocated node"
// language (spec §4.3). The returned buckets are also tracked on u's
// openBuckets list so free() releases them if the node is never
// published.
func (u *Update) popReserved() ([]alloc.OpenBucket, bool) {
	if u.reserve == nil {
		return nil, false
	}
	obs, ok := u.reserve.Pop()
	if !ok {
		return nil, false
	}
	u.openBuckets = append(u.openBuckets, obs...)
	return obs, true
}
