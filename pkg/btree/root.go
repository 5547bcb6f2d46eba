package btree

import (
	"sync"

	"github.com/ssargent/btreefs/pkg/bkey"
	"github.com/ssargent/btreefs/pkg/journal"
)

// RootTable is the per-filesystem root pointer table of spec §4.7,
// guarded by the single btree_root_lock of spec §5's "Shared resources".
type RootTable struct {
	mu    sync.Mutex
	roots map[uint32]*Node
}

// NewRootTable returns an empty root table.
func NewRootTable() *RootTable {
	return &RootTable{roots: make(map[uint32]*Node)}
}

// Get returns the current root node for btreeID, per upward entry point
// "root_for_read" (spec §6).
func (rt *RootTable) Get(btreeID uint32) (*Node, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	n, ok := rt.roots[btreeID]
	return n, ok
}

// setDirect installs n as btreeID's root without any lock/journal
// choreography, used only by Recover to replay journaled root changes
// at startup.
func (rt *RootTable) setDirect(btreeID uint32, n *Node) {
	rt.mu.Lock()
	rt.roots[btreeID] = n
	rt.mu.Unlock()
}

// SetRoot is spec §4.7's set_root(new):
//
//  1. Take the write lock on the old root's in-memory node (blocks
//     readers who would traverse it). The caller is required to already
//     hold intent on old (via Update.ensureIntent, taken earlier in the
//     same op), so only the intent->write upgrade happens here.
//  2. Swap the root pointer.
//  3. Emit a {BtreeRoot, btree_id, level, new.key} journal entry into the
//     Update's inline buffer (flushed later by the publication worker,
//     once new's write completes — see reachability.go maybeEnqueuePublish
//     and worker.go's worker loop).
//  4. Mark the Update UpdatingRoot, which is this engine's way of
//     "registering on unwritten_updates" (spec §4.6): the update is
//     already linked into all_updates by Start, and the worker picks it
//     up the moment its completion counter reaches zero.
//  5. Release the old root's write lock only after the swap is visible.
func (u *Update) SetRoot(new *Node) {
	rt := u.fs.Roots

	rt.mu.Lock()
	old := rt.roots[u.btreeID]
	rt.mu.Unlock()

	if old != nil {
		old.Lock.Upgrade()
	}

	rt.mu.Lock()
	rt.roots[u.btreeID] = new
	rt.mu.Unlock()

	u.fs.Cache.MarkRoot(new.CacheKey(), true)
	if old != nil {
		u.fs.Cache.MarkRoot(old.CacheKey(), false)
	}

	ptr := bkey.NewPointerV2(u.fs.Alloc.SectorsAppendPtrs(new.Buckets), new.MinKey, new.Seq)
	u.mu.Lock()
	u.inline = append(u.inline, journal.Entry{
		Type:    journal.EntryBtreeRoot,
		BtreeID: u.btreeID,
		Level:   new.Level,
		RootKey: ptr,
	})
	u.mode = Mode{Kind: UpdatingRoot}
	u.mu.Unlock()

	if old != nil {
		old.Lock.Downgrade()
	}
}

// Recover replays every {BtreeRoot} entry in journal-sequence order into
// the root table at startup, per spec §4.7 "At startup, all btree roots
// are recovered by replaying {BtreeRoot} journal entries into the root
// table." The recovered nodes are bare shells carrying only the
// identity a reader needs (range, level, device pointers); a real
// filesystem would fault in the node body lazily on first traversal,
// which is this engine's external leaf/iterator collaborator's concern
// (spec §1), not this recovery path's.
func (rt *RootTable) Recover(filePath string) error {
	return journal.Replay(filePath, func(e journal.Entry) error {
		if e.Type != journal.EntryBtreeRoot {
			return nil
		}
		n := NewNode(e.BtreeID, e.Level)
		n.MinKey = bkey.PosMin
		n.MaxKey = bkey.PosMax
		n.Seq = e.RootKey.BSetSeq
		n.Ptrs = append([]bkey.DevicePtr(nil), e.RootKey.Ptrs...)
		n.Flags.NoEvict = true
		rt.setDirect(e.BtreeID, n)
		return nil
	})
}
