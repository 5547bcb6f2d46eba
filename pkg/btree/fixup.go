package btree

import (
	"github.com/ssargent/btreefs/pkg/bkey"
	"github.com/ssargent/btreefs/pkg/journal"
)

// InsertKeys is the Key-Insert Fixup of spec §4.4. Given parent p and a
// sorted list of btree-pointer keys K:
//
//  1. For each k in K: advance to the first key >= k.pos, splice k into
//     the bset at that position, append a {BtreeKeys, p.btree_id,
//     p.level, k} journal entry to the Update's inline buffer. Any key
//     displaced by the splice is recorded as an old_key (overwrite); k
//     itself is recorded as a new_key (insert) unless it is a whiteout.
//  2. Mark p dirty and need-write.
//  3. If the op is UpdatingNode(p), register on p's write_blocked list
//     so p cannot be written until this op's new children are durable.
func (u *Update) InsertKeys(parent *Node, keys []bkey.BKey) error {
	u.ensureIntent(parent)
	parent.Lock.Upgrade()
	defer parent.Lock.Downgrade()

	for _, k := range keys {
		if displaced, ok := parent.BSet.At(k.Pos); ok && !displaced.Whiteout {
			u.oldKeys = append(u.oldKeys, displaced.Pointer)
		}
		parent.BSet.Insert(k)

		u.mu.Lock()
		u.inline = append(u.inline, journal.Entry{
			Type:    journal.EntryBtreeKeys,
			BtreeID: parent.BtreeID,
			Level:   parent.Level,
			Keys:    []bkey.BKey{k},
		})
		u.mu.Unlock()

		if k.Whiteout {
			u.oldKeys = append(u.oldKeys, k.Pointer)
		} else {
			u.newKeys = append(u.newKeys, k.Pointer)
		}
	}

	parent.Flags.Dirty = true
	parent.Flags.NeedWrite = true

	if mode := u.getMode(); mode.Kind == UpdatingNode && mode.Parent == parent {
		parent.AddWriteBlocked(u)
	}
	return nil
}

// CompactBeforeSplit compacts whiteouts out of n's bset, per spec §4.4
// "Before splitting a just-built node, whiteouts in its bset are
// compacted down so a whiteout cannot be chosen as pivot."
func CompactBeforeSplit(n *Node) {
	n.BSet.CompactWhiteouts()
}
