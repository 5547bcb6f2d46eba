package btree

// Flags is the upward entry-point bitset of spec §6.
type Flags uint32

const (
	// NoFail means the caller has no fallback; the op must not return
	// Again for caller-side retry (it may still Restart).
	NoFail Flags = 1 << iota
	// UseReserve draws from the Btree reserve class instead of None.
	UseReserve
	// UseAllocReserve draws from the Alloc (emergency) reserve class.
	UseAllocReserve
	// NoWait disables parking on a waiter; Again is returned immediately.
	NoWait
	// NoUnlock forbids dropping iterator locks to wait; Again must be
	// converted to Restart.
	NoUnlock
	// GCLockHeld tells Start the caller already holds the GC read lock.
	GCLockHeld
	// JournalReserved tells Start the journal credit was already reserved
	// by the caller (e.g. a recursive parent-insertion call).
	JournalReserved
	// JournalReclaim marks this op as running on the journal's own
	// reclaim path. Start does not read it: such an op takes journal
	// credit and is subject to journal-full back-pressure like any other.
	JournalReclaim
	// NoCheckRW skips the filesystem read-write-state check (used during
	// shutdown teardown).
	NoCheckRW
)

func (f Flags) has(bit Flags) bool { return f&bit != 0 }

func (f Flags) reserveClass() reserveClassSelector {
	switch {
	case f.has(UseAllocReserve):
		return selectAlloc
	case f.has(UseReserve):
		return selectBtree
	default:
		return selectNone
	}
}

type reserveClassSelector int

const (
	selectNone reserveClassSelector = iota
	selectBtree
	selectAlloc
)
