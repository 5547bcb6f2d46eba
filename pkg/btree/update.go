package btree

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/ssargent/btreefs/pkg/alloc"
	"github.com/ssargent/btreefs/pkg/bkey"
	"github.com/ssargent/btreefs/pkg/journal"
	"github.com/ssargent/btreefs/pkg/metrics"
	"github.com/ssargent/btreefs/pkg/nodepool"
)

// ModeKind tags Update.Mode's variant, per spec §3/§9 design note
// "variants over inheritance": NoUpdate, UpdatingNode(parent),
// UpdatingRoot, UpdatingAs(other).
type ModeKind int

const (
	NoUpdate ModeKind = iota
	UpdatingNode
	UpdatingRoot
	UpdatingAs
)

func (k ModeKind) String() string {
	switch k {
	case NoUpdate:
		return "NoUpdate"
	case UpdatingNode:
		return "UpdatingNode"
	case UpdatingRoot:
		return "UpdatingRoot"
	case UpdatingAs:
		return "UpdatingAs"
	default:
		return "Mode(?)"
	}
}

// Mode is the tagged union of spec §3: exactly one of Parent or Other is
// meaningful, selected by Kind. Modeled as a flat struct rather than an
// interface hierarchy per the design note — a type switch over Kind, not
// a dynamic dispatch over subtypes.
type Mode struct {
	Kind   ModeKind
	Parent *Node   // valid when Kind == UpdatingNode
	Other  *Update // valid when Kind == UpdatingAs
}

// Update is the in-flight topology op of spec §3/§4.5: the Topology Op
// Coordinator. One Update owns exactly one reservation of nodes, journal
// credit and disk space, for exactly one of split/merge/rewrite/
// update_key, until it publishes or rolls back.
type Update struct {
	fs      *Filesystem
	log     *logrus.Entry
	btreeID uint32
	flags   Flags

	mu   sync.Mutex
	mode Mode

	// lockedIntent is the set of nodes this update currently holds intent
	// on, per spec §5 rule (a) ("holds intent on every node it may mutate,
	// all the way to the root"). nodelock.Lock.Intent is not reentrant, so
	// every acquisition funnels through ensureIntent to avoid taking it
	// twice on the same node across an ascent; they are all released
	// together in free().
	lockedIntent map[*Node]bool

	reserve       *nodepool.Reservation
	journalPreRes uint64
	journalPinSeq uint64
	absorbedPins  []uint64

	newNodes    []*Node
	openBuckets []alloc.OpenBucket

	oldKeys []bkey.Pointer
	newKeys []bkey.Pointer

	inline []journal.Entry

	// completion counts new nodes whose write has not yet completed; the
	// update is ready to publish when it reaches zero (spec §4.6
	// "completion counter").
	completion atomic.Int64

	nodesWritten atomic.Bool

	// doneCh closes once Free has run, letting callers await full
	// teardown (e.g. in tests asserting idempotent retry leaks nothing).
	doneCh chan struct{}
}

// Filesystem is the topology engine's top-level object: the four
// process-wide mutexes of spec §5 ("Shared resources") are expressed as
// the guarded fields below, each with an acquire-once ordering comment,
// plus the collaborators it's wired to and the single-worker publication
// queue of spec §4.5 "[ADD]".
type Filesystem struct {
	Log      *logrus.Entry
	Metrics  *metrics.Metrics
	Cfg      engineConfig
	Reserve  NodeReserve
	Journal  Journal
	Alloc    Allocator
	Cache    NodeCache
	Replicas ReplicaMarker

	GC GCLock

	// updatesMu is btree_interior_update_lock: protects allUpdates and the
	// unwritten-updates queue membership check. write_blocked lists are
	// guarded by each node's writeBlockedMu, new_nodes by the Update's own
	// mu, and will_make_reachable is an atomic pointer. Never held while
	// acquiring rootMu or any node lock.
	updatesMu      sync.Mutex
	allUpdates     map[*Update]struct{}
	unwrittenQueue chan *Update

	// Roots is btree_root_lock's owner (its own internal mutex, spec
	// §4.7); never acquired while holding updatesMu.
	Roots *RootTable

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// engineConfig is the subset of pkg/config.Config the btree package
// actually consumes, kept as an unexported mirror so this package does
// not import pkg/config directly (avoiding an import cycle risk now that
// cmd/btreefsctl wires config -> btree -> {alloc,journal,...}).
type engineConfig struct {
	BlockSize         int
	BtreeNodeSize     int
	MetadataReplicas  int
	SplitThreshold    uint32
	MergeThreshold    uint32
	JournalUpdateRes  uint64
	MaxNewNodes       int
	MaxReserve        int
	BtreeMaxDepth     int
	ReserveReadyCache int
}

// NrPending reports the number of updates not yet published, per spec §6
// upward entry point "nr_pending".
func (fs *Filesystem) NrPending() int {
	fs.updatesMu.Lock()
	defer fs.updatesMu.Unlock()
	n := 0
	for u := range fs.allUpdates {
		if !u.nodesWritten.Load() {
			n++
		}
	}
	return n
}

// UpdatesToText renders every live update's mode and node counts, per
// spec §6 upward entry point "updates_to_text" (also the debug HTTP
// surface's /debug/updates backing call).
func (fs *Filesystem) UpdatesToText() []string {
	fs.updatesMu.Lock()
	defer fs.updatesMu.Unlock()
	out := make([]string, 0, len(fs.allUpdates))
	for u := range fs.allUpdates {
		u.mu.Lock()
		out = append(out, u.text())
		u.mu.Unlock()
	}
	return out
}

func (u *Update) text() string {
	mode := u.mode.Kind.String()
	return mode + " btree=" + itoa(u.btreeID) + " new_nodes=" + itoa(uint32(len(u.newNodes))) + " written=" + boolStr(u.nodesWritten.Load())
}

func itoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func (u *Update) setMode(m Mode) {
	u.mu.Lock()
	u.mode = m
	u.mu.Unlock()
}

func (u *Update) getMode() Mode {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.mode
}

// ensureIntent acquires intent on n unless u already holds it, so a node
// visited twice in one op (e.g. the same parent across an ascent, or a
// node already reparented onto u) is never asked to self-deadlock on its
// own non-reentrant intent reservation. All intents taken this way are
// released together by releaseIntents.
func (u *Update) ensureIntent(n *Node) {
	if n == nil {
		return
	}
	u.mu.Lock()
	if u.lockedIntent == nil {
		u.lockedIntent = make(map[*Node]bool)
	}
	if u.lockedIntent[n] {
		u.mu.Unlock()
		return
	}
	u.lockedIntent[n] = true
	u.mu.Unlock()

	n.Lock.Intent()
}

// releaseIntents drops every intent reservation ensureIntent acquired on
// u's behalf. Called once, from free().
func (u *Update) releaseIntents() {
	u.mu.Lock()
	nodes := make([]*Node, 0, len(u.lockedIntent))
	for n := range u.lockedIntent {
		nodes = append(nodes, n)
	}
	u.lockedIntent = nil
	u.mu.Unlock()

	for _, n := range nodes {
		n.Lock.UnlockIntent()
	}
}
