// Package nodepool implements the Node Reserve Pool of spec §4.1:
// pre-allocates free nodes (disk extent + in-memory node) before any
// topology op begins, so the op cannot stall mid-way once it starts
// mutating the tree. Grounded on the teacher's HashIndex/LogWriter
// resource-acquisition style (mutex-guarded pool + short-circuit cache)
// generalized to hold typed reserve slots instead of byte records.
package nodepool

import (
	"sync"

	"github.com/ssargent/btreefs/pkg/alloc"
	"github.com/ssargent/btreefs/pkg/btreeerr"
)

// Class is the reserve class of spec §4.1.
type Class int

const (
	// ClassNone is the ordinary reserve quota; may block on allocator
	// back-pressure.
	ClassNone Class = iota
	// ClassBtree is used for ops already holding other reserves. Get and
	// the allocator treat it exactly like ClassNone: it has no separate,
	// smaller quota.
	ClassBtree
	// ClassAlloc is emergency quota for ops called from allocator
	// writeback paths; never blocks on allocation.
	ClassAlloc
)

func (c Class) allocClass() alloc.ReserveClass {
	switch c {
	case ClassAlloc:
		return alloc.ReserveAlloc
	case ClassBtree:
		return alloc.ReserveBtree
	default:
		return alloc.ReserveNone
	}
}

// Reservation is a set of free node slots owned exclusively by whoever
// called Get, until they are Installed (ownership transferred to the
// tree + cache) or Released back to the pool on rollback — spec §3
// "Ownership & lifecycle".
type Reservation struct {
	Buckets [][]alloc.OpenBucket
}

// Len reports how many node slots remain in the reservation.
func (r *Reservation) Len() int { return len(r.Buckets) }

// Pop removes and returns one node slot's open buckets, per "pops a
// preallocated node" language throughout spec §4.3.
func (r *Reservation) Pop() ([]alloc.OpenBucket, bool) {
	if len(r.Buckets) == 0 {
		return nil, false
	}
	ob := r.Buckets[len(r.Buckets)-1]
	r.Buckets = r.Buckets[:len(r.Buckets)-1]
	return ob, true
}

// Pool is the per-filesystem node reserve pool: a ready-to-use cache of
// up to K free nodes (short-circuiting the allocator on the common path)
// plus the single cannibalize lock serializing LRU-reap top-ups.
type Pool struct {
	alloc *alloc.Allocator

	mu          sync.Mutex
	ready       [][]alloc.OpenBucket
	readyMax    int
	cannibalize sync.Mutex
}

// New creates a pool backed by a, with a ready-cache capacity of
// readyMax (spec §4.1 "K").
func New(a *alloc.Allocator, readyMax int) *Pool {
	return &Pool{alloc: a, readyMax: readyMax}
}

// Get reserves n free nodes under the given class, per spec §4.1's
// contract: `reserve_get(n, flags, waiter) -> Ok | Again | Err`. This
// implementation returns (Reservation, nil) for Ok, or a btreeerr.Again
// for retry-after-waiter, or another error for a hard failure. This pool
// never genuinely blocks (the simulated allocator either has capacity or
// doesn't). "Again" is returned to ClassNone and ClassBtree callers
// whenever the ready cache cannot cover n and another goroutine holds the
// cannibalize lock; ClassAlloc callers spin on that lock instead. Callers
// must not hold node write-locks across a retry, per spec.
func (p *Pool) Get(n int, class Class) (*Reservation, error) {
	r := &Reservation{}

	p.mu.Lock()
	for len(r.Buckets) < n && len(p.ready) > 0 {
		last := len(p.ready) - 1
		r.Buckets = append(r.Buckets, p.ready[last])
		p.ready = p.ready[:last]
	}
	p.mu.Unlock()

	for len(r.Buckets) < n {
		if !p.cannibalize.TryLock() {
			if class == ClassAlloc {
				continue // emergency quota never blocks
			}
			return nil, btreeerr.ErrAgain
		}
		obs, err := p.alloc.SectorsStart(class.allocClass())
		p.cannibalize.Unlock()
		if err != nil {
			if len(r.Buckets) > 0 {
				p.Release(r)
			}
			return nil, btreeerr.New(btreeerr.ReserveExhausted, "nodepool: %v", err)
		}
		r.Buckets = append(r.Buckets, obs)
	}
	return r, nil
}

// Release returns a reservation's remaining slots to the pool: into the
// ready cache up to readyMax, surplus back to the allocator (spec §4.1
// "When the cache is full, surplus nodes return their buckets to the
// allocator.").
func (p *Pool) Release(r *Reservation) {
	p.mu.Lock()
	var surplus [][]alloc.OpenBucket
	for _, obs := range r.Buckets {
		if len(p.ready) < p.readyMax {
			p.ready = append(p.ready, obs)
		} else {
			surplus = append(surplus, obs)
		}
	}
	r.Buckets = nil
	p.mu.Unlock()

	for _, obs := range surplus {
		_ = p.alloc.OpenBucketsPut(obs)
	}
}

// ReadyLen reports the current ready-cache occupancy, for tests and
// /debug/updates.
func (p *Pool) ReadyLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ready)
}
