// Package alloc implements the allocator collaborator of spec §6:
// sectors_start/sectors_append_ptrs/sectors_done/open_buckets_get/put.
// It is grounded on the teacher's pebble-backed storage.DefaultStorage
// (pkg/storage/storage.go), repurposed from "persist an arbitrary blob
// under a ksuid key" to "persist a disk bucket's generation/liveness
// metadata under a (device, bucket) key" — pebble.DB stands in for the
// on-disk free-space map that a real COW block allocator maintains.
package alloc

import (
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/sirupsen/logrus"

	"github.com/ssargent/btreefs/pkg/bkey"
	"github.com/ssargent/btreefs/pkg/btreeerr"
)

// ReserveClass is the three-way reserve class of spec §4.1.
type ReserveClass int

const (
	// ReserveNone is the ordinary quota; may block on back-pressure.
	ReserveNone ReserveClass = iota
	// ReserveBtree is for ops already holding other reserves. SectorsStart
	// applies the same free-bucket check to it as to ReserveNone; it has
	// no separate, smaller quota.
	ReserveBtree
	// ReserveAlloc is emergency quota for allocator-writeback callers;
	// never blocks on allocation.
	ReserveAlloc
)

// OpenBucket pins a disk extent in flight, preventing its reuse until the
// pin is released (spec GLOSSARY "open bucket").
type OpenBucket struct {
	Device uint8
	Bucket uint64
	Gen    uint8
}

// Allocator hands out disk extents and tracks open-bucket pins. Config
// limits model the finite pool a real filesystem allocates from.
type Allocator struct {
	log *logrus.Entry
	db  *pebble.DB

	mu           sync.Mutex
	nextBucket   uint64
	totalBuckets uint64
	freeBuckets  uint64
	replicas     int
	devices      int
}

// Config configures the allocator's simulated device set.
type Config struct {
	Path           string
	TotalBuckets   uint64
	Devices        int
	MetadataReplicas int
}

// Open creates/opens the pebble-backed bucket metadata store.
func Open(cfg Config, log *logrus.Entry) (*Allocator, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	db, err := pebble.Open(cfg.Path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	devices := cfg.Devices
	if devices == 0 {
		devices = 1
	}
	replicas := cfg.MetadataReplicas
	if replicas == 0 {
		replicas = 1
	}
	return &Allocator{
		log:          log.WithField("component", "alloc"),
		db:           db,
		totalBuckets: cfg.TotalBuckets,
		freeBuckets:  cfg.TotalBuckets,
		replicas:     replicas,
		devices:      devices,
	}, nil
}

// MetadataReplicas reports the configured replica count, used by
// nodepool to size disk reservations (spec §4.5 step 3: "nr_nodes *
// btree_node_size * metadata_replicas").
func (a *Allocator) MetadataReplicas() int { return a.replicas }

// SectorsStart allocates one bucket per metadata replica, assigning
// devices round-robin (replica i goes to device i mod Devices, so devices
// repeat when replicas exceed devices), pinning each as an OpenBucket —
// spec §6 "sectors_start(target,
// reserve_class, waiter)".
func (a *Allocator) SectorsStart(class ReserveClass) ([]OpenBucket, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	need := uint64(a.replicas)
	if class == ReserveAlloc {
		// Emergency quota never blocks on allocation: it skips the
		// free-bucket check and allocates even when no free buckets
		// remain. No buckets are held back from ReserveNone/ReserveBtree
		// for it.
	} else if a.freeBuckets < need {
		return nil, btreeerr.New(btreeerr.NoSpace, "allocator: need %d buckets, %d free", need, a.freeBuckets)
	}

	out := make([]OpenBucket, 0, a.replicas)
	for i := 0; i < a.replicas; i++ {
		b := a.nextBucket
		a.nextBucket++
		if a.freeBuckets > 0 {
			a.freeBuckets--
		}
		dev := uint8(i % a.devices)
		ob := OpenBucket{Device: dev, Bucket: b, Gen: 0}
		if err := a.db.Set(bucketKey(dev, b), []byte{1}, pebble.Sync); err != nil {
			return nil, btreeerr.Wrap(err, "allocator: persist bucket %d", b)
		}
		out = append(out, ob)
	}
	return out, nil
}

// SectorsAppendPtrs converts open buckets into the device pointers stored
// in a btree-pointer value, per spec §6 "sectors_append_ptrs".
func (a *Allocator) SectorsAppendPtrs(obs []OpenBucket) []bkey.DevicePtr {
	ptrs := make([]bkey.DevicePtr, len(obs))
	for i, ob := range obs {
		ptrs[i] = bkey.DevicePtr{Device: ob.Device, Bucket: ob.Bucket, Gen: ob.Gen}
	}
	return ptrs
}

// SectorsDone marks the reservation complete; buckets stay pinned until
// OpenBucketsPut releases them (spec §6 "sectors_done").
func (a *Allocator) SectorsDone(obs []OpenBucket) {}

// OpenBucketsPut releases the pins, returning the buckets to the free
// pool. Spec §4.1: "Released nodes go to a per-filesystem cache... When
// the cache is full, surplus nodes return their buckets to the allocator."
func (a *Allocator) OpenBucketsPut(obs []OpenBucket) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, ob := range obs {
		if err := a.db.Delete(bucketKey(ob.Device, ob.Bucket), pebble.Sync); err != nil {
			return btreeerr.Wrap(err, "allocator: release bucket %d", ob.Bucket)
		}
		a.freeBuckets++
	}
	return nil
}

// FreeBuckets reports the current free-bucket count, for tests and
// /debug/updates.
func (a *Allocator) FreeBuckets() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.freeBuckets
}

func bucketKey(device uint8, bucket uint64) []byte {
	k := make([]byte, 9)
	k[0] = device
	for i := 0; i < 8; i++ {
		k[1+i] = byte(bucket >> (8 * (7 - i)))
	}
	return k
}

// Close closes the backing pebble database.
func (a *Allocator) Close() error { return a.db.Close() }
