package btree

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ssargent/btreefs/pkg/config"
	"github.com/ssargent/btreefs/pkg/metrics"
)

// NewFilesystem wires a Filesystem from its collaborators and engine
// configuration — the concrete equivalent of spec §5's "struct with
// interior-mutable fields" holding the four process-wide mutexes.
func NewFilesystem(cfg *config.Config, log *logrus.Entry, reserve NodeReserve, j Journal, a Allocator, nc NodeCache, replicas ReplicaMarker, m *metrics.Metrics) *Filesystem {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if replicas == nil {
		replicas = NoopReplicaMarker{}
	}
	return &Filesystem{
		Log:      log.WithField("component", "btree"),
		Metrics:  m,
		Reserve:  reserve,
		Journal:  j,
		Alloc:    a,
		Cache:    nc,
		Replicas: replicas,
		Roots:    NewRootTable(),
		Cfg: engineConfig{
			BlockSize:        cfg.BlockSize,
			BtreeNodeSize:    cfg.BtreeNodeSize,
			MetadataReplicas: cfg.MetadataReplicas,
			SplitThreshold:   cfg.SplitThreshold,
			MergeThreshold:   cfg.MergeThreshold,
			JournalUpdateRes: cfg.Journal.UpdateReservation,
			MaxNewNodes:      cfg.MaxNewNodes,
			MaxReserve:       cfg.MaxReserve,
			BtreeMaxDepth:    cfg.BtreeMaxDepth,
		},
		allUpdates:     make(map[*Update]struct{}),
		unwrittenQueue: make(chan *Update, 4096),
		stopCh:         make(chan struct{}),
	}
}

// SplitLeaf is the upward entry point of spec §6: split_leaf(iter,
// flags). b is the node located by the caller's iterator traversal
// (external collaborator, spec §1).
func (fs *Filesystem) SplitLeaf(ctx context.Context, b *Node, flags Flags) error {
	return fs.DoSplit(ctx, b, nil, flags)
}

// RootAllocFor bootstraps a brand-new btree with a single empty root at
// level 0 — spec §6 "root_alloc(btree_id)".
func (fs *Filesystem) RootAllocFor(ctx context.Context, btreeID uint32, flags Flags) (*Node, error) {
	u, err := fs.Start(ctx, btreeID, 1, flags, nil)
	if err != nil {
		return nil, err
	}
	fs.Metrics.Started(metrics.OpRootAlloc)

	n, err := u.RootAlloc(btreeID, 0)
	if err != nil {
		u.free()
		return nil, err
	}
	u.SetRoot(n)
	u.WriteNewNodes()
	fs.Metrics.Completed(metrics.OpRootAlloc)
	return n, nil
}

// RootForRead returns the current root of btreeID, per spec §6
// "root_for_read(b)" (recovery/read path).
func (fs *Filesystem) RootForRead(btreeID uint32) (*Node, bool) {
	return fs.Roots.Get(btreeID)
}
