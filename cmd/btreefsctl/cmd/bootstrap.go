package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/ssargent/btreefs/pkg/alloc"
	"github.com/ssargent/btreefs/pkg/btree"
	"github.com/ssargent/btreefs/pkg/cache"
	"github.com/ssargent/btreefs/pkg/config"
	"github.com/ssargent/btreefs/pkg/journal"
	"github.com/ssargent/btreefs/pkg/metrics"
	"github.com/ssargent/btreefs/pkg/nodepool"
)

// engine bundles the topology engine and the collaborators btreefsctl's
// subcommands need to reach directly (the allocator, for /debug-style
// FreeBuckets reporting).
type engine struct {
	fs       *btree.Filesystem
	alloc    *alloc.Allocator
	journal  *journal.Journal
	registry *prometheus.Registry
}

// bootstrap wires a Filesystem from an on-disk config the way
// cmd/freyja/cmd/root.go's PersistentPreRunE wires a KVStore: open the
// allocator and journal under cfg.DataDir, build the reserve pool and
// node cache, and hand it all to btree.NewFilesystem.
func bootstrap(cfg *config.Config) (*engine, error) {
	log := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		log.SetLevel(lvl)
	}
	entry := logrus.NewEntry(log)

	a, err := alloc.Open(alloc.Config{
		Path:             filepath.Join(cfg.DataDir, "alloc"),
		TotalBuckets:     cfg.Reserve.TotalBuckets,
		Devices:          cfg.Devices,
		MetadataReplicas: cfg.MetadataReplicas,
	}, entry)
	if err != nil {
		return nil, fmt.Errorf("open allocator: %w", err)
	}

	j, err := journal.Open(journal.Config{
		FilePath:  filepath.Join(cfg.DataDir, "journal.log"),
		PreResMax: cfg.Journal.PreResMax,
	}, entry)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	pool := nodepool.New(a, cfg.Reserve.ReadyCacheSize)
	nc := cache.New[*btree.Node]()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	fs := btree.NewFilesystem(cfg, entry, pool, j, a, nc, nil, m)

	return &engine{fs: fs, alloc: a, journal: j, registry: reg}, nil
}

func (e *engine) Close() {
	e.journal.Close()
	e.alloc.Close()
}
