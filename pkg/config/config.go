// Package config implements btreefs's engine configuration, grounded on
// the teacher's pkg/config/config.go: a YAML-backed struct with
// Default/Load/Save, generalized from FreyjaDB's server settings (data
// dir, port, security keys) to the topology engine's tunables (reserve
// sizes, split/merge thresholds, journal limits, device/replica counts).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable named in spec §2/§4/§5.
type Config struct {
	// DataDir is where the journal and allocator metadata live.
	DataDir string `yaml:"data_dir"`

	// BlockSize is the fixed node block size in bytes, used by the
	// Format Planner's fit test (spec §4.2).
	BlockSize int `yaml:"block_size"`

	// BtreeNodeSize is the nominal node size used to size disk
	// reservations (spec §4.5 step 3).
	BtreeNodeSize int `yaml:"btree_node_size"`

	// MetadataReplicas is the number of device copies a metadata node is
	// written to.
	MetadataReplicas int `yaml:"metadata_replicas"`

	// Devices is the number of simulated backing devices.
	Devices int `yaml:"devices"`

	// Reserve holds the Node Reserve Pool's sizing.
	Reserve ReserveConfig `yaml:"reserve"`

	// SplitThreshold is SPLIT_THRESHOLD of spec §4.5: the u64 count past
	// which a constructed node must be split rather than reinserted
	// compactly.
	SplitThreshold uint32 `yaml:"split_threshold"`

	// MergeThreshold is THRESHOLD of spec §4.5's maybe_merge.
	MergeThreshold uint32 `yaml:"merge_threshold"`

	// Journal holds journal pre-reservation sizing.
	Journal JournalConfig `yaml:"journal"`

	// MaxNewNodes is spec §3's MAX_NEW_NODES. It is copied into the
	// engine config; the engine does not check an Update's new nodes
	// against it.
	MaxNewNodes int `yaml:"max_new_nodes"`

	// MaxReserve is spec §3's MAX_RESERVE. It is copied into the engine
	// config; the engine does not check an Update's reservation against it.
	MaxReserve int `yaml:"max_reserve"`

	// BtreeMaxDepth bounds the explicit publication loop (spec §9).
	BtreeMaxDepth int `yaml:"btree_max_depth"`

	Logging Logging `yaml:"logging"`
}

// ReserveConfig sizes the Node Reserve Pool (spec §4.1).
type ReserveConfig struct {
	// ReadyCacheSize is K: the per-filesystem cache of ready-to-use free
	// nodes.
	ReadyCacheSize int `yaml:"ready_cache_size"`
	// TotalBuckets is the simulated allocator's total bucket count.
	TotalBuckets uint64 `yaml:"total_buckets"`
}

// JournalConfig sizes journal pre-reservation (spec §4.5 step 2).
type JournalConfig struct {
	// UpdateReservation is BTREE_UPDATE_JOURNAL_RES: the journal credit
	// reserved per topology op.
	UpdateReservation uint64 `yaml:"update_reservation"`
	// PreResMax is the journal's total pre-reservation pool.
	PreResMax uint64 `yaml:"preres_max"`
}

// Logging configures the engine's logrus output.
type Logging struct {
	Level string `yaml:"level"`
}

// Default returns the engine's default configuration.
func Default() *Config {
	return &Config{
		DataDir:          "./data",
		BlockSize:        4096,
		BtreeNodeSize:    4096,
		MetadataReplicas: 1,
		Devices:          1,
		Reserve: ReserveConfig{
			ReadyCacheSize: 8,
			TotalBuckets:   1 << 20,
		},
		SplitThreshold: 2800, // counted in u64 words, as bset.U64s reports them
		MergeThreshold: 1400,
		Journal: JournalConfig{
			UpdateReservation: 256,
			PreResMax:         1 << 20,
		},
		MaxNewNodes:   8,
		MaxReserve:    8,
		BtreeMaxDepth: 16,
		Logging:       Logging{Level: "info"},
	}
}

// Load reads a YAML config file from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg as YAML to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
