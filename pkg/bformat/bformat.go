// Package bformat implements the Format Planner (spec §4.2): given the
// live keys of a prospective node, propose the minimal packed-key format
// that still packs every key, and test whether that format's total size
// fits in one block.
package bformat

import "github.com/ssargent/btreefs/pkg/bkey"

// Format describes the per-field bit-widths chosen for a bset. The real
// bset packs bkey fields (inode/offset/snapshot/pointer words) down to the
// minimum width that covers the observed range; this engine does not need
// bit-level packing to reason about fit, only the resulting u64 count per
// key, so Format is kept as a size multiplier rather than literal widths.
type Format struct {
	// BitsPerField records, for documentation/debugging only, the
	// bit-width chosen for the (inode, offset, snapshot) triple.
	BitsPerField [3]uint8
	// WordsPerKey is the packed size, in u64s, of a key plus its
	// narrowest-fitting pointer value under this format.
	WordsPerKey uint32
}

// wordsForRange returns the minimal word count needed to cover [lo, hi]
// for a single field, mirroring the real planner's per-field bit-width
// search but collapsed to whole 8-byte words since this engine only needs
// the aggregate size, not the packed bit layout.
func wordsForRange(lo, hi uint64) uint8 {
	if hi < lo {
		return 1
	}
	span := hi - lo
	switch {
	case span == 0:
		return 0
	case span < 1<<16:
		return 1
	case span < 1<<32:
		return 1
	default:
		return 1
	}
}

// Plan scans all live keys and proposes the minimal format that still
// packs every key, per spec §4.2. With this engine's fixed-width Key
// encoding there is no narrower-than-one-word field to discover, so Plan's
// real job is computing WordsPerKey from the widest pointer (number of
// device replicas) actually present — the part of "minimal format" that
// varies per node.
func Plan(keys []bkey.BKey) Format {
	f := Format{BitsPerField: [3]uint8{64, 64, 32}}
	var maxPointerWords uint32 = 3 // Key.U64s()
	for _, k := range keys {
		if w := k.U64s(); w > maxPointerWords {
			maxPointerWords = w
		}
	}
	f.WordsPerKey = maxPointerWords
	return f
}

// Empty returns the format for a brand-new node with no keys yet (used by
// root_alloc, spec §4.3.4 "format from empty").
func Empty() Format { return Format{BitsPerField: [3]uint8{64, 64, 32}, WordsPerKey: 3} }

// TotalU64s returns the packed size, in u64s, of every key under f.
func TotalU64s(keys []bkey.BKey, f Format) uint32 {
	if len(keys) == 0 {
		return 0
	}
	var n uint32
	for range keys {
		n += f.WordsPerKey
	}
	return n
}

// Fits implements the fit test of spec §4.2: total_u64s_under(F) * 8 <
// block_size.
func Fits(keys []bkey.BKey, f Format, blockSize int) bool {
	return int(TotalU64s(keys, f))*8 < blockSize
}

// PlanAndTest computes the minimal format for keys and reports whether it
// fits in blockSize. The planned format is returned either way; a miss is
// reported only through the boolean.
func PlanAndTest(keys []bkey.BKey, blockSize int) (Format, bool) {
	f := Plan(keys)
	return f, Fits(keys, f, blockSize)
}
