package bset

import (
	"testing"

	"github.com/ssargent/btreefs/pkg/bkey"
)

func bk(inode uint64) bkey.BKey {
	return bkey.BKey{Pos: bkey.Key{Inode: inode}}
}

func TestInsert_KeepsSortedOrder(t *testing.T) {
	b := New()
	b.Insert(bk(5))
	b.Insert(bk(1))
	b.Insert(bk(3))

	got := b.Keys()
	want := []uint64{1, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].Pos.Inode != w {
			t.Fatalf("index %d: expected inode %d, got %d", i, w, got[i].Pos.Inode)
		}
	}
}

func TestInsert_OverwritesExistingPosition(t *testing.T) {
	b := New()
	b.Insert(bkey.BKey{Pos: bkey.Key{Inode: 5}, Whiteout: false})
	b.Insert(bkey.BKey{Pos: bkey.Key{Inode: 5}, Whiteout: true})

	if b.Len() != 1 {
		t.Fatalf("expected overwrite-in-place to keep a single key, got %d", b.Len())
	}
	k, ok := b.At(bkey.Key{Inode: 5})
	if !ok || !k.Whiteout {
		t.Fatalf("expected the whiteout to have replaced the live key")
	}
}

func TestAt_MissingKeyReturnsFalse(t *testing.T) {
	b := New()
	b.Insert(bk(1))
	if _, ok := b.At(bkey.Key{Inode: 99}); ok {
		t.Fatalf("expected At to report absence for a key never inserted")
	}
}

func TestKeys_ExcludesWhiteouts(t *testing.T) {
	b := New()
	b.Insert(bk(1))
	b.Insert(bkey.BKey{Pos: bkey.Key{Inode: 2}, Whiteout: true})

	if got := b.Keys(); len(got) != 1 || got[0].Pos.Inode != 1 {
		t.Fatalf("expected Keys to exclude the whiteout, got %v", got)
	}
	if got := b.All(); len(got) != 2 {
		t.Fatalf("expected All to include the whiteout, got %d entries", len(got))
	}
}

func TestCompactWhiteouts_DropsThem(t *testing.T) {
	b := New()
	b.Insert(bk(1))
	b.Insert(bkey.BKey{Pos: bkey.Key{Inode: 2}, Whiteout: true})
	b.CompactWhiteouts()

	if b.Len() != 1 {
		t.Fatalf("expected compaction to drop the whiteout, len=%d", b.Len())
	}
}

func TestMerge_SortsUnionOfBothInputs(t *testing.T) {
	a := FromSorted([]bkey.BKey{bk(1), bk(3)})
	b := FromSorted([]bkey.BKey{bk(2), bk(4)})

	m := Merge(a, b)
	got := m.Keys()
	want := []uint64{1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("expected %d merged keys, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].Pos.Inode != w {
			t.Fatalf("index %d: expected inode %d, got %d", i, w, got[i].Pos.Inode)
		}
	}
}

func TestU64s_SumsAllKeysIncludingWhiteouts(t *testing.T) {
	b := New()
	b.Insert(bk(1))
	whiteout := bkey.BKey{Pos: bkey.Key{Inode: 2}, Whiteout: true}
	b.Insert(whiteout)

	want := bk(1).U64s() + whiteout.U64s()
	if got := b.U64s(); got != want {
		t.Fatalf("expected U64s=%d, got %d", want, got)
	}
}
