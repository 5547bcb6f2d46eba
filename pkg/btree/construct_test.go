package btree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/btreefs/pkg/bkey"
)

// TestSplit_CoversRangeContiguously exercises spec §8 property 1 (range
// cover): after Split, n1 and n2 partition src's original [MinKey,
// MaxKey] with no gap or overlap at the pivot.
func TestSplit_CoversRangeContiguously(t *testing.T) {
	fs := newTestEngine(t)
	ctx := context.Background()

	root, err := fs.RootAllocFor(ctx, 1, 0)
	require.NoError(t, err)
	fs.ProcessPendingSync(ctx)

	u, err := fs.Start(ctx, 1, 2, 0, nil)
	require.NoError(t, err)

	n1, err := u.AllocReplacement(root)
	require.NoError(t, err)
	require.NoError(t, u.InsertKeys(n1, syntheticKeys(40, 0)))
	CompactBeforeSplit(n1)

	origMin, origMax := n1.MinKey, n1.MaxKey
	n2, err := u.Split(n1)
	require.NoError(t, err)

	assert.Equal(t, origMin, n1.MinKey, "expected n1 to keep the original min key")
	assert.Equal(t, origMax, n2.MaxKey, "expected n2 to inherit the original max key")
	assert.Equal(t, n1.MaxKey.Successor(), n2.MinKey, "expected n2.MinKey to be exactly n1.MaxKey's successor, no gap or overlap")
	assert.True(t, n1.MaxKey.Less(n2.MinKey), "expected the pivot to strictly separate the two halves")

	u.free()
}

// TestSplit_PivotIsNeverAWhiteout exercises spec §8 property 3 (pivot
// non-whiteout): even when whiteouts are interleaved among live keys,
// Split's pivot (n1.MaxKey) always lands on a live key, since
// CompactBeforeSplit + bset.Keys() strip whiteouts before the cursor
// walk ever sees them.
func TestSplit_PivotIsNeverAWhiteout(t *testing.T) {
	fs := newTestEngine(t)
	ctx := context.Background()

	root, err := fs.RootAllocFor(ctx, 1, 0)
	require.NoError(t, err)
	fs.ProcessPendingSync(ctx)

	u, err := fs.Start(ctx, 1, 2, 0, nil)
	require.NoError(t, err)

	n1, err := u.AllocReplacement(root)
	require.NoError(t, err)

	keys := syntheticKeys(30, 0)
	for i := range keys {
		if i%3 == 0 {
			keys[i].Whiteout = true
		}
	}
	require.NoError(t, u.InsertKeys(n1, keys))
	CompactBeforeSplit(n1)

	for _, k := range n1.BSet.Keys() {
		assert.False(t, k.Whiteout, "expected CompactBeforeSplit to have dropped every whiteout before the split cursor runs")
	}

	n2, err := u.Split(n1)
	require.NoError(t, err)
	for _, k := range n1.BSet.Keys() {
		assert.False(t, k.Whiteout)
	}
	for _, k := range n2.BSet.Keys() {
		assert.False(t, k.Whiteout)
	}

	u.free()
}

// TestMerge_ProducesContiguousUnionRange exercises property 1 for the
// merge direction of the Node Constructor.
func TestMerge_ProducesContiguousUnionRange(t *testing.T) {
	fs := newTestEngine(t)
	ctx := context.Background()

	root, err := fs.RootAllocFor(ctx, 1, 0)
	require.NoError(t, err)
	fs.ProcessPendingSync(ctx)

	u, err := fs.Start(ctx, 1, 3, 0, nil)
	require.NoError(t, err)

	prev, err := u.AllocReplacement(root)
	require.NoError(t, err)
	prev.MaxKey = bkey.Key{Inode: 500}
	require.NoError(t, u.InsertKeys(prev, syntheticKeys(10, 0)))

	next, err := u.newFromReserve(root.BtreeID, root.Level)
	require.NoError(t, err)
	next.MinKey = prev.MaxKey.Successor()
	next.MaxKey = bkey.PosMax
	require.NoError(t, u.InsertKeys(next, syntheticKeys(10, 1000)))

	merged, err := u.Merge(prev, next)
	require.NoError(t, err)

	assert.Equal(t, prev.MinKey, merged.MinKey)
	assert.Equal(t, next.MaxKey, merged.MaxKey)
	assert.Equal(t, len(prev.BSet.Keys())+len(next.BSet.Keys()), len(merged.BSet.Keys()))

	u.free()
}
