package btree

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ssargent/btreefs/pkg/btreeerr"
	"github.com/ssargent/btreefs/pkg/config"
	"github.com/ssargent/btreefs/pkg/nodepool"
)

// mockFilesystem wires a Filesystem against gomock fakes instead of real
// collaborators, so Start's state machine (spec §4.5) can be exercised
// in isolation — the teacher's interface + gomock.Controller style
// (pkg/api/handlers_test.go), applied to Journal/NodeReserve here.
func mockFilesystem(t *testing.T) (*Filesystem, *MockJournal, *MockNodeReserve) {
	t.Helper()
	ctrl := gomock.NewController(t)
	j := NewMockJournal(ctrl)
	r := NewMockNodeReserve(ctrl)
	nc := NewMockNodeCache(ctrl)
	a := NewMockAllocator(ctrl)

	cfg := config.Default()
	log := logrus.NewEntry(logrus.New())
	fs := NewFilesystem(cfg, log, r, j, a, nc, nil, nil)
	return fs, j, r
}

// TestStart_AcquiresJournalPinAtCreditTime verifies the fix for the
// journal-pin reparenting bug: Start reserves and pins a sequence number
// immediately, not only once the op reaches publish().
func TestStart_AcquiresJournalPinAtCreditTime(t *testing.T) {
	fs, j, r := mockFilesystem(t)
	ctx := context.Background()

	j.EXPECT().Error().Return(nil)
	j.EXPECT().PreresGet(fs.Cfg.JournalUpdateRes).Return(nil)
	j.EXPECT().ReserveSeq().Return(uint64(7))
	j.EXPECT().AddPin(uint64(7))
	r.EXPECT().Get(1, nodepool.ClassNone).Return(&nodepool.Reservation{}, nil)

	u, err := fs.Start(ctx, 1, 1, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), u.journalPinSeq, "expected the pin to be taken during Start, before any publish() call")
}

// TestStart_NodeReserveFailureReleasesJournalCreditAndPin covers spec §8
// property 7 (idempotent retry): a failed Start must leave no journal
// credit or pin behind, so an identical retry behaves identically.
func TestStart_NodeReserveFailureReleasesJournalCreditAndPin(t *testing.T) {
	fs, j, r := mockFilesystem(t)
	ctx := context.Background()

	j.EXPECT().Error().Return(nil)
	j.EXPECT().PreresGet(fs.Cfg.JournalUpdateRes).Return(nil)
	j.EXPECT().ReserveSeq().Return(uint64(3))
	j.EXPECT().AddPin(uint64(3))
	r.EXPECT().Get(1, nodepool.ClassNone).Return(nil, btreeerr.ErrReserveExhausted)
	j.EXPECT().PreresPut(fs.Cfg.JournalUpdateRes)
	j.EXPECT().PinDrop(uint64(3))

	_, err := fs.Start(ctx, 1, 1, 0, nil)
	assert.True(t, btreeerr.Is(err, btreeerr.ReserveExhausted))
}

// TestStart_JournalFullWithNoUnlockConvertsToRestart covers the
// NOUNLOCK/Again->Restart propagation rule of spec §7.
func TestStart_JournalFullWithNoUnlockConvertsToRestart(t *testing.T) {
	fs, j, _ := mockFilesystem(t)
	ctx := context.Background()

	j.EXPECT().Error().Return(nil)
	j.EXPECT().PreresGet(fs.Cfg.JournalUpdateRes).Return(btreeerr.ErrJournalFull)

	_, err := fs.Start(ctx, 1, 1, NoUnlock, nil)
	assert.True(t, btreeerr.Is(err, btreeerr.Restart))
}

// TestStart_RefusesWhenJournalAlreadyErrored covers the fast-fail guard
// at the top of Start (spec §4.5 step 1).
func TestStart_RefusesWhenJournalAlreadyErrored(t *testing.T) {
	fs, j, _ := mockFilesystem(t)
	ctx := context.Background()

	j.EXPECT().Error().Return(btreeerr.ErrJournalError)

	_, err := fs.Start(ctx, 1, 1, 0, nil)
	assert.True(t, btreeerr.Is(err, btreeerr.JournalError))
}
