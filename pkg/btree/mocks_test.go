package btree

// Hand-written gomock fakes for the downward collaborator interfaces of
// collaborators.go, in the shape mockgen would generate (EXPECT()
// recorder, ctrl.Call per method) — grounded on the teacher's
// MockIKVStore usage in pkg/api/handlers_test.go, but actually checked
// in here rather than left as a dangling mockgen reference, since this
// module never runs the Go toolchain to generate one.

import (
	"context"
	"reflect"

	"go.uber.org/mock/gomock"

	"github.com/ssargent/btreefs/pkg/alloc"
	"github.com/ssargent/btreefs/pkg/bkey"
	"github.com/ssargent/btreefs/pkg/cache"
	"github.com/ssargent/btreefs/pkg/journal"
	"github.com/ssargent/btreefs/pkg/nodepool"
)

// MockNodeReserve mocks NodeReserve.
type MockNodeReserve struct {
	ctrl     *gomock.Controller
	recorder *MockNodeReserveMockRecorder
}

type MockNodeReserveMockRecorder struct{ mock *MockNodeReserve }

func NewMockNodeReserve(ctrl *gomock.Controller) *MockNodeReserve {
	m := &MockNodeReserve{ctrl: ctrl}
	m.recorder = &MockNodeReserveMockRecorder{m}
	return m
}

func (m *MockNodeReserve) EXPECT() *MockNodeReserveMockRecorder { return m.recorder }

func (m *MockNodeReserve) Get(n int, class nodepool.Class) (*nodepool.Reservation, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Get", n, class)
	r0, _ := ret[0].(*nodepool.Reservation)
	r1, _ := ret[1].(error)
	return r0, r1
}

func (mr *MockNodeReserveMockRecorder) Get(n, class interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Get", reflect.TypeOf((*MockNodeReserve)(nil).Get), n, class)
}

func (m *MockNodeReserve) Release(r *nodepool.Reservation) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "Release", r)
}

func (mr *MockNodeReserveMockRecorder) Release(r interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Release", reflect.TypeOf((*MockNodeReserve)(nil).Release), r)
}

// MockJournal mocks Journal.
type MockJournal struct {
	ctrl     *gomock.Controller
	recorder *MockJournalMockRecorder
}

type MockJournalMockRecorder struct{ mock *MockJournal }

func NewMockJournal(ctrl *gomock.Controller) *MockJournal {
	m := &MockJournal{ctrl: ctrl}
	m.recorder = &MockJournalMockRecorder{m}
	return m
}

func (m *MockJournal) EXPECT() *MockJournalMockRecorder { return m.recorder }

func (m *MockJournal) PreresGet(amount uint64) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "PreresGet", amount)
	r0, _ := ret[0].(error)
	return r0
}

func (mr *MockJournalMockRecorder) PreresGet(amount interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "PreresGet", reflect.TypeOf((*MockJournal)(nil).PreresGet), amount)
}

func (m *MockJournal) PreresPut(amount uint64) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "PreresPut", amount)
}

func (mr *MockJournalMockRecorder) PreresPut(amount interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "PreresPut", reflect.TypeOf((*MockJournal)(nil).PreresPut), amount)
}

func (m *MockJournal) Error() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Error")
	r0, _ := ret[0].(error)
	return r0
}

func (mr *MockJournalMockRecorder) Error() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Error", reflect.TypeOf((*MockJournal)(nil).Error))
}

func (m *MockJournal) SetErrored() {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "SetErrored")
}

func (mr *MockJournalMockRecorder) SetErrored() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SetErrored", reflect.TypeOf((*MockJournal)(nil).SetErrored))
}

func (m *MockJournal) ReserveSeq() uint64 {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ReserveSeq")
	r0, _ := ret[0].(uint64)
	return r0
}

func (mr *MockJournalMockRecorder) ReserveSeq() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ReserveSeq", reflect.TypeOf((*MockJournal)(nil).ReserveSeq))
}

func (m *MockJournal) AppendBatchAt(ctx context.Context, seq uint64, entries []journal.Entry) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "AppendBatchAt", ctx, seq, entries)
	r0, _ := ret[0].(error)
	return r0
}

func (mr *MockJournalMockRecorder) AppendBatchAt(ctx, seq, entries interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AppendBatchAt", reflect.TypeOf((*MockJournal)(nil).AppendBatchAt), ctx, seq, entries)
}

func (m *MockJournal) AddPin(seq uint64) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "AddPin", seq)
}

func (mr *MockJournalMockRecorder) AddPin(seq interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AddPin", reflect.TypeOf((*MockJournal)(nil).AddPin), seq)
}

func (m *MockJournal) PinCopy(seq uint64) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "PinCopy", seq)
}

func (mr *MockJournalMockRecorder) PinCopy(seq interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "PinCopy", reflect.TypeOf((*MockJournal)(nil).PinCopy), seq)
}

func (m *MockJournal) PinDrop(seq uint64) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "PinDrop", seq)
}

func (mr *MockJournalMockRecorder) PinDrop(seq interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "PinDrop", reflect.TypeOf((*MockJournal)(nil).PinDrop), seq)
}

// MockNodeCache mocks NodeCache.
type MockNodeCache struct {
	ctrl     *gomock.Controller
	recorder *MockNodeCacheMockRecorder
}

type MockNodeCacheMockRecorder struct{ mock *MockNodeCache }

func NewMockNodeCache(ctrl *gomock.Controller) *MockNodeCache {
	m := &MockNodeCache{ctrl: ctrl}
	m.recorder = &MockNodeCacheMockRecorder{m}
	return m
}

func (m *MockNodeCache) EXPECT() *MockNodeCacheMockRecorder { return m.recorder }

func (m *MockNodeCache) HashInsert(key cache.Key, n *Node) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "HashInsert", key, n)
}

func (mr *MockNodeCacheMockRecorder) HashInsert(key, n interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "HashInsert", reflect.TypeOf((*MockNodeCache)(nil).HashInsert), key, n)
}

func (m *MockNodeCache) HashRemove(key cache.Key) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "HashRemove", key)
}

func (mr *MockNodeCacheMockRecorder) HashRemove(key interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "HashRemove", reflect.TypeOf((*MockNodeCache)(nil).HashRemove), key)
}

func (m *MockNodeCache) Lookup(key cache.Key) (*Node, bool) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Lookup", key)
	r0, _ := ret[0].(*Node)
	r1, _ := ret[1].(bool)
	return r0, r1
}

func (mr *MockNodeCacheMockRecorder) Lookup(key interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Lookup", reflect.TypeOf((*MockNodeCache)(nil).Lookup), key)
}

func (m *MockNodeCache) MarkRoot(key cache.Key, isRoot bool) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "MarkRoot", key, isRoot)
}

func (mr *MockNodeCacheMockRecorder) MarkRoot(key, isRoot interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "MarkRoot", reflect.TypeOf((*MockNodeCache)(nil).MarkRoot), key, isRoot)
}

// MockAllocator mocks Allocator.
type MockAllocator struct {
	ctrl     *gomock.Controller
	recorder *MockAllocatorMockRecorder
}

type MockAllocatorMockRecorder struct{ mock *MockAllocator }

func NewMockAllocator(ctrl *gomock.Controller) *MockAllocator {
	m := &MockAllocator{ctrl: ctrl}
	m.recorder = &MockAllocatorMockRecorder{m}
	return m
}

func (m *MockAllocator) EXPECT() *MockAllocatorMockRecorder { return m.recorder }

func (m *MockAllocator) SectorsStart(class alloc.ReserveClass) ([]alloc.OpenBucket, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SectorsStart", class)
	r0, _ := ret[0].([]alloc.OpenBucket)
	r1, _ := ret[1].(error)
	return r0, r1
}

func (mr *MockAllocatorMockRecorder) SectorsStart(class interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SectorsStart", reflect.TypeOf((*MockAllocator)(nil).SectorsStart), class)
}

func (m *MockAllocator) SectorsAppendPtrs(obs []alloc.OpenBucket) []bkey.DevicePtr {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SectorsAppendPtrs", obs)
	r0, _ := ret[0].([]bkey.DevicePtr)
	return r0
}

func (mr *MockAllocatorMockRecorder) SectorsAppendPtrs(obs interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SectorsAppendPtrs", reflect.TypeOf((*MockAllocator)(nil).SectorsAppendPtrs), obs)
}

func (m *MockAllocator) SectorsDone(obs []alloc.OpenBucket) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "SectorsDone", obs)
}

func (mr *MockAllocatorMockRecorder) SectorsDone(obs interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SectorsDone", reflect.TypeOf((*MockAllocator)(nil).SectorsDone), obs)
}

func (m *MockAllocator) OpenBucketsPut(obs []alloc.OpenBucket) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "OpenBucketsPut", obs)
	r0, _ := ret[0].(error)
	return r0
}

func (mr *MockAllocatorMockRecorder) OpenBucketsPut(obs interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "OpenBucketsPut", reflect.TypeOf((*MockAllocator)(nil).OpenBucketsPut), obs)
}

func (m *MockAllocator) MetadataReplicas() int {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "MetadataReplicas")
	r0, _ := ret[0].(int)
	return r0
}

func (mr *MockAllocatorMockRecorder) MetadataReplicas() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "MetadataReplicas", reflect.TypeOf((*MockAllocator)(nil).MetadataReplicas))
}
