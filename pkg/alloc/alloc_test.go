package alloc

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/ssargent/btreefs/pkg/btreeerr"
)

func newTestAllocator(t *testing.T, totalBuckets uint64, replicas int) *Allocator {
	t.Helper()
	a, err := Open(Config{
		Path:             filepath.Join(t.TempDir(), "alloc"),
		TotalBuckets:     totalBuckets,
		Devices:          2,
		MetadataReplicas: replicas,
	}, logrus.NewEntry(logrus.New()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestSectorsStart_AllocatesOneBucketPerReplica(t *testing.T) {
	a := newTestAllocator(t, 10, 3)
	obs, err := a.SectorsStart(ReserveNone)
	if err != nil {
		t.Fatalf("SectorsStart: %v", err)
	}
	if len(obs) != 3 {
		t.Fatalf("expected 3 open buckets for 3 replicas, got %d", len(obs))
	}
	if got := a.FreeBuckets(); got != 7 {
		t.Fatalf("expected 7 free buckets remaining, got %d", got)
	}
}

func TestSectorsStart_FailsWithNoSpaceWhenExhausted(t *testing.T) {
	a := newTestAllocator(t, 1, 2)
	if _, err := a.SectorsStart(ReserveNone); !btreeerr.Is(err, btreeerr.NoSpace) {
		t.Fatalf("expected NoSpace when free buckets (1) < replicas (2), got %v", err)
	}
}

func TestSectorsStart_EmergencyQuotaIgnoresExhaustion(t *testing.T) {
	a := newTestAllocator(t, 0, 1)
	obs, err := a.SectorsStart(ReserveAlloc)
	if err != nil {
		t.Fatalf("expected ReserveAlloc to bypass the free-bucket check, got %v", err)
	}
	if len(obs) != 1 {
		t.Fatalf("expected 1 open bucket, got %d", len(obs))
	}
}

func TestOpenBucketsPut_ReturnsBucketsToFreePool(t *testing.T) {
	a := newTestAllocator(t, 10, 2)
	obs, err := a.SectorsStart(ReserveNone)
	if err != nil {
		t.Fatalf("SectorsStart: %v", err)
	}
	if err := a.OpenBucketsPut(obs); err != nil {
		t.Fatalf("OpenBucketsPut: %v", err)
	}
	if got := a.FreeBuckets(); got != 10 {
		t.Fatalf("expected all 10 buckets free again, got %d", got)
	}
}

func TestSectorsAppendPtrs_MirrorsOpenBucketFields(t *testing.T) {
	a := newTestAllocator(t, 10, 2)
	obs, err := a.SectorsStart(ReserveNone)
	if err != nil {
		t.Fatalf("SectorsStart: %v", err)
	}
	ptrs := a.SectorsAppendPtrs(obs)
	if len(ptrs) != len(obs) {
		t.Fatalf("expected one device pointer per open bucket, got %d for %d", len(ptrs), len(obs))
	}
	for i, ob := range obs {
		if ptrs[i].Device != ob.Device || ptrs[i].Bucket != ob.Bucket || ptrs[i].Gen != ob.Gen {
			t.Fatalf("expected pointer %d to mirror its open bucket, got %+v vs %+v", i, ptrs[i], ob)
		}
	}
}
