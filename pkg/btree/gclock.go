package btree

import "sync"

// GCLock is the process-wide GC read/write lock of spec §5: acquired
// read by every topology op (except those that already hold it) to
// exclude full-tree GC; GC takes it write. Split and merge paths that
// fail to trylock it fall back to park-and-retry.
type GCLock struct {
	mu sync.RWMutex
}

// TryRLock attempts to take the GC lock for reading without blocking,
// per "trylock it fall back to park-and-retry".
func (g *GCLock) TryRLock() bool { return g.mu.TryRLock() }

// RLock blocks until the GC read lock is available.
func (g *GCLock) RLock() { g.mu.RLock() }

// RUnlock releases a read hold.
func (g *GCLock) RUnlock() { g.mu.RUnlock() }

// Lock takes the GC lock for writing, used by a full-tree GC pass.
func (g *GCLock) Lock() { g.mu.Lock() }

// Unlock releases a write hold.
func (g *GCLock) Unlock() { g.mu.Unlock() }
