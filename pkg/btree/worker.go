package btree

import (
	"context"

	"github.com/ssargent/btreefs/pkg/journal"
)

// enqueueUnwritten pushes u onto the single-worker publication queue,
// per spec §4.5 "[ADD] The single-worker queue is a chan *Update drained
// by one goroutine... not a generic worker pool." Called the instant u's
// completion counter reaches zero (reachability.go maybeEnqueuePublish).
func (fs *Filesystem) enqueueUnwritten(u *Update) {
	fs.unwrittenQueue <- u
}

// Run starts the single publication worker goroutine and blocks until
// ctx is cancelled or Stop is called. Call it in its own goroutine; use
// ProcessPendingSync in tests that want synchronous, deterministic
// control over when publication happens instead.
func (fs *Filesystem) Run(ctx context.Context) {
	fs.wg.Add(1)
	defer fs.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-fs.stopCh:
			return
		case u := <-fs.unwrittenQueue:
			fs.publish(ctx, u)
		}
	}
}

// Stop signals Run to exit and waits for it to return.
func (fs *Filesystem) Stop() {
	fs.stopOnce.Do(func() { close(fs.stopCh) })
	fs.wg.Wait()
}

// ProcessPendingSync drains every update currently queued for
// publication, synchronously, and returns how many it processed. Tests
// use this instead of running Run in a background goroutine, since this
// engine's node writes already complete synchronously (reachability.go
// WriteNewNodes) — the only asynchrony left to model is the worker's own
// FIFO draining, which this makes deterministic for assertions.
func (fs *Filesystem) ProcessPendingSync(ctx context.Context) int {
	n := 0
	for {
		select {
		case u := <-fs.unwrittenQueue:
			fs.publish(ctx, u)
			n++
		default:
			return n
		}
	}
}

// publish is the worker's pass, nodes_written(as), per spec §4.6:
//
//  1. Run a journaled parent transaction, under the sequence number u
//     has held pinned since Start, recording new_keys as inserts and
//     old_keys as overwrites.
//  2. If mode = UpdatingNode(p): take intent + write locks on p, unlink
//     from p.write_blocked, stamp p's last-bset journal sequence to
//     max(current, transaction seq), kick p into write if needed.
//  3. If mode = UpdatingRoot: no extra node work; the journal entry
//     published here is enough.
//  4. Drop the update's journal pin and pre-reservation.
//  5. For each new node, kick its write if still pending and drop bucket
//     pins.
//  6. Free the Update.
func (fs *Filesystem) publish(ctx context.Context, u *Update) {
	entries := u.inlineSnapshot()
	wrote := len(entries) > 0

	if wrote {
		if err := fs.Journal.AppendBatchAt(ctx, u.journalPinSeq, entries); err != nil {
			fs.Journal.SetErrored()
			u.log.WithField("err", err).Error("publication journal append failed; rolling back")
			u.free()
			return
		}
	}

	for _, ptr := range u.newKeys {
		fs.Replicas.MarkInsert(ptr)
	}
	for _, ptr := range u.oldKeys {
		fs.Replicas.MarkOverwrite(ptr)
	}

	mode := u.getMode()
	switch mode.Kind {
	case UpdatingNode:
		p := mode.Parent
		u.ensureIntent(p)
		p.Lock.Upgrade()
		p.RemoveWriteBlocked(u)
		if wrote && u.journalPinSeq > p.Seq {
			p.Seq = u.journalPinSeq
		}
		p.Flags.NeedWrite = true
		p.Lock.Downgrade()
	case UpdatingRoot:
		// Nothing extra: the {BtreeRoot} entry already appended above is
		// the whole of this mode's publication.
	case UpdatingAs, NoUpdate:
		// Reparented-away or never-assigned updates publish nothing of
		// their own here. reparent moves only the mode and the journal pin
		// onto the absorbing update, not the completion accounting, so such
		// an update still reaches the worker when its own count hits zero.
	}

	for _, n := range u.snapshotNewNodes() {
		if n.Flags.NeedWrite {
			n.Flags.NeedWrite = false
		}
		_ = fs.Alloc // bucket pins are released by free() below via u.openBuckets
	}

	u.free()
}

func (u *Update) inlineSnapshot() []journal.Entry {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]journal.Entry(nil), u.inline...)
}

func (u *Update) snapshotNewNodes() []*Node {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]*Node(nil), u.newNodes...)
}
