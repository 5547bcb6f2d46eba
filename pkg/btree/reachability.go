package btree

// addNewNode registers a freshly constructed node with the reachability
// graph: installs the will_make_reachable back-reference, bumps the
// owning update's completion counter, and inserts the node into the
// process-wide cache under its eventual identity — spec §4.5
// "add_new_node(new)".
func (u *Update) addNewNode(n *Node) {
	u.mu.Lock()
	u.newNodes = append(u.newNodes, n)
	u.mu.Unlock()

	u.completion.Add(1)
	n.SetWillMakeReachable(u)
	u.fs.Cache.HashInsert(n.CacheKey(), n)
}

// removeNewNode unlinks n from u.newNodes without touching its
// completion accounting — used when n is being reparented away from u
// entirely (will_free_node on a node that was itself someone's new node).
func (u *Update) removeNewNode(n *Node) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i, cand := range u.newNodes {
		if cand == n {
			u.newNodes = append(u.newNodes[:i], u.newNodes[i+1:]...)
			return
		}
	}
}

// willFreeNode reparents old's waiters onto u, transfers journal pins,
// marks old dying, and — if old was itself a not-yet-written new node of
// some still in-flight update — detaches it from that update's
// reachability graph. Spec §4.5 template step 1 and §4.6 "Reparenting".
func (u *Update) willFreeNode(old *Node) {
	old.Flags.Dying = true

	for _, p := range old.TakeWriteBlocked() {
		u.reparent(p)
	}

	owner := old.WillMakeReachable()
	if owner == nil || owner == u {
		return
	}
	owner.removeNewNode(old)
	if cleared := old.ClearWillMakeReachable(); cleared != nil {
		owner.completion.Add(-1)
		owner.maybeEnqueuePublish()
	}
}

// reparent redirects p so its publication fires only after u succeeds:
// p.mode becomes UpdatingAs(u), p's own parent reference is cleared, and
// p's journal pin is transferred onto u (oldest-wins is a property of the
// journal's pin map itself — see journal.Journal.OldestPin — so u simply
// needs to hold a copy of every absorbed pin until it finishes). Spec
// §4.6 "Reparenting".
func (u *Update) reparent(p *Update) {
	p.setMode(Mode{Kind: UpdatingAs, Other: u})

	if p.journalPinSeq != 0 {
		u.fs.Journal.PinCopy(p.journalPinSeq)
		u.mu.Lock()
		u.absorbedPins = append(u.absorbedPins, p.journalPinSeq)
		u.mu.Unlock()
		u.fs.Journal.PinDrop(p.journalPinSeq)
		p.journalPinSeq = 0
	}

	if u.fs.Metrics != nil {
		u.fs.Metrics.Reparented()
	}
	u.log.WithField("reparented_btree_id", p.btreeID).Debug("update reparented onto peer")
}

// nodeWriteCompleted is the write-completion callback of spec §4.6: "the
// node's first write-completion" clears will_make_reachable by
// compare-and-swap and decrements the owning update's completion
// counter. This engine has no real asynchronous disk writer underneath
// it (spec §1 places that out of scope), so WriteNewNodes below invokes
// this synchronously once per new node in place of an I/O completion
// callback — the reachability bookkeeping it drives is identical either
// way, which is what spec §8 property 4 tests.
func (n *Node) nodeWriteCompleted() {
	if !n.MarkWritten() {
		return
	}
	owner := n.ClearWillMakeReachable()
	if owner == nil {
		return
	}
	owner.completion.Add(-1)
	owner.maybeEnqueuePublish()
}

// WriteNewNodes marks every new node of u as durable. Real writes are an
// external collaborator's concern (spec §1); this drives the
// reachability graph's completion counting the same way a real
// asynchronous writer's completion callbacks would.
func (u *Update) WriteNewNodes() {
	u.mu.Lock()
	nodes := append([]*Node(nil), u.newNodes...)
	u.mu.Unlock()
	for _, n := range nodes {
		n.Flags.NeedWrite = false
		n.Flags.Dirty = false
		n.nodeWriteCompleted()
	}
	// Ops with zero new nodes (e.g. UpdateKey) never reach zero via a
	// write-completion callback since the counter was never incremented;
	// this call is idempotent (maybeEnqueuePublish CAS-guards nodesWritten)
	// so it safely also covers the ordinary nonzero-new-node case above.
	u.maybeEnqueuePublish()
}

// maybeEnqueuePublish transitions u onto the unwritten_updates worker
// queue exactly once, the instant its completion counter reaches zero —
// spec §4.6 "When an update completes all new-node writes, its closure
// fires: it sets nodes_written, enqueues itself on the worker."
func (u *Update) maybeEnqueuePublish() {
	if u.completion.Load() > 0 {
		return
	}
	if !u.nodesWritten.CompareAndSwap(false, true) {
		return
	}
	u.fs.enqueueUnwritten(u)
}
