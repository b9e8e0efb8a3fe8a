// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nsync

import "sync/atomic"

// waiterState is the state of a single Waiter node. The CAS between these
// states is the sole arbiter of which party — the waiting thread itself, or
// a concurrent Signal — is responsible for unlinking the node from its CV's
// waiter list.
type waiterState int32

const (
	waiting  waiterState = iota // on the CV's list, not yet signalled.
	signaled                    // claimed by a Signal/Broadcast; will be released via barrier.
	leaving                     // the waiter CASed itself out after a timeout; it owns unlinking.
)

// A Waiter is a per-call record for one goroutine blocked in CV.TimedWait.
// It is allocated on the calling goroutine's stack (logically — Go's escape
// analysis will put it on the heap, since its address is taken), linked
// into the owning CV's waiter list while WAITING. Once a Signal has
// detached it from that list, other goroutines touch it only to release
// its barrier (Signal for the oldest signalled waiter, the next-older
// waiter in the chain for the rest) and, before that, to splice a
// timing-out neighbour out of the detached chain.
//
// prev points toward the head (newer waiters); next points toward the tail
// (older waiters). New waiters are linked in at the head, so the list read
// tail-to-head via prev is oldest-to-newest: the order Signal wakes in.
type Waiter struct {
	prev, next *Waiter

	state waiterState // atomic

	// barrier is this waiter's private futex word. It starts at
	// lockedMaybeWaiters and is released (3-state unlocked) by whichever
	// thread hands this waiter off — either the first signalled waiter's
	// release by Signal, or the previous waiter's Phase 3c requeue.
	barrier uint32

	// notify is set by a Signal that observed this waiter already in the
	// leaving state: it has not yet unlinked itself, so Signal must wait
	// for it to do so (and be told when it has) before Signal can safely
	// touch the list around this node.
	notify *int32
}

func newWaiter() *Waiter {
	return &Waiter{state: waiting, barrier: lockedMaybeWaiters}
}

func (w *Waiter) loadState() waiterState {
	return waiterState(atomic.LoadInt32((*int32)(&w.state)))
}

// casState attempts to move w from "from" to "to" and reports success.
func (w *Waiter) casState(from, to waiterState) bool {
	return atomic.CompareAndSwapInt32((*int32)(&w.state), int32(from), int32(to))
}
