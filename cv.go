// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nsync

import (
	"fmt"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/amirhosseinghadimizadeh/zircon/internal/futex"
)

// A CV is a futex-backed condition variable in the style of Mesa, POSIX,
// and Go's sync.Cond, built to pair with any mutex implementing Mutex
// (Mu, provided by this package, is one such mutex). Its zero value is a
// valid, empty CV — there is no constructor.
//
// Usage, as with all Mesa-style condition variables, requires a loop that
// re-checks the predicate after every wait:
//
//	mu.Lock()
//	for !somePredicateProtectedByMu {
//		if status, _ := cv.TimedWait(&mu, nsync.NoDeadline); status != nsync.OK {
//			break
//		}
//	}
//	mu.Unlock()
//
// CV supports no asynchronous cancellation; the only way out of a wait
// besides a signal is the deadline passed to TimedWait.
type CV struct {
	lock uint32 // three-state spinlock word protecting head/tail below.

	head *Waiter // newest enqueued waiter, or nil.
	tail *Waiter // oldest enqueued waiter, or nil. head and tail are both nil, or both non-nil.
}

// TimedWait atomically unlocks mu and blocks the calling goroutine on *cv
// until woken by Signal or Broadcast, or until deadline passes (use
// nsync.NoDeadline for no deadline). On every return path except BadState,
// mu is re-locked before TimedWait returns.
//
// TimedWait must be called with mu held, and should be called in a loop,
// as the usage example above shows — a returned OK means some signal
// reached this waiter, not that the caller's predicate is now true.
func (cv *CV) TimedWait(mu Mutex, deadline time.Time) (Status, error) {
	w := newWaiter()

	// Phase 1: enqueue ourselves, then release the caller's mutex. We
	// prepend at head; tail is therefore the oldest (first-enqueued)
	// waiter, and Signal walks tail-to-head for FIFO wakeup order.
	spinLock(&cv.lock)
	w.next = cv.head
	cv.head = w
	if cv.tail == nil {
		cv.tail = w
	} else {
		w.next.prev = w
	}
	spinUnlock(&cv.lock)

	mu.Unlock()

	// NoDeadline is this package's own "wait forever" sentinel; give it
	// internal/futex's own zero-value sentinel so Wait takes its true
	// no-timeout path instead of building a timespec for a deadline
	// hundreds of years out.
	futexDeadline := deadline
	if deadline == NoDeadline {
		futexDeadline = futex.NoDeadline
	}

	// Phase 2: block on our private barrier futex until released or
	// timed out. A futex wait can return without the barrier's value
	// having actually changed (a spurious wake); loop until either the
	// deadline fires or the value truly moved off lockedMaybeWaiters.
	timedOut := false
	for {
		if futex.Wait(&w.barrier, lockedMaybeWaiters, futexDeadline) == futex.TimedOut {
			timedOut = true
			break
		}
		if atomic.LoadUint32(&w.barrier) != lockedMaybeWaiters {
			break
		}
	}

	if timedOut && w.casState(waiting, leaving) {
		return cv.finishTimedOut(w, mu)
	}
	// Either we were never at risk of timing out, or our CAS to leaving
	// lost a race with a concurrent Signal that got to this node first:
	// either way, we are now in (or about to enter) the signalled chain.
	return cv.finishSignalled(w, mu)
}

// Wait is TimedWait with no deadline. It is equivalent to
// cv.TimedWait(mu, nsync.NoDeadline) with the returned Status and error
// discarded, so a BadState outcome is not reported to the caller.
func (cv *CV) Wait(mu Mutex) {
	cv.TimedWait(mu, NoDeadline)
}

// finishTimedOut runs when this goroutine won the CAS out of waiting, so
// it alone is responsible for unlinking node from the list, and for the
// notify handshake with any Signal that had already tagged it.
func (cv *CV) finishTimedOut(w *Waiter, mu Mutex) (Status, error) {
	spinLock(&cv.lock)
	cv.unlink(w)
	spinUnlock(&cv.lock)

	// A Signal may have reached this node (found it already LEAVING)
	// just before we took the lock above, in which case it tagged
	// w.notify and is spin-waiting on it. Tell it we're done touching
	// the list so it can safely proceed.
	if w.notify != nil {
		if atomic.AddInt32(w.notify, -1) == 0 {
			futex.Wake((*uint32)(unsafe.Pointer(w.notify)), 1)
		}
	}

	// We were never claimed by a signaller, so no waiter was ever
	// requeued onto mu on our behalf: a plain Lock is correct here,
	// unlike the signalled path below.
	if err := mu.Lock(); err != nil {
		return BadState, fmt.Errorf("nsync: relocking mutex after timeout: %w", err)
	}
	return TimedOut, nil
}

// finishSignalled claims the barrier handed to us, re-locks mu, and
// hands off to the previous waiter in the chain (if any) — the wake
// propagates one waiter at a time instead of all at once.
func (cv *CV) finishSignalled(w *Waiter, mu Mutex) (Status, error) {
	// Claim our own barrier. It has already been released by whoever
	// handed us off (Signal's direct release of the first waiter, or the
	// previous waiter's Phase 3c below); this re-acquisition is what
	// orders our reads of w.prev/w.next against that release — by the
	// time we observe the barrier as claimable, the list surgery Signal
	// did under cv.lock is visible to us.
	spinLock(&w.barrier)

	// The chain was unlinked from cv under cv.lock by Signal; w.prev and
	// w.next are now frozen, and safe to read without cv.lock.
	waitersDelta := 0
	if w.prev == nil {
		waitersDelta++
	}
	if w.next == nil {
		waitersDelta--
	}

	status := OK
	var err error
	if lockErr := mu.LockWithWaiters(waitersDelta); lockErr != nil {
		// Deliberately proceed to the handoff below even on this
		// error: failing to do so would wedge every waiter behind us
		// in the chain.
		status = BadState
		err = fmt.Errorf("nsync: relocking mutex after signal: %w", lockErr)
	}

	if w.prev != nil {
		spinUnlockRequeue(&w.prev.barrier, mu.FutexWord())
	}

	return status, err
}

// unlink removes w from cv's waiter list. The caller must hold cv.lock.
func (cv *CV) unlink(w *Waiter) {
	if cv.head == w {
		cv.head = w.next
	} else if w.prev != nil {
		w.prev.next = w.next
	}
	if cv.tail == w {
		cv.tail = w.prev
	} else if w.next != nil {
		w.next.prev = w.prev
	}
}

// Signal wakes up to n of the waiters currently enqueued on *cv (the
// oldest n, in enqueue order), or all of them if n is negative. It never
// blocks for long: the only wait is a short rendezvous with any waiter
// that is concurrently timing out and leaving the list on its own,
// bounded by how long that waiter takes to splice itself out.
func (cv *CV) Signal(n int) {
	if n == 0 {
		return
	}

	spinLock(&cv.lock)
	var first *Waiter
	var ref int32
	p := cv.tail
	for n != 0 && p != nil {
		if p.casState(waiting, signaled) {
			n--
			if first == nil {
				first = p
			}
		} else {
			// p is LEAVING: it raced us and will unlink itself.
			// Tag it so we wait for that before touching the list
			// boundary it's about to leave.
			atomic.AddInt32(&ref, 1)
			p.notify = &ref
		}
		p = p.prev
	}

	// Split the list at p: the tail-ward prefix we just walked (the
	// signalled chain, plus any LEAVING waiters we raced) is detached;
	// whatever remains (from p to head) stays on cv.
	if p != nil {
		if p.next != nil {
			p.next.prev = nil
		}
		p.next = nil
	} else {
		cv.head = nil
	}
	cv.tail = p
	spinUnlock(&cv.lock)

	// Wait for every LEAVING waiter we tagged to finish unlinking itself
	// and report in; until then, its stack frame (and w.prev/w.next)
	// are not ours to rely on.
	for {
		cur := atomic.LoadInt32(&ref)
		if cur == 0 {
			break
		}
		spinFutexWait((*uint32)(unsafe.Pointer(&ref)), uint32(cur))
	}

	// Release only the first (oldest) signalled waiter directly; the
	// rest wake transitively via each waiter's own Phase 3c requeue,
	// which is what keeps a broadcast from thundering the mutex.
	if first != nil {
		spinUnlock(&first.barrier)
	}
}

// Broadcast wakes all waiters currently enqueued on *cv. It is equivalent
// to cv.Signal(-1).
func (cv *CV) Broadcast() {
	cv.Signal(-1)
}
