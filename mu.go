// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nsync

import "sync/atomic"

// Mutex is the capability a CV needs from whatever mutex it is paired
// with. Any type implementing Mutex can be used with CV.TimedWait; this
// package also provides Mu, a futex-backed implementation for when the
// caller has no mutex of its own.
type Mutex interface {
	// FutexWord returns a pointer to the 32-bit word the mutex blocks on.
	// CV.TimedWait's chain handoff requeues waiters directly onto this
	// word, so that a broadcast's wakeups serialize through the mutex's
	// own futex instead of thundering all of them in at once.
	FutexWord() *uint32

	// Lock unconditionally locks the mutex.
	Lock() error

	// LockWithWaiters locks the mutex and folds waitersDelta into its
	// waiter bookkeeping (or, for a mutex with no such counter, simply
	// ensures the mutex is left marked as possibly having waiters). It
	// must be called, instead of Lock, by a waiter that is about to
	// requeue another waiter onto this mutex's futex word (or that was
	// itself delivered here by such a requeue) — otherwise a later
	// Unlock could fail to wake the requeued thread.
	LockWithWaiters(waitersDelta int) error

	// Unlock releases the mutex, waking (or, for a requeued waiter,
	// implicitly handing off to) whoever needs to run next.
	Unlock()
}

// A Mu is a futex-backed mutex suitable for pairing with a CV. Its zero
// value is valid and unlocked. Unlike a sync.Mutex, its waiter queue is
// the kernel futex queue on word itself — addressed directly by CV's
// chain handoff — rather than a userspace list of parked goroutines.
type Mu struct {
	word uint32 // three-state spinlock word: unlocked/lockedNoWaiters/lockedMaybeWaiters.

	// waiters is an advisory count of threads that have registered an
	// interest (via LockWithWaiters) in this mutex's wakeups. It is not
	// load-bearing for correctness — word's own state is — but it gives
	// AssertHeld-style callers and tests something to introspect.
	waiters int32
}

// FutexWord implements Mutex.
func (mu *Mu) FutexWord() *uint32 { return &mu.word }

// TryLock attempts to acquire *mu without blocking, and reports whether it
// succeeded.
func (mu *Mu) TryLock() bool {
	return atomic.CompareAndSwapUint32(&mu.word, unlocked, lockedNoWaiters)
}

// Lock implements Mutex: it blocks until *mu is free and then acquires it.
func (mu *Mu) Lock() error {
	spinLock(&mu.word)
	return nil
}

// LockWithWaiters implements Mutex. waitersDelta is folded into mu's
// advisory waiter count, and the mutex is always left in the
// lockedMaybeWaiters state on return — Mu has no separate numeric
// waiter-count encoded in word itself, so instead of adjusting a count it
// unconditionally marks itself as locked with waiters.
func (mu *Mu) LockWithWaiters(waitersDelta int) error {
	if waitersDelta != 0 {
		atomic.AddInt32(&mu.waiters, int32(waitersDelta))
	}
	if atomic.CompareAndSwapUint32(&mu.word, unlocked, lockedMaybeWaiters) {
		return nil
	}
	spinLock(&mu.word)
	for {
		old := atomic.LoadUint32(&mu.word)
		if old == lockedMaybeWaiters {
			return nil
		}
		if atomic.CompareAndSwapUint32(&mu.word, old, lockedMaybeWaiters) {
			return nil
		}
	}
}

// Unlock implements Mutex: it releases *mu, waking a waiter (including one
// delivered here by a CV's chain-handoff requeue) if the word says one may
// be asleep on it.
func (mu *Mu) Unlock() {
	spinUnlock(&mu.word)
}

// AssertHeld panics if *mu is not held. Useful in tests and assertions.
func (mu *Mu) AssertHeld() {
	if atomic.LoadUint32(&mu.word) == unlocked {
		panic("nsync: Mu not held")
	}
}
