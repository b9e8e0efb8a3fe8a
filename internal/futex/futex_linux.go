// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package futex

import (
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux futex(2) operations, always issued with FUTEX_PRIVATE_FLAG: every
// futex word backing a CV or Mu in this module is reachable from exactly
// one process's address space, so there is no need to pay for the
// shared-memory hashing the non-private ops do.
// x/sys/unix does not export the futex(2) operation constants, so the
// stable kernel ABI values are reproduced here directly.
const (
	futexWait        = 0
	futexWake        = 1
	futexCmpRequeue  = 4
	futexPrivateFlag = 128

	futexWaitPrivate       = futexWait | futexPrivateFlag
	futexWakePrivate       = futexWake | futexPrivateFlag
	futexCmpRequeuePrivate = futexCmpRequeue | futexPrivateFlag
)

// Wait sleeps the calling goroutine's OS thread iff *word == expected,
// until woken by Wake/Requeue on word, the deadline passes, or the kernel
// returns spuriously (EAGAIN/EINTR, both folded into Woken so that callers
// re-check *word themselves).
func Wait(word *uint32, expected uint32, deadline time.Time) Outcome {
	var tsp *unix.Timespec
	if !deadline.IsZero() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			if atomic.LoadUint32(word) != expected {
				return Woken
			}
			return TimedOut
		}
		ts := unix.NsecToTimespec(remaining.Nanoseconds())
		tsp = &ts
	}
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(word)),
		uintptr(futexWaitPrivate),
		uintptr(expected),
		uintptr(unsafe.Pointer(tsp)),
		0, 0,
	)
	if errno == unix.ETIMEDOUT {
		return TimedOut
	}
	return Woken
}

// Wake wakes up to n goroutines blocked in Wait on word, returning how
// many were actually woken.
func Wake(word *uint32, n int32) int32 {
	r1, _, _ := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(word)),
		uintptr(futexWakePrivate),
		uintptr(uint32(n)),
		0, 0, 0,
	)
	return int32(r1)
}

// Requeue atomically verifies that *src == srcExpected, wakes up to wakeN
// waiters blocked on src, and moves up to requeueN of the remaining
// waiters from src to dst without waking them. It reports whether the
// verification succeeded; a false return (EAGAIN: *src had already
// changed) means nothing was woken or moved.
func Requeue(src *uint32, wakeN int32, srcExpected uint32, dst *uint32, requeueN int32) bool {
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(src)),
		uintptr(futexCmpRequeuePrivate),
		uintptr(uint32(wakeN)),
		uintptr(requeueN),
		uintptr(unsafe.Pointer(dst)),
		uintptr(srcExpected),
	)
	return errno == 0
}
