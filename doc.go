// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nsync provides a futex-backed condition variable, CV, and a
// matching futex-backed mutex, Mu.
//
// CV is Mesa-style, like sync.Cond: a woken waiter must re-check its own
// predicate, since TimedWait makes no promise that the condition it was
// waiting for still holds by the time it returns. Unlike sync.Cond, CV
// supports a deadline on the wait and pairs with any mutex implementing
// the Mutex interface, not just sync.Locker — Mu is one such mutex, but a
// caller's own futex-backed lock can implement Mutex instead.
//
// CV's distinguishing feature is how it wakes a Broadcast of many
// waiters: rather than handing the whole waiter list to the mutex's own
// wait queue at once, it wakes the oldest waiter directly and has each
// subsequently-woken waiter hand off to the next via a kernel requeue
// onto the mutex's futex word. Only one thread ever contends the mutex at
// a time, even when every waiter on the condvar was signalled together.
package nsync
