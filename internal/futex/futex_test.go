// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package futex

import (
	"sync/atomic"
	"testing"
	"time"
)

// TestWaitWake checks that a waiter blocked in Wait is released by a
// concurrent Wake on the same word, and observes the new value.
func TestWaitWake(t *testing.T) {
	var word uint32

	done := make(chan Outcome, 1)
	go func() {
		done <- Wait(&word, 0, NoDeadline)
	}()

	time.Sleep(10 * time.Millisecond)
	atomic.StoreUint32(&word, 1)
	Wake(&word, 1)

	select {
	case outcome := <-done:
		if outcome != Woken {
			t.Fatalf("Wait returned %v, want Woken", outcome)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Wake")
	}
}

// TestWaitTimeout checks that Wait honors its deadline when no Wake arrives.
func TestWaitTimeout(t *testing.T) {
	var word uint32
	start := time.Now()
	outcome := Wait(&word, 0, start.Add(20*time.Millisecond))
	if outcome != TimedOut {
		t.Fatalf("Wait returned %v, want TimedOut", outcome)
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Fatalf("Wait returned too early, after %v", elapsed)
	}
}

// TestWaitValueAlreadyChanged checks that Wait returns immediately, without
// blocking, if *word doesn't match expected at the time of the call.
func TestWaitValueAlreadyChanged(t *testing.T) {
	var word uint32 = 7
	start := time.Now()
	outcome := Wait(&word, 0, NoDeadline)
	if outcome != Woken {
		t.Fatalf("Wait returned %v, want Woken", outcome)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("Wait blocked for %v despite a mismatched value", elapsed)
	}
}

// TestRequeue checks that Requeue moves a blocked waiter from src to dst
// without waking it, and that a later Wake on dst then releases it.
func TestRequeue(t *testing.T) {
	var src, dst uint32

	done := make(chan Outcome, 1)
	go func() {
		done <- Wait(&src, 0, NoDeadline)
	}()

	time.Sleep(10 * time.Millisecond)

	select {
	case <-done:
		t.Fatal("waiter woke up before any Wake or Requeue")
	case <-time.After(10 * time.Millisecond):
	}

	if ok := Requeue(&src, 0, 0, &dst, 1); !ok {
		t.Fatal("Requeue reported *src did not match srcExpected")
	}

	select {
	case <-done:
		t.Fatal("waiter woke up as part of Requeue, but requeueN excluded it from wakeN")
	case <-time.After(10 * time.Millisecond):
	}

	Wake(&dst, 1)
	select {
	case outcome := <-done:
		if outcome != Woken {
			t.Fatalf("Wait returned %v, want Woken", outcome)
		}
	case <-time.After(time.Second):
		t.Fatal("requeued waiter was not released by Wake(dst)")
	}
}

// TestRequeueMismatch checks that Requeue is a no-op when *src no longer
// matches srcExpected.
func TestRequeueMismatch(t *testing.T) {
	var src uint32 = 5
	var dst uint32
	if ok := Requeue(&src, 1, 0, &dst, 1); ok {
		t.Fatal("Requeue reported success despite a mismatched *src")
	}
}
