// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nsync

import (
	"math"
	"time"
)

// NoDeadline represents a time in the far future --- a deadline that will
// not expire in practice. Pass it to CV.TimedWait for an unbounded wait.
var NoDeadline time.Time

func init() {
	NoDeadline = time.Now().Add(time.Duration(math.MaxInt64)).Add(time.Duration(math.MaxInt64))
}

// Status is the outcome of CV.TimedWait.
type Status int

const (
	// OK means the waiter was woken by Signal or Broadcast.
	OK Status = iota
	// TimedOut means the deadline passed before any signal reached this
	// waiter, and the waiter removed itself from the CV's list.
	TimedOut
	// BadState means the external mutex failed to re-lock. The CV's own
	// bookkeeping is consistent regardless, but the caller must treat
	// this as fatal: whether the mutex itself is held is undefined.
	BadState
)

func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case TimedOut:
		return "TimedOut"
	case BadState:
		return "BadState"
	default:
		return "Status(?)"
	}
}
