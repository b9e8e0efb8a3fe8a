// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package futex provides the three kernel primitives a futex-backed
// mutex/condition-variable pair is built from: wait on a 32-bit word,
// wake N waiters on a word, and atomically requeue waiters from one word
// to another. The doc comments on Wait, Wake and Requeue state the
// contract each of the three operations satisfies.
//
// On linux, Wait/Wake/Requeue issue the real SYS_FUTEX syscall. On other
// platforms there is no portable futex syscall, so the package falls back
// to a channel-backed emulation with the same externally observable
// semantics; see futex_other.go.
package futex

import "time"

// Outcome is the result of a Wait call.
type Outcome int

const (
	// Woken means Wait returned because of a Wake (or Requeue) on the
	// same word, or because *word no longer equaled the expected value
	// by the time the kernel looked (a "spurious" success, which callers
	// must tolerate by re-checking their own state).
	Woken Outcome = iota
	// TimedOut means the deadline passed before any wake.
	TimedOut
)

// NoDeadline is passed to Wait to block with no timeout.
var NoDeadline time.Time
