/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package fw

import (
	"math/rand/v2"
	"sync"
	"time"
)

// randIntn returns a uniform random integer in [0, n).
func randIntn(n int) int {
	return rand.IntN(n)
}

// SchedHandle identifies one scheduled, possibly-already-fired callback.
type SchedHandle struct {
	mu       sync.Mutex
	timer    *time.Timer
	deadline time.Time
	fired    bool
}

// Scheduler is the forwarding thread's one-shot callback scheduler: a thin
// wrapper over time.AfterFunc that additionally tracks each handle's
// deadline so callers can ask how much time remains, matching the
// schedule/cancel/remaining contract strategies are written against.
type Scheduler struct{}

// NewScheduler constructs a Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Schedule arms cb to run after d elapses and returns a handle that can be
// cancelled or queried for remaining time.
func (s *Scheduler) Schedule(d time.Duration, cb func()) *SchedHandle {
	h := &SchedHandle{deadline: time.Now().Add(d)}
	h.timer = time.AfterFunc(d, func() {
		h.mu.Lock()
		h.fired = true
		h.mu.Unlock()
		cb()
	})
	return h
}

// Cancel stops a scheduled callback if it has not yet fired.
func (s *Scheduler) Cancel(h *SchedHandle) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.fired && h.timer != nil {
		h.timer.Stop()
	}
}

// Remaining returns the time left until h fires, or zero if it has
// already fired or is nil.
func (s *Scheduler) Remaining(h *SchedHandle) time.Duration {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fired {
		return 0
	}
	if d := time.Until(h.deadline); d > 0 {
		return d
	}
	return 0
}
