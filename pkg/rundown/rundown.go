// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package rundown provides a wait-for-zero reference primitive.
//
// A Rundown keeps an object alive while it is referenced. It is not a mutex:
// Acquire and Release never block, only ReleaseAndWait does, and only the
// object's owner calls it.
package rundown

import "sync"

// Rundown counts outstanding references to an object and lets the owner
// block until all of them are gone. A fresh Rundown already holds one unit
// on behalf of the owner; ReleaseAndWait drops that unit, refuses any
// further Acquire and blocks until the count reaches zero.
type Rundown struct {
	mu       sync.Mutex
	cond     *sync.Cond
	count    int
	draining bool
}

// New returns a Rundown holding the owner's unit.
func New() *Rundown {
	r := &Rundown{count: 1}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Acquire takes one unit. It fails once draining has started and the caller
// must not touch the guarded object in that case.
func (r *Rundown) Acquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.draining {
		return false
	}
	r.count++
	return true
}

// Release returns one unit. Returning more units than were acquired is a
// caller bug and panics.
func (r *Rundown) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count <= 0 {
		panic("rundown: Release without matching Acquire")
	}
	r.count--
	if r.count == 0 {
		r.cond.Broadcast()
	}
}

// ReleaseAndWait drops the owner's unit and blocks until every acquired unit
// has been released. Afterwards all Acquire calls fail. It must be called at
// most once and only from a context that may block.
func (r *Rundown) ReleaseAndWait() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.draining {
		panic("rundown: ReleaseAndWait called twice")
	}
	r.draining = true
	r.count--
	for r.count > 0 {
		r.cond.Wait()
	}
}

// Count reports the number of outstanding units. Diagnostic only; the value
// may be stale the moment it is returned.
func (r *Rundown) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.count
}

// Draining reports whether ReleaseAndWait has been entered.
func (r *Rundown) Draining() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.draining
}
