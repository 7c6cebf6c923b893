// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package operation

import "sync/atomic"

// BackupSlot is a connection's single preallocated Operation, reserved for
// urgent signals like shutdown. Claiming it never allocates, so delivery
// cannot fail under memory pressure; it fails only while a previous claim
// has not been finished yet, which means a signal is already in flight.
//
// The zero value is ready for use.
type BackupSlot struct {
	used int32
	op   Operation
}

// TryClaim atomically claims the slot. On success the returned Operation is
// reset and must be handed back via Operation.Finish once processed. On
// failure the slot is already carrying an unprocessed Operation and the
// caller must drop its request.
func (s *BackupSlot) TryClaim() (*Operation, bool) {
	if !atomic.CompareAndSwapInt32(&s.used, 0, 1) {
		return nil, false
	}

	s.op = Operation{FreeAfterProcess: false}
	s.op.done = s.release
	return &s.op, true
}

func (s *BackupSlot) release() {
	atomic.StoreInt32(&s.used, 0)
}

// InUse reports whether the slot is currently claimed. Diagnostic only.
func (s *BackupSlot) InUse() bool {
	return atomic.LoadInt32(&s.used) != 0
}
