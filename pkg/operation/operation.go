// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package operation carries work items to a connection's own processing
// context. The session layer never touches connection state directly; it
// queues an Operation and the connection's processor picks it up on its own
// goroutine.
package operation

// Type of an Operation.
type Type uint8

const (
	// APICall wraps an application-triggered request, e.g. a shutdown.
	APICall Type = iota
)

// APICallType discriminates the APICall payload.
type APICallType uint8

const (
	ConnShutdown APICallType = iota
)

// ConnShutdownArgs is the payload of a queued connection shutdown. Flags are
// the session layer's shutdown flags, ErrorCode the application error code
// within QUIC's 62-bit range.
type ConnShutdownArgs struct {
	Flags     uint32
	ErrorCode uint64
}

// Operation is one unit of work for a connection's processing context.
type Operation struct {
	Type Type

	// FreeAfterProcess is false for preallocated Operations (see BackupSlot)
	// whose storage is reused instead of discarded.
	FreeAfterProcess bool

	APICall APICallArgs

	// done releases backing storage, e.g. the claimed BackupSlot.
	done func()
}

// APICallArgs holds the request of an APICall Operation.
type APICallArgs struct {
	Type         APICallType
	ConnShutdown ConnShutdownArgs
}

// Finish must be called by the processor once the Operation has been
// handled. For slot-backed Operations this frees the slot for the next
// urgent signal.
func (op *Operation) Finish() {
	if op.done != nil {
		op.done()
	}
}
