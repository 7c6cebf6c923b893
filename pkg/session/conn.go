// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"sync"

	"github.com/sessq/sessq-go/pkg/handle"
	"github.com/sessq/sessq-go/pkg/operation"
)

// Processor is the execution context of a connection, i.e. everything of the
// per-connection state machine the session layer needs to reach. Both
// methods are called with a Session's registry lock held and must not block.
type Processor interface {
	// EnqueueHighestPriority hands op to the connection's own processing
	// context, ahead of all regular operations. The processor calls
	// op.Finish once the operation has been handled.
	EnqueueHighestPriority(op *operation.Operation)

	// TraceRundown makes the connection emit its own rundown diagnostic.
	TraceRundown()
}

// Conn is the session-facing half of a connection: its registry membership,
// its settings copy and the reserved shutdown slot. The packet and frame
// state machine lives behind the Processor.
//
// A Conn belongs to at most one Session at a time. Registering it with a new
// Session implicitly detaches it from the previous one.
type Conn struct {
	proc   Processor
	backup operation.BackupSlot

	// mu guards the back references and the settings copy. It is never held
	// while a Session's registry lock is taken.
	mu           sync.Mutex
	session      *Session
	registration *Registration
	settings     Settings
	verifying    bool
}

// NewConn binds a Processor into a Conn ready for registration.
func NewConn(proc Processor) *Conn {
	return &Conn{proc: proc}
}

func (c *Conn) HandleType() handle.Type {
	return handle.Connection
}

// Session returns the Session the Conn is currently registered with, or nil.
func (c *Conn) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.session
}

// Settings returns the Conn's effective settings.
func (c *Conn) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.settings
}

// OverrideSettings overlays the non-zero fields of other onto the Conn's
// settings. A later registration replaces the whole settings copy with the
// new Session's settings.
func (c *Conn) OverrideSettings(other Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.settings = c.settings.merge(other)
}
