// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"testing"

	"github.com/sessq/sessq-go/pkg/handle"
)

func TestSessionOpenValidatesHandle(t *testing.T) {
	if _, err := SessionOpen(nil, nil); err != ErrInvalidParameter {
		t.Fatalf("nil handle: expected ErrInvalidParameter, got %v", err)
	}

	// A handle of the wrong type must be rejected before any side effect.
	c := NewConn(newMockProcessor())
	if _, err := SessionOpen(c, nil); err != ErrInvalidParameter {
		t.Fatalf("connection handle: expected ErrInvalidParameter, got %v", err)
	}

	reg := NewRegistration("test", Settings{})
	h, err := SessionOpen(reg, "ctx")
	if err != nil {
		t.Fatal(err)
	}
	if h.HandleType() != handle.Session {
		t.Fatalf("expected a session handle, got %v", h.HandleType())
	}
	if h.(*Session).Context() != "ctx" {
		t.Fatal("application context lost")
	}

	SessionClose(h)
	_ = reg.Close()
}

func TestSessionCloseToleratesBadHandles(t *testing.T) {
	SessionClose(nil)
	SessionClose(NewConn(newMockProcessor()))

	reg := NewRegistration("test", Settings{})
	SessionClose(reg) // wrong type, must not touch the registration

	if _, err := Open(reg, nil); err != nil {
		t.Fatal("registration unusable after a mistyped SessionClose")
	}

	_ = reg.Close()
}

func TestSessionShutdownViaHandle(t *testing.T) {
	reg := NewRegistration("test", Settings{})
	h, err := SessionOpen(reg, nil)
	if err != nil {
		t.Fatal(err)
	}

	proc := newMockProcessor()
	c := NewConn(proc)
	h.(*Session).Register(c)

	SessionShutdown(nil, ShutdownFlagNone, 0)
	SessionShutdown(c, ShutdownFlagNone, 0)
	if len(proc.operations()) != 0 {
		t.Fatal("mistyped handles must be ignored")
	}

	SessionShutdown(h, ShutdownFlagNone, 3)
	if len(proc.operations()) != 1 {
		t.Fatal("shutdown not delivered through the handle API")
	}

	Unregister(c)
	SessionClose(h)
	_ = reg.Close()
}
