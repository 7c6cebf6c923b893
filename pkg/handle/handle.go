// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handle tags the objects crossing the public API boundary.
//
// The API hands out opaque handles instead of concrete types. Every handle
// carries a type tag which is validated once at the boundary; behind the
// boundary only strongly typed references are used.
package handle

// Type is the kind of object behind a Handle.
type Type uint8

const (
	Registration Type = iota
	Session
	Connection
)

func (t Type) String() string {
	switch t {
	case Registration:
		return "registration"
	case Session:
		return "session"
	case Connection:
		return "connection"
	default:
		return "unknown"
	}
}

// Handle is implemented by every object reachable through the public API.
type Handle interface {
	HandleType() Type
}

// Is reports whether h is a non-nil Handle carrying the type tag t.
func Is(h Handle, t Type) bool {
	return h != nil && h.HandleType() == t
}
