// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session implements the connection-grouping layer of a QUIC
// transport: long-lived Sessions which hold TLS resumption state and
// transport-parameter history for a set of remote servers, the Registrations
// owning them, and the registry binding Conns to their Session.
//
// Sessions and Conns are created and destroyed from arbitrary goroutines.
// The package guarantees that a Session is never freed while a Conn still
// references it, that a queued shutdown signal reaches every registered Conn
// exactly once, and that readers of the resumption cache never observe a
// partially written entry.
package session
