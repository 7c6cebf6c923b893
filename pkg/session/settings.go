// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

// Settings are the per-session connection defaults. They are copied by value
// into every Conn at registration time; changing a Session's Settings later
// does not affect Conns that are already registered.
type Settings struct {
	IdleTimeoutMs          uint64 `toml:"idle-timeout-ms"`
	HandshakeIdleTimeoutMs uint64 `toml:"handshake-idle-timeout-ms"`
	KeepAliveIntervalMs    uint64 `toml:"keep-alive-interval-ms"`
	PeerBidiStreamCount    uint16 `toml:"peer-bidi-stream-count"`
	PeerUnidiStreamCount   uint16 `toml:"peer-unidi-stream-count"`
	DatagramReceiveEnabled bool   `toml:"datagram-receive-enabled"`
}

// merge overlays the non-zero fields of other onto a copy of s.
func (s Settings) merge(other Settings) Settings {
	if other.IdleTimeoutMs != 0 {
		s.IdleTimeoutMs = other.IdleTimeoutMs
	}
	if other.HandshakeIdleTimeoutMs != 0 {
		s.HandshakeIdleTimeoutMs = other.HandshakeIdleTimeoutMs
	}
	if other.KeepAliveIntervalMs != 0 {
		s.KeepAliveIntervalMs = other.KeepAliveIntervalMs
	}
	if other.PeerBidiStreamCount != 0 {
		s.PeerBidiStreamCount = other.PeerBidiStreamCount
	}
	if other.PeerUnidiStreamCount != 0 {
		s.PeerUnidiStreamCount = other.PeerUnidiStreamCount
	}
	if other.DatagramReceiveEnabled {
		s.DatagramReceiveEnabled = true
	}
	return s
}
