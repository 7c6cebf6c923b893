// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package security manages shared ownership of the opaque security
// configuration produced by the TLS subsystem. The configuration's internals
// are none of this package's business; it only counts references so the
// resumption cache and its callers can hold the same configuration at the
// same time.
package security

import "sync/atomic"

// Config is an opaque security configuration. It is produced and consumed by
// the TLS subsystem; the session layer merely passes it around.
type Config interface{}

// Handle is a shared-ownership reference to a Config. Whoever holds a Handle
// owns exactly one reference and must call Release exactly once. Clone hands
// out an additional reference to the same Config.
type Handle struct {
	shared *shared
}

type shared struct {
	refs    int32
	cfg     Config
	destroy func(Config)
}

// NewHandle wraps cfg into a Handle holding one reference. destroy, when
// non-nil, runs once the last reference has been released.
func NewHandle(cfg Config, destroy func(Config)) *Handle {
	return &Handle{shared: &shared{
		refs:    1,
		cfg:     cfg,
		destroy: destroy,
	}}
}

// Clone returns a new Handle referencing the same Config.
func (h *Handle) Clone() *Handle {
	if atomic.AddInt32(&h.shared.refs, 1) <= 1 {
		panic("security: Clone of a released Handle")
	}
	return &Handle{shared: h.shared}
}

// Release drops this Handle's reference. The Handle must not be used
// afterwards.
func (h *Handle) Release() {
	switch n := atomic.AddInt32(&h.shared.refs, -1); {
	case n == 0:
		if h.shared.destroy != nil {
			h.shared.destroy(h.shared.cfg)
		}
	case n < 0:
		panic("security: Handle released twice")
	}
}

// Config returns the referenced configuration.
func (h *Handle) Config() Config {
	return h.shared.cfg
}

// RefCount reports the number of live references. Diagnostic only.
func (h *Handle) RefCount() int32 {
	return atomic.LoadInt32(&h.shared.refs)
}

// Same reports whether both Handles reference the same underlying Config.
func (h *Handle) Same(other *Handle) bool {
	return other != nil && h.shared == other.shared
}
