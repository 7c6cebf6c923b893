// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	log "github.com/sirupsen/logrus"

	"github.com/sessq/sessq-go/pkg/handle"
)

// The functions below form the handle-typed API surface. Applications that
// deal in opaque handles enter here; the type tag is validated once and
// everything behind runs on concrete types.

// SessionOpen opens a Session under the Registration behind reg. A nil
// handle or one of the wrong type fails with ErrInvalidParameter and no side
// effects.
func SessionOpen(reg handle.Handle, context interface{}) (handle.Handle, error) {
	if !handle.Is(reg, handle.Registration) {
		return nil, ErrInvalidParameter
	}
	return Open(reg.(*Registration), context)
}

// SessionClose closes the Session behind h, blocking until every registered
// connection has detached. A nil or mistyped handle is tolerated and
// ignored.
func SessionClose(h handle.Handle) {
	if !handle.Is(h, handle.Session) {
		log.WithField("handle", h).Warn("SessionClose on a non-session handle")
		return
	}
	h.(*Session).Close()
}

// SessionShutdown queues a shutdown to every connection registered with the
// Session behind h. Mistyped handles and out-of-range error codes are
// silently ignored; shutdown is a best-effort signal.
func SessionShutdown(h handle.Handle, flags ShutdownFlags, errorCode uint64) {
	if !handle.Is(h, handle.Session) {
		return
	}
	h.(*Session).Shutdown(flags, errorCode)
}
