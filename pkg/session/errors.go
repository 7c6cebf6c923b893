// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import "errors"

// ErrInvalidParameter is returned when a nil handle, a handle of the wrong
// type or a nil required argument crosses the API boundary. The rejected
// call has no side effects.
var ErrInvalidParameter = errors.New("session: invalid parameter")

// MaxErrorCode is the largest application error code QUIC can transport, a
// 62-bit variable-length integer.
const MaxErrorCode uint64 = 1<<62 - 1
