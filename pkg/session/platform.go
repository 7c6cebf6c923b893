// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

// ExecutionContext is an opaque snapshot of the platform execution context
// (on Windows: silo and network compartment) taken when a registration-backed
// Session is created. This package stores it; the platform layer interprets
// it.
type ExecutionContext interface{}

// CaptureExecutionContext is the platform hook snapshotting the calling
// context at session creation. The default captures nothing; platforms with
// a notion of execution context replace it at init time.
var CaptureExecutionContext = func() ExecutionContext { return nil }
