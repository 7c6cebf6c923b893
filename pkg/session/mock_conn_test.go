// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"sync"

	"github.com/sessq/sessq-go/pkg/operation"
)

// mockProcessor records the Operations a Session hands to a connection. It
// never blocks, as the Processor contract demands; reactions to Operations
// happen on separate goroutines in the tests themselves.
type mockProcessor struct {
	mu     sync.Mutex
	ops    []*operation.Operation
	traced int

	// onEnqueue, when non-nil, runs once per delivered Operation. It must
	// not block; tests use it to kick their own processing goroutines.
	onEnqueue func()
}

func newMockProcessor() *mockProcessor {
	return &mockProcessor{}
}

func (m *mockProcessor) EnqueueHighestPriority(op *operation.Operation) {
	m.mu.Lock()
	m.ops = append(m.ops, op)
	hook := m.onEnqueue
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
}

func (m *mockProcessor) TraceRundown() {
	m.mu.Lock()
	m.traced++
	m.mu.Unlock()
}

func (m *mockProcessor) operations() []*operation.Operation {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*operation.Operation(nil), m.ops...)
}

func (m *mockProcessor) traceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.traced
}
