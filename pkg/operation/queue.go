// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package operation

import (
	"sync"

	"github.com/eapache/queue"
)

// Queue is a connection's operation queue: a regular FIFO plus a priority
// lane whose entries are always processed first. Entries within each lane
// keep their enqueue order.
type Queue struct {
	mu       sync.Mutex
	priority *queue.Queue
	regular  *queue.Queue

	// wake carries at most one pending signal for the processor goroutine.
	wake chan struct{}
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	return &Queue{
		priority: queue.New(),
		regular:  queue.New(),
		wake:     make(chan struct{}, 1),
	}
}

// Enqueue appends op to the regular lane.
func (q *Queue) Enqueue(op *Operation) {
	q.mu.Lock()
	q.regular.Add(op)
	q.mu.Unlock()
	q.signal()
}

// EnqueueHighestPriority appends op to the priority lane, ahead of every
// regular Operation. Never blocks.
func (q *Queue) EnqueueHighestPriority(op *Operation) {
	q.mu.Lock()
	q.priority.Add(op)
	q.mu.Unlock()
	q.signal()
}

// Pop removes and returns the next Operation, preferring the priority lane.
// It never blocks; processors use Wake to sleep on an empty Queue.
func (q *Queue) Pop() (*Operation, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.priority.Length() > 0 {
		return q.priority.Remove().(*Operation), true
	}
	if q.regular.Length() > 0 {
		return q.regular.Remove().(*Operation), true
	}
	return nil, false
}

// Len reports the total number of queued Operations.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.priority.Length() + q.regular.Length()
}

// Wake returns a channel receiving a signal after each enqueue. The signal
// is collapsed, so after draining Pop until it fails a processor must check
// the channel again before sleeping.
func (q *Queue) Wake() <-chan struct{} {
	return q.wake
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
