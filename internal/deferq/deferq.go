// SPDX-License-Identifier: GPL-3.0-or-later
//
// Grounded on: _examples/original_source/src/base/oonf_callback.c
//

// Package deferq implements the deferred-callback queue: a FIFO of work
// items scheduled from within the event loop to run after the triggering
// callback returns, breaking reentrancy between unrelated components.
package deferq

import (
	"fmt"
	"sync/atomic"
)

// entry is one scheduled callback, named for diagnostics.
type entry struct {
	name string
	fn   func()
}

// Queue is a single-flight FIFO of deferred callbacks.
//
// A Queue is meant to be drained once per event-loop turn, after the fd
// or timer callback that triggered this turn has returned. Enqueue may
// be called from any callback running on the loop's goroutine; Drain
// must only ever be called by the loop itself.
type Queue struct {
	items   []entry
	running atomic.Bool
}

// New returns an empty [*Queue].
func New() *Queue {
	return &Queue{}
}

// Enqueue appends fn, named name, to the queue.
//
// It panics if called while this same Queue is draining: a callback
// enqueuing work on the queue it is itself running from would either
// run inline (breaking the "runs next turn" contract) or be silently
// dropped, neither of which is safe to paper over.
func (q *Queue) Enqueue(name string, fn func()) {
	if q.running.Load() {
		panic(fmt.Sprintf("deferq: Enqueue(%q) called while Drain is running", name))
	}
	q.items = append(q.items, entry{name: name, fn: fn})
}

// Len reports the number of callbacks currently queued.
func (q *Queue) Len() int {
	return len(q.items)
}

// Drain runs every queued callback, in FIFO order, then empties the
// queue. Callbacks run by this Drain call must not enqueue further work
// on this queue: [Queue.Enqueue] panics while Drain is running.
func (q *Queue) Drain() {
	if len(q.items) == 0 {
		return
	}
	batch := q.items
	q.items = nil

	q.running.Store(true)
	defer q.running.Store(false)

	for _, e := range batch {
		e.fn()
	}
}
