// SPDX-License-Identifier: GPL-3.0-or-later
//
// Grounded on: the context.AfterFunc-based lifecycle pattern in
// cancelwatch.go, generalized into the single dispatch point the core
// model (single-threaded, no preemption, suspension only while waiting)
// requires.

// Package eventloop provides the single-goroutine dispatch loop that
// drives package netlink, package dlep, and package dnssd: one goroutine
// owns all core state; every other goroutine (fd readers, timers)
// communicates with it only by posting a callback to run.
package eventloop

import (
	"context"
	"time"

	"github.com/oonf-go/meshcore/internal/deferq"
)

// Loop multiplexes posted callbacks and dispatches exactly one per
// iteration, then drains the deferred-callback queue, matching the
// "dispatch one callback, then drain deferred work" contract every
// package built on top of Loop relies on for ordering.
type Loop struct {
	deferred *deferq.Queue
	queue    chan func()
}

// NewLoop returns a [*Loop] that drains deferred after every dispatched
// callback.
func NewLoop(deferred *deferq.Queue) *Loop {
	return &Loop{
		deferred: deferred,
		queue:    make(chan func(), 256),
	}
}

// Post schedules fn to run on the loop's goroutine at the next dispatch
// point. Safe to call from any goroutine, including fn itself.
func (l *Loop) Post(fn func()) {
	l.queue <- fn
}

// AfterFunc arranges for fn to run on the loop's goroutine after d
// elapses, returning a function that cancels the timer if it has not
// fired yet. This is how netlink ack timers and DLEP heartbeat/ack
// timers are implemented: the [*time.Timer] itself runs on its own
// goroutine and only ever posts to the loop, never touches core state
// directly.
func (l *Loop) AfterFunc(d time.Duration, fn func()) func() bool {
	t := time.AfterFunc(d, func() { l.Post(fn) })
	return t.Stop
}

// Run dispatches posted callbacks one at a time, draining the deferred
// queue after each, until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.queue:
			fn()
			l.deferred.Drain()
		}
	}
}

// RunOne dispatches at most one posted callback (draining the deferred
// queue afterward) without blocking past ctx's deadline, or returns
// false if none was ready. Tests drive packages built on Loop with this
// instead of spinning up a full [Run] goroutine.
func (l *Loop) RunOne(ctx context.Context) bool {
	select {
	case fn := <-l.queue:
		fn()
		l.deferred.Drain()
		return true
	case <-ctx.Done():
		return false
	}
}
