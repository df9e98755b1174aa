// SPDX-License-Identifier: GPL-3.0-or-later

package deferq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDrainRunsInFIFOOrder(t *testing.T) {
	q := New()
	var order []int
	q.Enqueue("a", func() { order = append(order, 1) })
	q.Enqueue("b", func() { order = append(order, 2) })
	q.Enqueue("c", func() { order = append(order, 3) })

	q.Drain()

	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, 0, q.Len())
}

func TestDrainOnEmptyQueueIsNoop(t *testing.T) {
	q := New()
	assert.NotPanics(t, func() { q.Drain() })
}

func TestEnqueuedAfterDrainRunsOnNextDrain(t *testing.T) {
	q := New()
	var ran []string

	q.Enqueue("first", func() {
		ran = append(ran, "first")
	})

	q.Drain()
	assert.Equal(t, []string{"first"}, ran)

	q.Enqueue("second", func() {
		ran = append(ran, "second")
	})
	q.Drain()
	assert.Equal(t, []string{"first", "second"}, ran)
}

func TestReentrantEnqueuePanics(t *testing.T) {
	q := New()
	q.Enqueue("outer", func() {
		assert.Panics(t, func() {
			q.Enqueue("inner", func() {})
		})
	})
	q.Drain()
}
