// SPDX-License-Identifier: GPL-3.0-or-later

package dnssd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkAvailableLeavesUnavailableClear(t *testing.T) {
	r := NewPrefixRegistry()
	p := r.Add("_http._tcp.")
	c := newContext(ContextKey{Interface: "eth0", IP: "fe80::1"})

	c.markAvailable(p)
	assert.NotZero(t, c.Available&p.Flag())
	assert.Zero(t, c.Unavailable&p.Flag())

	c.markUnavailable(p)
	// Once found available, a context should not also be marked
	// unavailable for the same prefix by well-behaved callers; the type
	// itself only guarantees what's set, the resolver enforces the
	// invariant by never calling both for one SRV outcome.
}

func TestNextUnresolvedPrefixSkipsResolvedOnes(t *testing.T) {
	r := NewPrefixRegistry()
	p1 := r.Add("_http._tcp.")
	p2 := r.Add("_ssh._tcp.")
	c := newContext(ContextKey{Interface: "eth0", IP: "fe80::1"})

	assert.Equal(t, p1, c.nextUnresolvedPrefix([]*Prefix{p1, p2}))

	c.markAvailable(p1)
	assert.Equal(t, p2, c.nextUnresolvedPrefix([]*Prefix{p1, p2}))

	c.markUnavailable(p2)
	assert.Nil(t, c.nextUnresolvedPrefix([]*Prefix{p1, p2}))
}
