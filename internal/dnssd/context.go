// SPDX-License-Identifier: GPL-3.0-or-later
//
// Grounded on: _examples/original_source/include/oonf/generic/dns_sd/dns_sd.h
// (struct dns_sd_context / dns_sd_context_key) and dns_sd.c's
// _add_sd_context / _enqueue_dns_query.
//

package dnssd

import "github.com/oonf-go/meshcore"

// ContextKey identifies a DNS-SD context: the interface a layer-2
// neighbor was discovered on, plus its IP address.
type ContextKey struct {
	Interface string
	IP        string
}

// Context is one (interface, peer IP) pair's DNS-SD resolution state.
type Context struct {
	Key      ContextKey
	SpanID   string // correlates every query this context issues across its lifetime
	Hostname string

	// Available and Unavailable are disjoint one-hot bitmasks over the
	// registry's prefix flags: Available|p.Flag() once an SRV query for
	// that prefix succeeded, Unavailable|p.Flag() once it came back
	// without a service. Both are consulted, never both set for the
	// same bit.
	Available   uint64
	Unavailable uint64

	services map[serviceKey]*Service

	queued bool // already sitting in the resolver's FIFO
}

// newContext returns a fresh, empty context for key.
func newContext(key ContextKey) *Context {
	return &Context{Key: key, SpanID: meshcore.NewSpanID(), services: make(map[serviceKey]*Service)}
}

// hasPrefix reports the known/available/unavailable tri-state of p for
// this context.
func (c *Context) hasPrefix(p *Prefix) (available, unavailable bool) {
	return c.Available&p.flag != 0, c.Unavailable&p.flag != 0
}

// markAvailable sets p's bit in Available, the SRV-succeeded outcome.
func (c *Context) markAvailable(p *Prefix) {
	c.Available |= p.flag
}

// markUnavailable sets p's bit in Unavailable, the SRV-empty outcome.
func (c *Context) markUnavailable(p *Prefix) {
	c.Unavailable |= p.flag
}

// nextUnresolvedPrefix returns the first prefix in prefixes whose flag is
// set in neither Available nor Unavailable, or nil if every prefix has
// already been resolved one way or the other.
func (c *Context) nextUnresolvedPrefix(prefixes []*Prefix) *Prefix {
	for _, p := range prefixes {
		avail, unavail := c.hasPrefix(p)
		if !avail && !unavail {
			return p
		}
	}
	return nil
}
