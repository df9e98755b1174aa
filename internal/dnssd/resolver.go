// SPDX-License-Identifier: GPL-3.0-or-later
//
// Grounded on: _examples/original_source/src/generic/dns_sd/dns_sd.c
// (_enqueue_dns_query, _start_next_query, _work_on_l2neigh_addr,
// _cb_ptr_result, _cb_srv_result, _cb_a_result, _cb_aaaa_result,
// _cb_query_done) and meshcore's DNSOverUDPConn/DNSExchangeLogContext
// (dnsoverudp.go, dnsexchange.go) for the query-dispatch
// shape this package's [QueryFunc] seam generalizes.
//

package dnssd

import (
	"context"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/oonf-go/meshcore/internal/eventloop"

	"github.com/oonf-go/meshcore"
)

// QueryFunc issues one DNS query against server and returns its answer.
// Production callers build this from [meshcore.DNSOverUDPConn] and
// [meshcore.DNSExchangeLogContext] (wired in cmd/meshcored); tests supply
// a synthetic responder.
type QueryFunc func(ctx context.Context, server string, query *dns.Msg) (*dns.Msg, error)

// ServerSelector returns the DNS server address to use for the given
// interface ("prefer IPv6 remote-DNS else IPv4 else drop"), or false if
// none is configured.
type ServerSelector func(iface string) (server string, ok bool)

// Resolver drains a FIFO of [Context]s through a single in-flight DNS
// query slot.
type Resolver struct {
	registry *PrefixRegistry
	prefixes []*Prefix
	query    QueryFunc
	selector ServerSelector
	timeout  time.Duration
	loop     *eventloop.Loop
	logger   meshcore.SLogger

	contexts map[ContextKey]*Context
	fifo     []*Context
	busy     bool
}

// NewResolver constructs a [*Resolver] registering cfg.DNSSDPrefixes
// against registry, querying via query with cfg.DNSQueryTimeout per
// attempt.
func NewResolver(cfg *meshcore.Config, registry *PrefixRegistry, query QueryFunc, selector ServerSelector, loop *eventloop.Loop, logger meshcore.SLogger) *Resolver {
	if logger == nil {
		logger = meshcore.DefaultSLogger()
	}
	r := &Resolver{
		registry: registry,
		query:    query,
		selector: selector,
		timeout:  cfg.DNSQueryTimeout,
		loop:     loop,
		logger:   logger,
		contexts: make(map[ContextKey]*Context),
	}
	for _, name := range cfg.DNSSDPrefixes {
		if p := registry.Add(name); p != nil {
			r.prefixes = append(r.prefixes, p)
		} else {
			logger.Warn("dnssd: prefix registry exhausted", "prefix", name)
		}
	}
	return r
}

// Enqueue adds (or returns the existing) context for key to the FIFO,
// the entry point a layer-2-neighbor-address observer calls for every
// newly discovered neighbor.
func (r *Resolver) Enqueue(key ContextKey) *Context {
	c, ok := r.contexts[key]
	if !ok {
		c = newContext(key)
		r.contexts[key] = c
	}
	if !c.queued {
		c.queued = true
		r.fifo = append(r.fifo, c)
	}
	if !r.busy {
		r.pump()
	}
	return c
}

func (r *Resolver) popFront() {
	if len(r.fifo) == 0 {
		return
	}
	r.fifo[0].queued = false
	r.fifo = r.fifo[1:]
}

// pump drives the one-slot FIFO: select a server, issue PTR if the
// hostname is unknown, else issue SRV for the next unresolved prefix.
func (r *Resolver) pump() {
	for len(r.fifo) > 0 {
		c := r.fifo[0]
		server, ok := r.selector(c.Key.Interface)
		if !ok {
			r.logger.Warn("dnssd: no DNS server available", "span", c.SpanID, "interface", c.Key.Interface)
			r.popFront()
			continue
		}
		if c.Hostname == "" {
			r.issuePTR(c, server)
			return
		}
		p := c.nextUnresolvedPrefix(r.prefixes)
		if p == nil {
			r.popFront()
			continue
		}
		r.issueSRV(c, server, p)
		return
	}
}

func reverseName(ip string) (string, error) {
	return dns.ReverseAddr(ip)
}

func (r *Resolver) issuePTR(c *Context, server string) {
	name, err := reverseName(c.Key.IP)
	if err != nil {
		r.logger.Warn("dnssd: invalid context IP", "span", c.SpanID, "ip", c.Key.IP)
		r.popFront()
		r.pump()
		return
	}
	msg := new(dns.Msg)
	msg.SetQuestion(name, dns.TypePTR)

	r.dispatch(server, msg, func(resp *dns.Msg, err error) {
		if err != nil {
			r.popFront() // timeout or transport failure: no retry
			r.pump()
			return
		}
		for _, rr := range resp.Answer {
			if ptr, ok := rr.(*dns.PTR); ok {
				c.Hostname = ptr.Ptr
				break
			}
		}
		if c.Hostname == "" {
			// no PTR record: nothing more this context can do without a
			// hostname to build SRV names from.
			r.popFront()
		}
		r.pump()
	})
}

func (r *Resolver) issueSRV(c *Context, server string, p *Prefix) {
	name := strings.TrimSuffix(p.Name, ".") + "." + c.Hostname
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeSRV)

	r.dispatch(server, msg, func(resp *dns.Msg, err error) {
		if err != nil {
			r.popFront() // timeout: do not retry immediately
			r.pump()
			return
		}
		r.handleSRVResult(c, p, resp)
		r.pump()
	})
}

func (r *Resolver) handleSRVResult(c *Context, p *Prefix, resp *dns.Msg) {
	var srv *dns.SRV
	for _, rr := range resp.Answer {
		if s, ok := rr.(*dns.SRV); ok {
			srv = s
			break
		}
	}
	if srv == nil {
		c.markUnavailable(p)
		return
	}
	c.markAvailable(p)
	svc := c.upsertService(srv.Target, p)
	svc.Port = srv.Port
	svc.Weight = srv.Weight
	svc.Priority = srv.Priority
	for _, rr := range resp.Extra {
		switch a := rr.(type) {
		case *dns.A:
			if a.Hdr.Name == srv.Target {
				svc.IPv4 = a.A
			}
		case *dns.AAAA:
			if a.Hdr.Name == srv.Target {
				svc.IPv6 = a.AAAA
			}
		}
	}
}

// dispatch issues msg against server with a query-timeout deadline,
// running the actual exchange off the loop goroutine and delivering the
// result back on it via [eventloop.Loop.Post], so onDone runs under the
// single-threaded cooperative model like everything else in this package.
func (r *Resolver) dispatch(server string, msg *dns.Msg, onDone func(*dns.Msg, error)) {
	r.busy = true
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		resp, err := r.query(ctx, server, msg)
		r.loop.Post(func() {
			r.busy = false
			onDone(resp, err)
		})
	}()
}

// Dump returns every known context, for the dnssd admin accessor.
func (r *Resolver) Dump() []*Context {
	out := make([]*Context, 0, len(r.contexts))
	for _, c := range r.contexts {
		out = append(out, c)
	}
	return out
}
