// SPDX-License-Identifier: GPL-3.0-or-later

package dnssd

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oonf-go/meshcore/internal/deferq"
	"github.com/oonf-go/meshcore/internal/eventloop"

	"github.com/oonf-go/meshcore"
)

// scriptedQuery answers queries by matching on (server, qtype, qname),
// recording every query issued for assertions.
type scriptedQuery struct {
	responses map[string]*dns.Msg // keyed by qtype:qname
	fail      map[string]bool
	issued    []string
}

func (s *scriptedQuery) key(q *dns.Msg) string {
	question := q.Question[0]
	return dns.TypeToString[question.Qtype] + ":" + question.Name
}

func (s *scriptedQuery) Query(ctx context.Context, server string, q *dns.Msg) (*dns.Msg, error) {
	k := s.key(q)
	s.issued = append(s.issued, k)
	if s.fail[k] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if resp, ok := s.responses[k]; ok {
		return resp, nil
	}
	empty := new(dns.Msg)
	empty.SetReply(q)
	return empty, nil
}

func newTestResolver(t *testing.T, sq *scriptedQuery, prefixes []string) (*Resolver, *eventloop.Loop) {
	t.Helper()
	cfg := meshcore.NewConfig()
	cfg.DNSSDPrefixes = prefixes
	cfg.DNSQueryTimeout = 200 * time.Millisecond
	loop := eventloop.NewLoop(deferq.New())
	selector := func(iface string) (string, bool) { return "2001:db8::53:53", true }
	r := NewResolver(cfg, NewPrefixRegistry(), sq.Query, selector, loop, nil)
	return r, loop
}

func drainDNSLoop(t *testing.T, loop *eventloop.Loop, timeout time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for loop.RunOne(ctx) {
	}
}

func TestDiscoveryScenarioPTRThenSRVHarvestsAddresses(t *testing.T) {
	ptrName, err := dns.ReverseAddr("fe80::1")
	require.NoError(t, err)

	ptrResp := new(dns.Msg)
	ptrResp.Answer = []dns.RR{&dns.PTR{
		Hdr: dns.RR_Header{Name: ptrName, Rrtype: dns.TypePTR},
		Ptr: "node1.local.",
	}}

	srvResp := new(dns.Msg)
	srvResp.Answer = []dns.RR{&dns.SRV{
		Hdr:      dns.RR_Header{Name: "_http._tcp.node1.local.", Rrtype: dns.TypeSRV},
		Target:   "node1.local.",
		Port:     80,
		Weight:   1,
		Priority: 1,
	}}
	srvResp.Extra = []dns.RR{&dns.AAAA{
		Hdr:  dns.RR_Header{Name: "node1.local.", Rrtype: dns.TypeAAAA},
		AAAA: net.ParseIP("fe80::2"),
	}}

	sq := &scriptedQuery{
		responses: map[string]*dns.Msg{
			"PTR:" + ptrName:             ptrResp,
			"SRV:_http._tcp.node1.local.": srvResp,
		},
	}

	r, loop := newTestResolver(t, sq, []string{"_http._tcp.", "_ssh._tcp."})
	ctx := r.Enqueue(ContextKey{Interface: "eth0", IP: "fe80::1"})

	drainDNSLoop(t, loop, 500*time.Millisecond)

	assert.Equal(t, "node1.local.", ctx.Hostname)
	var httpPrefix, sshPrefix *Prefix
	for _, p := range r.prefixes {
		switch p.Name {
		case "_http._tcp.":
			httpPrefix = p
		case "_ssh._tcp.":
			sshPrefix = p
		}
	}
	require.NotNil(t, httpPrefix)
	require.NotNil(t, sshPrefix)

	avail, unavail := ctx.hasPrefix(httpPrefix)
	assert.True(t, avail)
	assert.False(t, unavail)

	avail, unavail = ctx.hasPrefix(sshPrefix)
	assert.False(t, avail)
	assert.True(t, unavail, "SRV query with no answer marks the prefix unavailable")

	services := ctx.Services()
	require.Len(t, services, 1)
	assert.Equal(t, uint16(80), services[0].Port)
	assert.True(t, net.ParseIP("fe80::2").Equal(services[0].IPv6))
}

func TestQueryTimeoutPopsContextWithoutRetry(t *testing.T) {
	ptrName, err := dns.ReverseAddr("fe80::1")
	require.NoError(t, err)

	sq := &scriptedQuery{fail: map[string]bool{"PTR:" + ptrName: true}}
	cfg := meshcore.NewConfig()
	cfg.DNSQueryTimeout = 30 * time.Millisecond
	loop := eventloop.NewLoop(deferq.New())
	selector := func(iface string) (string, bool) { return "2001:db8::53:53", true }
	r := NewResolver(cfg, NewPrefixRegistry(), sq.Query, selector, loop, nil)

	r.Enqueue(ContextKey{Interface: "eth0", IP: "fe80::1"})
	drainDNSLoop(t, loop, 500*time.Millisecond)

	assert.Empty(t, r.fifo, "timed-out context is popped, not retried")
}

func TestNoServerAvailableDropsContext(t *testing.T) {
	cfg := meshcore.NewConfig()
	loop := eventloop.NewLoop(deferq.New())
	selector := func(iface string) (string, bool) { return "", false }
	sq := &scriptedQuery{}
	r := NewResolver(cfg, NewPrefixRegistry(), sq.Query, selector, loop, nil)

	r.Enqueue(ContextKey{Interface: "eth0", IP: "fe80::1"})
	assert.Empty(t, r.fifo)
	assert.Empty(t, sq.issued, "no query issued when no server is available")
}

func TestEnqueueIsIdempotentPerContext(t *testing.T) {
	cfg := meshcore.NewConfig()
	loop := eventloop.NewLoop(deferq.New())
	selector := func(iface string) (string, bool) { return "", false }
	sq := &scriptedQuery{}
	r := NewResolver(cfg, NewPrefixRegistry(), sq.Query, selector, loop, nil)

	key := ContextKey{Interface: "eth0", IP: "fe80::1"}
	c1 := r.Enqueue(key)
	c2 := r.Enqueue(key)
	assert.Same(t, c1, c2)
}
