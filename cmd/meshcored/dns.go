// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"fmt"

	"github.com/bassosimone/dnscodec"
	"github.com/miekg/dns"

	"github.com/oonf-go/meshcore/internal/dnssd"

	"github.com/oonf-go/meshcore"
)

// newDNSQueryFunc adapts [meshcore.DNSOverUDPConn] into a [dnssd.QueryFunc]:
// it dials a fresh UDP socket to server per query (dnssd already bounds
// one in-flight query process-wide, so connection reuse buys nothing),
// runs the exchange through the logged [meshcore.DNSOverUDPConn], and
// converts the miekg/dns question/answer pair dnssd speaks at its seam.
func newDNSQueryFunc(cfg *meshcore.Config, logger meshcore.SLogger) dnssd.QueryFunc {
	connFunc := meshcore.NewDNSOverUDPConnFunc(cfg, logger)
	return func(ctx context.Context, server string, q *dns.Msg) (*dns.Msg, error) {
		rawConn, err := cfg.Dialer.DialContext(ctx, "udp", server)
		if err != nil {
			return nil, fmt.Errorf("dnssd: dial %s: %w", server, err)
		}
		defer rawConn.Close()

		udpConn, err := connFunc.Call(ctx, rawConn)
		if err != nil {
			return nil, err
		}

		question := q.Question[0]
		query := dnscodec.NewQuery(question.Name, question.Qtype)
		resp, err := udpConn.Exchange(ctx, query)
		if err != nil {
			return nil, err
		}
		return dnscodecResponseToMsg(q, resp), nil
	}
}

// dnscodecResponseToMsg adapts a [dnscodec.Response] back into the
// [*dns.Msg] shape dnssd's PTR/SRV handling parses answers out of.
func dnscodecResponseToMsg(query *dns.Msg, resp *dnscodec.Response) *dns.Msg {
	msg := new(dns.Msg)
	msg.SetReply(query)
	msg.Answer = resp.Answer
	msg.Extra = resp.Extra
	return msg
}
