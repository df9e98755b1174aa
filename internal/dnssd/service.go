// SPDX-License-Identifier: GPL-3.0-or-later
//
// Grounded on: _examples/original_source/include/oonf/generic/dns_sd/dns_sd.h
// (struct dns_sd_service / dns_sd_service_key).
//

package dnssd

import "net"

// serviceKey is a context-scoped service identity: target hostname plus
// the prefix it was discovered under.
type serviceKey struct {
	target string
	prefix *Prefix
}

// Service is one resolved SRV record, harvested with any A/AAAA
// addresses returned alongside it.
type Service struct {
	Target   string
	Prefix   *Prefix
	Port     uint16
	Weight   uint16
	Priority uint16
	IPv4     net.IP
	IPv6     net.IP
}

// upsertService inserts or returns the existing service for (target,
// prefix) within c.
func (c *Context) upsertService(target string, prefix *Prefix) *Service {
	key := serviceKey{target: target, prefix: prefix}
	if s, ok := c.services[key]; ok {
		return s
	}
	s := &Service{Target: target, Prefix: prefix}
	c.services[key] = s
	return s
}

// Services returns every resolved service in c.
func (c *Context) Services() []*Service {
	out := make([]*Service, 0, len(c.services))
	for _, s := range c.services {
		out = append(out, s)
	}
	return out
}
