// SPDX-License-Identifier: GPL-3.0-or-later
//
// Grounded on: _examples/original_source/src/generic/dns_sd/dns_sd.c
// (dns_sd_add/dns_sd_remove, the 64-bit one-hot flag allocator) and
// _examples/original_source/include/oonf/generic/dns_sd/dns_sd.h
// (DNS_SD_PREFIX_LENGTH / struct dns_sd_prefix).
//

// Package dnssd implements the DNS-SD resolver pump: a single in-flight
// query slot draining a FIFO of per-(interface, peer) contexts, issuing
// reverse-PTR then SRV queries per registered prefix.
package dnssd

import "sync"

// maxPrefixes bounds the one-hot flag space to 64 bits, per the registry's
// wire contract ("registering a 65th distinct prefix returns null").
//
// The original source's allocator loop only scans bits 0..62 (`for
// (i=0;i<63;i++)`) while its exhaustion check tests all 64 bits
// (`_used_flags == ~0ull`): bit 63 can never actually be assigned, so the
// real implementation's usable capacity is 63, not 64. That reads as an
// off-by-one in the loop bound rather than an intentional reservation, so
// this registry scans the full 0..63 range and honors the 64-prefix
// capacity its own boundary test names.
const maxPrefixes = 64

// Prefix is one registered DNS-SD service prefix (e.g. "_http._tcp.").
type Prefix struct {
	Name  string
	flag  uint64
	usage uint32
}

// Flag returns the prefix's one-hot bit within a [Context]'s
// available/unavailable bitmasks.
func (p *Prefix) Flag() uint64 { return p.flag }

// PrefixRegistry is the process-wide allocator of one-hot prefix flags.
type PrefixRegistry struct {
	mu       sync.Mutex
	byName   map[string]*Prefix
	usedBits uint64
}

// NewPrefixRegistry returns an empty registry.
func NewPrefixRegistry() *PrefixRegistry {
	return &PrefixRegistry{byName: make(map[string]*Prefix)}
}

// Add registers name, returning its existing [*Prefix] (with incremented
// refcount) if already present, or nil if all 64 flag bits are taken.
func (r *PrefixRegistry) Add(name string) *Prefix {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.byName[name]; ok {
		p.usage++
		return p
	}
	if r.usedBits == ^uint64(0) {
		return nil
	}
	for i := 0; i < maxPrefixes; i++ {
		bit := uint64(1) << uint(i)
		if r.usedBits&bit == 0 {
			p := &Prefix{Name: name, flag: bit, usage: 1}
			r.usedBits |= bit
			r.byName[name] = p
			return p
		}
	}
	return nil
}

// Remove decrements p's refcount, releasing its flag bit once it reaches
// zero references.
func (r *PrefixRegistry) Remove(p *Prefix) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.usage > 1 {
		p.usage--
		return
	}
	r.usedBits &^= p.flag
	delete(r.byName, p.Name)
}

// Len reports the number of distinct prefixes currently registered.
func (r *PrefixRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byName)
}
