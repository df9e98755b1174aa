// SPDX-License-Identifier: GPL-3.0-or-later

package meshcore

import (
	"net"
	"time"
)

// Config holds common configuration for meshcore operations and for the
// class, netlink, dlep, and dnssd packages built on top of it.
//
// Pass this to constructor functions to pre-wire dependencies.
// All fields have sensible defaults set by [NewConfig].
type Config struct {
	// Dialer is used by [*ConnectFunc] to dial connections; the meshcored
	// binary also uses it to dial the DNS-SD resolver's UDP connection to
	// the DNS server. DLEP peer connections are accepted, not dialed.
	//
	// Set by [NewConfig] to [*net.Dialer].
	Dialer Dialer

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewConfig] to [DefaultErrClassifier].
	ErrClassifier ErrClassifier

	// TimeNow returns the current time.
	//
	// Set by [NewConfig] to [time.Now].
	TimeNow func() time.Time

	// ClassDebug enables guard-checked debug allocation in package class:
	// every pooled object is sandwiched between magic-word guards that are
	// validated on free, and debug-mode objects are never reused from the
	// free list. Corresponds to the class.debug configuration key.
	//
	// Set by [NewConfig] to false.
	ClassDebug bool

	// DNSQueryTimeout bounds a single in-flight DNS-SD query. Corresponds
	// to the dns_query.timeout configuration key.
	//
	// Set by [NewConfig] to one second.
	DNSQueryTimeout time.Duration

	// DNSSDPrefixes lists the SRV name prefixes the DNS-SD resolver probes
	// for each discovered layer-2 neighbor address (e.g. "_http._tcp").
	// Corresponds to the repeatable dns_sd.prefix configuration key.
	//
	// Set by [NewConfig] to nil (no prefixes configured).
	DNSSDPrefixes []string
}

// NewConfig creates a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Dialer:          &net.Dialer{},
		ErrClassifier:   DefaultErrClassifier,
		TimeNow:         time.Now,
		ClassDebug:      false,
		DNSQueryTimeout: time.Second,
		DNSSDPrefixes:   nil,
	}
}
