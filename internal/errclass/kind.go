// SPDX-License-Identifier: GPL-3.0-or-later

package errclass

import "errors"

// Kind is a coarse error category used by the mesh-routing core's error
// handling design. Nothing maps an error to a Kind automatically: errors
// carry a category only where a package wraps one of the sentinels below.
type Kind int

const (
	// KindTransient covers EAGAIN/EWOULDBLOCK-style retryable I/O
	// conditions: the caller should try again later, not give up.
	KindTransient Kind = iota

	// KindTransport covers send/recv syscall failures that are not
	// transient: the socket or connection itself is unusable.
	KindTransport

	// KindProtocol covers a well-formed reply that signals failure at
	// the protocol level: a kernel NLMSG_ERROR with a nonzero errno, a
	// malformed DLEP TLV, a missing mandatory TLV.
	KindProtocol

	// KindCapability covers a request that is individually well-formed
	// but cannot be satisfied given the registry's current state: a
	// class extension registered after the class already allocated
	// instances, or a 65th distinct DNS-SD prefix.
	KindCapability

	// KindCorruption covers a guard-word mismatch detected by a
	// debug-mode class allocation. Corruption is never returned as an
	// error; it panics, matching an abort-on-corruption design.
	KindCorruption

	// KindTimeout covers a context deadline or an ack-timer firing
	// before the expected reply arrived.
	KindTimeout
)

// String returns the lower-case name of the Kind, suitable for a
// structured log field.
func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindCapability:
		return "capability"
	case KindCorruption:
		return "corruption"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Sentinel errors for the KindProtocol, KindCapability, and KindTimeout
// categories. Where a package wraps one of these with %w, callers can use
// errors.Is regardless of the surrounding message. Package netlink wraps
// ErrProtocol and ErrTimeout in the errors it reports to a message, and its
// non-Linux socket factory returns ErrUnsupportedPlatform; class, dlep, and
// dnssd wrap none of them.
var (
	// ErrProtocol marks a well-formed reply that fails at the protocol
	// level (netlink NLMSG_ERROR with nonzero errno, malformed or
	// missing-mandatory DLEP TLV).
	ErrProtocol = errors.New("errclass: protocol-level failure")

	// ErrCapability marks a request that cannot be satisfied given
	// current registry state (late extension registration, exhausted
	// DNS-SD prefix flags).
	ErrCapability = errors.New("errclass: capability mismatch")

	// ErrTimeout marks an ack-timer or context deadline firing before
	// the expected reply arrived.
	ErrTimeout = errors.New("errclass: timed out waiting for reply")

	// ErrUnsupportedPlatform marks an operation that requires a
	// platform-specific backend (raw netlink sockets) not available
	// on the current GOOS.
	ErrUnsupportedPlatform = errors.New("errclass: unsupported platform")
)
