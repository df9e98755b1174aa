// SPDX-License-Identifier: GPL-3.0-or-later

// Package meshcore provides the composable connection/logging/error
// primitives shared by the mesh-routing daemon's components: the object
// class registry (package class), the deferred-callback queue (package
// deferq), the event loop (package eventloop), the netlink multiplexer
// (package netlink), the DLEP radio session engine (package dlep), and
// the DNS-SD resolver (package dnssd).
//
// # Core Abstraction
//
// The package is built around a single interface:
//
//	type Func[A, B any] interface {
//		Call(ctx context.Context, input A) (B, error)
//	}
//
// Each Func represents an atomic operation with exactly one success mode
// and one failure mode, letting callers wrap or adapt a transport step
// ([ConnectFunc], [CancelWatchFunc], [DNSOverUDPConnFunc]) without the
// caller needing to know which concrete implementation it is talking to.
// The meshcored binary builds the DNS-SD resolver's query function on
// [DNSOverUDPConnFunc]; DLEP sessions run on TCP connections accepted by
// meshcored itself, not dialed through a Func.
//
// # Available Primitives
//
// Connection establishment:
//   - [ConnectFunc]: dials TCP or UDP endpoints
//   - [CancelWatchFunc]: closes connection on context cancellation
//
// DNS:
//   - [DNSOverUDPConn]: wraps a UDP connection for DNS-over-UDP exchanges
//     (owns the connection); used by package dnssd to issue PTR/SRV/A/AAAA
//     queries against the configured resolver
//   - [DNSExchangeLogContext]: structured logging shared by DNS exchanges,
//     used by [DNSOverUDPConn] for every exchange it performs
//
// Composition utilities:
//   - [FuncAdapter]: wrap a function as a Func for ad-hoc custom behavior
//
// # Connection Lifecycle
//
// Dial operations ([ConnectFunc]) create connections and transfer
// ownership to the next stage on success; on error they close the
// connection. Wrapper types ([DNSOverUDPConn]) OWN their underlying
// connection — the caller must Close() it when done.
//
// # Observability
//
// All primitives support structured logging via [SLogger] (compatible
// with [log/slog]). By default logging is disabled: the zero-value
// logger discards everything, matching the rest of the daemon's
// opt-in-verbosity convention. Error classification is configurable via
// [ErrClassifier]; package [github.com/oonf-go/meshcore/internal/errclass]
// supplies the default, syscall-errno-aware implementation used by
// netlink, dlep, and dnssd.
//
// Use [NewSpanID] to generate a unique, time-ordered identifier (UUIDv7)
// for each session or query, then attach it to the logger with
// [*slog.Logger.With] so every log line for that session/query can be
// correlated.
//
// # Timeout and Context Philosophy
//
// This package is context-transparent: operations never modify the
// context they receive. [CancelWatchFunc] binds a context's lifetime to
// a connection's lifetime.
//
// # Design Boundaries
//
// This package intentionally provides only connection/logging/error
// primitives. Mesh-routing semantics (object pooling, deferred
// callbacks, netlink framing, DLEP signal processing, DNS-SD query
// sequencing) live in the sibling internal packages.
package meshcore
