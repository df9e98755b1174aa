// SPDX-License-Identifier: GPL-3.0-or-later
//
// Grounded on: _examples/original_source/src/subsystems/dlep/dlep_session.c
// (signal buffer accumulation, next-expected-signal state) and
// _examples/bassosimone-nop/cancelwatch.go (binding a connection's
// lifetime to a cancellation context via the event loop).
//

package dlep

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/oonf-go/meshcore/internal/errclass"
	"github.com/oonf-go/meshcore/internal/eventloop"

	"github.com/oonf-go/meshcore"
)

// Phase is the session's coarse handshake progress.
type Phase int

const (
	PhaseDiscovery Phase = iota
	PhaseInitialized
	PhaseTerminated
)

// Config configures one radio-side [Session].
type Config struct {
	LocalHeartbeat    time.Duration
	AllowProxied      bool
	PeerType          string
	ExtensionsSupport []uint16
	IPv4ConnPoint     *struct {
		Addr [4]byte
		Port uint16
	}
	IPv6ConnPoint *struct {
		Addr [16]byte
		Port uint16
	}
}

// NewConfig returns sensible per-session defaults: a 5s local heartbeat,
// proxied destinations disabled, no advertised extensions.
func NewConfig() *Config {
	return &Config{LocalHeartbeat: 5 * time.Second}
}

// Session is the radio-side DLEP session state for one TCP connection.
type Session struct {
	cfg    *Config
	conn   io.Writer
	loop   *eventloop.Loop
	logger meshcore.SLogger

	spanID             string
	phase              Phase
	remoteHeartbeat    time.Duration
	neighbors          map[string]*LocalNeighbor
	pending            []byte
	stopLocalHeartbeat func() bool
	stopRemoteWatchdog func() bool
	onTerminate        func()
}

// NewSession returns a [*Session] writing framed signals to conn and
// scheduling timers on loop. The session is assigned a [meshcore.NewSpanID]
// so every log line it emits can be correlated across its lifetime,
// independent of the underlying TCP connection's own identity.
func NewSession(cfg *Config, conn io.Writer, loop *eventloop.Loop, logger meshcore.SLogger) *Session {
	if cfg == nil {
		cfg = NewConfig()
	}
	if logger == nil {
		logger = meshcore.DefaultSLogger()
	}
	return &Session{
		cfg:       cfg,
		conn:      conn,
		loop:      loop,
		logger:    logger,
		spanID:    meshcore.NewSpanID(),
		neighbors: make(map[string]*LocalNeighbor),
	}
}

// SpanID returns the session's correlation id.
func (s *Session) SpanID() string { return s.spanID }

// send encodes and writes a signal, logging (not propagating) write
// failures: a transport failure on the session's own outbound path is a
// session-level event, not something a caller-supplied callback observes
// directly.
func (s *Session) send(id uint16, tlvs []TLV) {
	wire := EncodeSignal(id, tlvs)
	if _, err := s.conn.Write(wire); err != nil {
		s.logger.Warn("dlep: signal write failed", "span", s.spanID, "signal", id, "category", errclass.New(err))
	}
}

// Feed appends newly received bytes and processes every complete signal
// frame they contain, retaining any trailing partial frame for the next
// call. A complete frame whose TLVs are malformed is logged and skipped.
func (s *Session) Feed(data []byte) {
	s.pending = append(s.pending, data...)
	s.resetRemoteWatchdog()
	for {
		sig, n, err := DecodeSignal(s.pending)
		if err != nil {
			if len(s.pending) < signalHeaderLen {
				return // incomplete frame; wait for more bytes
			}
			total := signalHeaderLen + int(binary.BigEndian.Uint16(s.pending[2:4]))
			if len(s.pending) < total {
				return // incomplete frame; wait for more bytes
			}
			s.logger.Warn("dlep: dropping malformed signal", "span", s.spanID, "error", err)
			s.pending = s.pending[total:]
			continue
		}
		s.pending = s.pending[n:]
		s.handleSignal(sig)
	}
}

// resetRemoteWatchdog restarts the 2x-remote-heartbeat timer that
// terminates the session on silence. It is a no-op before the remote
// heartbeat interval is known (pre-PEER_INITIALIZATION).
func (s *Session) resetRemoteWatchdog() {
	if s.remoteHeartbeat == 0 || s.loop == nil {
		return
	}
	if s.stopRemoteWatchdog != nil {
		s.stopRemoteWatchdog()
	}
	s.stopRemoteWatchdog = s.loop.AfterFunc(2*s.remoteHeartbeat, func() {
		s.logger.Warn("dlep: remote heartbeat watchdog expired", "span", s.spanID)
		s.Terminate()
	})
}

func (s *Session) startLocalHeartbeat() {
	if s.loop == nil || s.cfg.LocalHeartbeat == 0 {
		return
	}
	var arm func()
	arm = func() {
		s.stopLocalHeartbeat = s.loop.AfterFunc(s.cfg.LocalHeartbeat, func() {
			if s.phase == PhaseTerminated {
				return // fired before Terminate stopped the timer
			}
			s.send(SignalHeartbeat, nil)
			arm()
		})
	}
	arm()
}

// Terminate emits PEER_TERMINATION and transitions to [PhaseTerminated].
// Resources are released when the peer's PEER_TERMINATION_ACK arrives, or
// immediately if the session was not yet initialized.
func (s *Session) Terminate() {
	if s.phase == PhaseTerminated {
		return
	}
	wasInitialized := s.phase == PhaseInitialized
	s.send(SignalPeerTermination, nil)
	s.phase = PhaseTerminated
	if s.stopLocalHeartbeat != nil {
		s.stopLocalHeartbeat()
	}
	if s.stopRemoteWatchdog != nil {
		s.stopRemoteWatchdog()
	}
	if !wasInitialized {
		s.release()
	}
}

// release runs the session's terminate callback, if any, once torn down.
func (s *Session) release() {
	if s.onTerminate != nil {
		s.onTerminate()
	}
}

// OnTerminate registers fn to run once the session's resources should be
// released: when PEER_TERMINATION or PEER_TERMINATION_ACK arrives from the
// peer, or when [Session.Terminate] is called before initialization. A
// watchdog-driven termination of an initialized session waits for the
// peer's ack like any other.
func (s *Session) OnTerminate(fn func()) {
	s.onTerminate = fn
}

// Dump returns a snapshot of every known neighbor, for the dlepinfo admin
// accessor (telnet transport itself is out of scope).
func (s *Session) Dump() []LocalNeighbor {
	out := make([]LocalNeighbor, 0, len(s.neighbors))
	for _, n := range s.neighbors {
		out = append(out, *n)
	}
	return out
}

// Phase reports the session's current handshake phase.
func (s *Session) Phase() Phase { return s.phase }

func macKey(mac []byte) string {
	return fmt.Sprintf("%x", mac)
}
