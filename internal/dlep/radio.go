// SPDX-License-Identifier: GPL-3.0-or-later
//
// Grounded on: _examples/original_source/src/subsystems/dlep/dlep_base_radio.c
// (the signal dispatch table, neighbor-changed policy, proxied-destination
// filtering, and per-neighbor/per-session timers).
//

package dlep

import (
	"encoding/binary"
	"time"
)

// handleSignal dispatches one decoded inbound signal per the radio
// core's signal table.
func (s *Session) handleSignal(sig Signal) {
	switch sig.ID {
	case SignalPeerDiscovery:
		if s.phase == PhaseDiscovery {
			s.send(SignalPeerOffer, s.connPointTLVs())
		}
	case SignalPeerInitialization:
		s.handlePeerInitialization(sig)
	case SignalPeerUpdate:
		s.send(SignalPeerUpdateAck, nil)
	case SignalPeerUpdateAck:
		// status recorded implicitly: nothing else to do without a
		// pending update request to correlate against.
	case SignalPeerTermination:
		s.send(SignalPeerTerminationAck, nil)
		s.phase = PhaseTerminated
		s.release()
	case SignalPeerTerminationAck:
		s.release()
	case SignalDestinationUp:
		s.handleDestinationEcho(sig, SignalDestinationUpAck)
	case SignalDestinationUpAck:
		s.handleDestinationUpAck(sig)
	case SignalDestinationDown:
		s.handleDestinationEcho(sig, SignalDestinationDownAck)
	case SignalDestinationDownAck:
		s.handleDestinationDownAck(sig)
	case SignalDestinationUpdate:
		// inbound DESTINATION_UPDATE is a no-op for the radio core.
	case SignalHeartbeat:
		// liveness already recorded by Feed's watchdog reset.
	case SignalLinkCharReq:
		// no-op: link characteristics negotiation is out of scope.
	}
}

func (s *Session) connPointTLVs() []TLV {
	var tlvs []TLV
	if s.cfg.IPv4ConnPoint != nil {
		tlvs = append(tlvs, IPv4ConnPointTLV(s.cfg.IPv4ConnPoint.Addr, s.cfg.IPv4ConnPoint.Port))
	}
	if s.cfg.IPv6ConnPoint != nil {
		tlvs = append(tlvs, IPv6ConnPointTLV(s.cfg.IPv6ConnPoint.Addr, s.cfg.IPv6ConnPoint.Port))
	}
	return tlvs
}

func (s *Session) handlePeerInitialization(sig Signal) {
	hb, ok := sig.Find(TLVHeartbeatInterval)
	if !ok || len(hb.Value) < 4 {
		s.logger.Warn("dlep: PEER_INITIALIZATION missing mandatory heartbeat TLV", "span", s.spanID)
		s.Terminate()
		return
	}
	millis := binary.BigEndian.Uint32(hb.Value)
	s.remoteHeartbeat = time.Duration(millis) * time.Millisecond

	var tlvs []TLV
	tlvs = append(tlvs, HeartbeatTLV(uint32(s.cfg.LocalHeartbeat.Milliseconds())))
	for _, m := range DefaultMetrics() {
		tlvs = append(tlvs, metricTLV(m))
	}
	if len(s.cfg.ExtensionsSupport) > 0 {
		tlvs = append(tlvs, ExtensionsSupportedTLV(s.cfg.ExtensionsSupport))
	}
	if s.cfg.PeerType != "" {
		tlvs = append(tlvs, TLV{Type: TLVPeerType, Value: []byte(s.cfg.PeerType)})
	}
	s.send(SignalPeerInitializationAck, tlvs)

	s.phase = PhaseInitialized
	s.startLocalHeartbeat()
	s.resetRemoteWatchdog()

	for _, n := range s.neighbors {
		if s.filteredOut(n) {
			continue
		}
		s.emitDestinationUp(n)
	}
}

func metricTLV(m Metric) TLV {
	v := make([]byte, 8)
	binary.BigEndian.PutUint64(v, m.Value)
	return TLV{Type: m.TLV, Value: v}
}

// filteredOut applies the proxied-destination filter: a proxied neighbor
// is dropped unless the session opted in to proxied destinations.
func (s *Session) filteredOut(n *LocalNeighbor) bool {
	return n.Proxied && !s.cfg.AllowProxied
}

// handleDestinationEcho answers an inbound DESTINATION_UP/_DOWN with the
// matching ack, echoing the same MAC TLV.
func (s *Session) handleDestinationEcho(sig Signal, ackID uint16) {
	mt, ok := sig.Find(TLVMACAddress)
	if !ok {
		s.logger.Warn("dlep: destination signal missing MAC TLV", "span", s.spanID)
		return
	}
	s.send(ackID, []TLV{{Type: TLVMACAddress, Value: mt.Value}})
}

func (s *Session) handleDestinationUpAck(sig Signal) {
	mt, ok := sig.Find(TLVMACAddress)
	if !ok {
		return
	}
	n, ok := s.neighbors[macKey(mt.Value)]
	if !ok || n.State != NeighborUpSent {
		return
	}
	n.State = NeighborUpAcked
	if n.stopTimer != nil {
		n.stopTimer()
		n.stopTimer = nil
	}
	if n.Changed {
		n.Changed = false
		s.send(SignalDestinationUpdate, []TLV{{Type: TLVMACAddress, Value: mt.Value}})
	}
}

func (s *Session) handleDestinationDownAck(sig Signal) {
	mt, ok := sig.Find(TLVMACAddress)
	if !ok {
		return
	}
	key := macKey(mt.Value)
	n, ok := s.neighbors[key]
	if !ok || n.State != NeighborDownSent {
		return
	}
	if n.stopTimer != nil {
		n.stopTimer()
	}
	delete(s.neighbors, key)
}

// AddNeighbor registers a newly discovered destination and, once the
// session is initialized, emits DESTINATION_UP for it.
func (s *Session) AddNeighbor(mac []byte, proxied bool) {
	n := newLocalNeighbor(macKey(mac), proxied)
	n.rawMAC = append([]byte(nil), mac...)
	s.neighbors[n.MAC] = n
	if s.phase != PhaseInitialized || s.filteredOut(n) {
		return
	}
	s.emitDestinationUp(n)
}

func (s *Session) emitDestinationUp(n *LocalNeighbor) {
	var tlvs []TLV
	tlvs = append(tlvs, TLV{Type: TLVMACAddress, Value: n.rawMAC})
	for _, m := range DefaultMetrics() {
		tlvs = append(tlvs, metricTLV(m))
	}
	s.send(SignalDestinationUp, tlvs)
	n.State = NeighborUpSent
	s.armAckTimer(n)
}

func (s *Session) armAckTimer(n *LocalNeighbor) {
	if s.loop == nil {
		return
	}
	if n.stopTimer != nil {
		n.stopTimer()
	}
	n.stopTimer = s.loop.AfterFunc(2*s.cfg.LocalHeartbeat, func() {
		// destination timeout: drop silently, peer assumed unreachable.
		delete(s.neighbors, n.MAC)
	})
}

// RemoveNeighbor reports a destination going away. If the session is
// initialized and the neighbor is not filtered out, emits
// DESTINATION_DOWN and arms its ack timer; otherwise it is dropped
// silently.
func (s *Session) RemoveNeighbor(mac []byte) {
	key := macKey(mac)
	n, ok := s.neighbors[key]
	if !ok {
		return
	}
	if s.phase != PhaseInitialized || s.filteredOut(n) {
		delete(s.neighbors, key)
		return
	}
	s.send(SignalDestinationDown, []TLV{{Type: TLVMACAddress, Value: n.rawMAC}})
	n.State = NeighborDownSent
	s.armAckTimer(n)
}

// ChangeNeighbor applies the neighbor-changed policy for mac:
//   - UP_SENT: sets the sticky Changed flag; no emission (avoids racing
//     the pending ack).
//   - UP_ACKED: emits DESTINATION_UPDATE immediately and clears Changed.
//   - any DOWN/IDLE state: treated as a fresh add — emits DESTINATION_UP,
//     transitions to UP_SENT, arms the ack timer, clears Changed.
func (s *Session) ChangeNeighbor(mac []byte) {
	key := macKey(mac)
	n, ok := s.neighbors[key]
	if !ok || s.filteredOut(n) {
		return
	}
	switch n.State {
	case NeighborUpSent:
		n.Changed = true
	case NeighborUpAcked:
		s.send(SignalDestinationUpdate, []TLV{{Type: TLVMACAddress, Value: n.rawMAC}})
		n.Changed = false
	default:
		n.Changed = false
		s.emitDestinationUp(n)
	}
}
