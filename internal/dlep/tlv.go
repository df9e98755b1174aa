// SPDX-License-Identifier: GPL-3.0-or-later
//
// Grounded on: _examples/original_source/src/subsystems/dlep/dlep_iana.h
// and _examples/original_source/src/subsystems/dlep/dlep_writer.c/dlep_reader.c
// (signal/TLV framing: 16-bit signal id, 16-bit length, back-to-back
// 16-bit-type/16-bit-length/value TLVs).
//

// Package dlep implements the radio-side half of a DLEP session: signal
// framing, local-neighbor state machine, and the signal-processing table
// driving destination liveness and heartbeat handling.
package dlep

import (
	"encoding/binary"
	"fmt"
)

// Signal ids used by the radio core.
const (
	SignalPeerDiscovery         uint16 = 0
	SignalPeerOffer             uint16 = 1
	SignalPeerInitialization    uint16 = 2
	SignalPeerInitializationAck uint16 = 3
	SignalPeerUpdate            uint16 = 4
	SignalPeerUpdateAck         uint16 = 5
	SignalPeerTermination       uint16 = 6
	SignalPeerTerminationAck    uint16 = 7
	SignalDestinationUp         uint16 = 8
	SignalDestinationUpAck      uint16 = 9
	SignalDestinationDown       uint16 = 10
	SignalDestinationDownAck    uint16 = 11
	SignalDestinationUpdate     uint16 = 12
	SignalHeartbeat             uint16 = 13
	SignalLinkCharReq           uint16 = 14
	SignalLinkCharAck           uint16 = 15
)

// TLV type ids.
const (
	TLVStatus             uint16 = 1
	TLVIPv4ConnPoint      uint16 = 2
	TLVIPv6ConnPoint      uint16 = 3
	TLVPeerType           uint16 = 4
	TLVHeartbeatInterval  uint16 = 5
	TLVExtensionSupported uint16 = 6
	TLVMACAddress         uint16 = 7
	TLVTXMaxBitrate       uint16 = 8
	TLVRXBitrate          uint16 = 9
	TLVLatency            uint16 = 10
)

const signalHeaderLen = 4 // 16-bit id + 16-bit length
const tlvHeaderLen = 4    // 16-bit type + 16-bit length

// TLV is a single decoded type-length-value element.
type TLV struct {
	Type  uint16
	Value []byte
}

// Signal is a decoded DLEP signal: its id plus the ordered TLVs it carries.
type Signal struct {
	ID   uint16
	TLVs []TLV
}

// EncodeSignal serializes id and tlvs into a length-prefixed wire frame.
func EncodeSignal(id uint16, tlvs []TLV) []byte {
	var body []byte
	for _, t := range tlvs {
		body = appendTLV(body, t.Type, t.Value)
	}
	buf := make([]byte, signalHeaderLen+len(body))
	binary.BigEndian.PutUint16(buf[0:2], id)
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(body)))
	copy(buf[signalHeaderLen:], body)
	return buf
}

func appendTLV(dst []byte, typ uint16, value []byte) []byte {
	hdr := make([]byte, tlvHeaderLen)
	binary.BigEndian.PutUint16(hdr[0:2], typ)
	binary.BigEndian.PutUint16(hdr[2:4], uint16(len(value)))
	dst = append(dst, hdr...)
	dst = append(dst, value...)
	return dst
}

// DecodeSignal parses one complete signal frame out of buf, returning the
// decoded signal and the number of bytes it consumed. It returns an error
// if buf does not yet hold a complete frame (the caller should wait for
// more bytes from the stream, not treat this as fatal), and also if a
// complete frame's TLVs are malformed.
func DecodeSignal(buf []byte) (Signal, int, error) {
	if len(buf) < signalHeaderLen {
		return Signal{}, 0, fmt.Errorf("dlep: incomplete signal header")
	}
	id := binary.BigEndian.Uint16(buf[0:2])
	bodyLen := int(binary.BigEndian.Uint16(buf[2:4]))
	total := signalHeaderLen + bodyLen
	if len(buf) < total {
		return Signal{}, 0, fmt.Errorf("dlep: incomplete signal body")
	}
	tlvs, err := decodeTLVs(buf[signalHeaderLen:total])
	if err != nil {
		return Signal{}, 0, fmt.Errorf("dlep: signal %d: %w", id, err)
	}
	return Signal{ID: id, TLVs: tlvs}, total, nil
}

func decodeTLVs(buf []byte) ([]TLV, error) {
	var out []TLV
	for len(buf) > 0 {
		if len(buf) < tlvHeaderLen {
			return nil, fmt.Errorf("truncated TLV header")
		}
		typ := binary.BigEndian.Uint16(buf[0:2])
		l := int(binary.BigEndian.Uint16(buf[2:4]))
		if tlvHeaderLen+l > len(buf) {
			return nil, fmt.Errorf("truncated TLV value (type %d)", typ)
		}
		value := append([]byte(nil), buf[tlvHeaderLen:tlvHeaderLen+l]...)
		out = append(out, TLV{Type: typ, Value: value})
		buf = buf[tlvHeaderLen+l:]
	}
	return out, nil
}

// Find returns the first TLV of type typ in s, and whether it was found.
func (s Signal) Find(typ uint16) (TLV, bool) {
	for _, t := range s.TLVs {
		if t.Type == typ {
			return t, true
		}
	}
	return TLV{}, false
}

// MACBytes encodes mac (6 bytes for EUI-48, 8 for EUI-64) as a MAC TLV.
func MACBytes(mac []byte) TLV {
	return TLV{Type: TLVMACAddress, Value: append([]byte(nil), mac...)}
}

// HeartbeatTLV encodes a heartbeat-interval TLV carrying millis.
func HeartbeatTLV(millis uint32) TLV {
	v := make([]byte, 4)
	binary.BigEndian.PutUint32(v, millis)
	return TLV{Type: TLVHeartbeatInterval, Value: v}
}

// ExtensionsSupportedTLV packs ids as a sequence of 16-bit extension ids.
func ExtensionsSupportedTLV(ids []uint16) TLV {
	v := make([]byte, 2*len(ids))
	for i, id := range ids {
		binary.BigEndian.PutUint16(v[2*i:2*i+2], id)
	}
	return TLV{Type: TLVExtensionSupported, Value: v}
}

// IPv4ConnPointTLV encodes a 4-byte address plus 2-byte port.
func IPv4ConnPointTLV(addr [4]byte, port uint16) TLV {
	v := make([]byte, 6)
	copy(v[0:4], addr[:])
	binary.BigEndian.PutUint16(v[4:6], port)
	return TLV{Type: TLVIPv4ConnPoint, Value: v}
}

// IPv6ConnPointTLV encodes a 16-byte address plus 2-byte port.
func IPv6ConnPointTLV(addr [16]byte, port uint16) TLV {
	v := make([]byte, 18)
	copy(v[0:16], addr[:])
	binary.BigEndian.PutUint16(v[16:18], port)
	return TLV{Type: TLVIPv6ConnPoint, Value: v}
}
