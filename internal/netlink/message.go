// SPDX-License-Identifier: GPL-3.0-or-later
//
// Grounded on: _examples/original_source/src/base/os_linux/os_system_linux.c
// and _examples/other_examples/09737aaa_bamgate-bamgate__internal-tunnel-netlink.go.go
//

package netlink

import "encoding/binary"

// Standard nlmsghdr type values.
const (
	MsgNoop  uint16 = 1
	MsgError uint16 = 2
	MsgDone  uint16 = 3
)

// Standard nlmsghdr flag bits.
const (
	FlagRequest uint16 = 0x01
	FlagMulti   uint16 = 0x02
	FlagAck     uint16 = 0x04
	FlagRoot    uint16 = 0x100
	FlagMatch   uint16 = 0x200
	FlagDump    uint16 = FlagRoot | FlagMatch
)

// headerLen is sizeof(struct nlmsghdr): len, type, flags, seq, pid.
const headerLen = 16

// EncodeHeader writes a 16-byte nlmsghdr into a fresh buffer around body,
// returning the full wire message (header + body).
func EncodeHeader(msgType, flags uint16, seq, pid uint32, body []byte) []byte {
	buf := make([]byte, headerLen+len(body))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(buf)))
	binary.LittleEndian.PutUint16(buf[4:6], msgType)
	binary.LittleEndian.PutUint16(buf[6:8], flags)
	binary.LittleEndian.PutUint32(buf[8:12], seq)
	binary.LittleEndian.PutUint32(buf[12:16], pid)
	copy(buf[16:], body)
	return buf
}

// decodedHeader is a parsed nlmsghdr plus the body bytes following it.
type decodedHeader struct {
	Len   uint32
	Type  uint16
	Flags uint16
	Seq   uint32
	PID   uint32
	Body  []byte
}

// decodeHeader parses the leading nlmsghdr out of buf. ok is false if buf
// does not hold a complete header plus body.
func decodeHeader(buf []byte) (hdr decodedHeader, ok bool) {
	if len(buf) < headerLen {
		return decodedHeader{}, false
	}
	hdr.Len = binary.LittleEndian.Uint32(buf[0:4])
	if int(hdr.Len) < headerLen || int(hdr.Len) > len(buf) {
		return decodedHeader{}, false
	}
	hdr.Type = binary.LittleEndian.Uint16(buf[4:6])
	hdr.Flags = binary.LittleEndian.Uint16(buf[6:8])
	hdr.Seq = binary.LittleEndian.Uint32(buf[8:12])
	hdr.PID = binary.LittleEndian.Uint32(buf[12:16])
	hdr.Body = buf[headerLen:hdr.Len]
	return hdr, true
}

// Message is a single netlink message queued for send, or in flight
// awaiting a reply.
//
// Body is the type-specific fixed header plus attributes, wire-ready;
// Send prepends the nlmsghdr. Exactly one of OnDone/OnError fires for a
// request; OnResponse may fire any number of times first (for a dump).
type Message struct {
	Type  uint16
	Flags uint16
	Body  []byte

	// Dump marks a request as a NLM_F_DUMP request: the multiplexer
	// sends it alone in its own batch and keeps it in flight across
	// multiple responses until a DONE (or a singleton error) arrives.
	Dump bool

	OnResponse func(body []byte)
	OnDone     func()
	OnError    func(err error)

	seq    uint32
	result int
}

// Handler receives multicast messages whose type it subscribes to.
//
// MulticastGroups and MulticastTypes are distinct: Groups are joined on
// the protocol socket itself (so the kernel fans the traffic to this
// process at all), Types filter which of the arriving multicast message
// types this particular handler wants to see. A handler can join a group
// and still only act on a subset of the message types broadcast on it.
type Handler struct {
	Name            string
	MulticastGroups []uint32
	MulticastTypes  map[uint16]bool
	OnMulticast     func(msgType uint16, body []byte)
}

// wants reports whether h subscribes to msgType.
func (h *Handler) wants(msgType uint16) bool {
	if h.MulticastTypes == nil {
		return false
	}
	return h.MulticastTypes[msgType]
}
