// SPDX-License-Identifier: GPL-3.0-or-later
//
// Grounded on: _examples/original_source/src/base/os_linux/os_system_linux.c
// (multicast group membership via NETLINK_ADD_MEMBERSHIP, lines 307-318) and
// the kernel's rtnetlink(7)/if_addr.h wire layout for RTM_NEWNEIGH/RTM_DELNEIGH.
//

package netlink

import "encoding/binary"

// ProtoRoute is NETLINK_ROUTE, the protocol number neighbor, route and link
// tables are served on.
const ProtoRoute = 0

// Neighbor-table message types and the multicast group that fans them out,
// as used by RTM_GETNEIGH/RTM_NEWNEIGH/RTM_DELNEIGH on a NETLINK_ROUTE socket.
const (
	RTMNewNeigh uint16 = 28
	RTMDelNeigh uint16 = 29

	// RTNLGRPNeigh is the group number passed to NETLINK_ADD_MEMBERSHIP to
	// receive neighbor-table change notifications.
	RTNLGRPNeigh uint32 = 3
)

// Neighbor attribute types carried after the fixed ndmsg header.
const (
	ndaDst    uint16 = 1
	ndaLLAddr uint16 = 2
)

// ndmsgLen is sizeof(struct ndmsg): family, pad1, pad2, ifindex, state,
// flags, type.
const ndmsgLen = 12

// NeighborUpdate is a decoded RTM_NEWNEIGH/RTM_DELNEIGH notification.
type NeighborUpdate struct {
	IfIndex int32
	IP      []byte
	MAC     []byte
}

// ParseNeighborUpdate decodes the ndmsg plus attribute list carried in an
// RTM_NEWNEIGH/RTM_DELNEIGH body. ok is false if body is too short to hold a
// complete ndmsg.
func ParseNeighborUpdate(body []byte) (upd NeighborUpdate, ok bool) {
	if len(body) < ndmsgLen {
		return NeighborUpdate{}, false
	}
	upd.IfIndex = int32(binary.LittleEndian.Uint32(body[4:8]))

	attrs := body[ndmsgLen:]
	for len(attrs) >= 4 {
		rtaLen := binary.LittleEndian.Uint16(attrs[0:2])
		rtaType := binary.LittleEndian.Uint16(attrs[2:4])
		if int(rtaLen) < 4 || int(rtaLen) > len(attrs) {
			break
		}
		payload := attrs[4:rtaLen]
		switch rtaType {
		case ndaDst:
			upd.IP = append([]byte(nil), payload...)
		case ndaLLAddr:
			upd.MAC = append([]byte(nil), payload...)
		}
		// rtattr payloads are padded to a 4-byte boundary.
		advance := (int(rtaLen) + 3) &^ 3
		if advance > len(attrs) {
			break
		}
		attrs = attrs[advance:]
	}
	return upd, true
}
