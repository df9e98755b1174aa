// SPDX-License-Identifier: GPL-3.0-or-later
//
// Grounded on: _examples/original_source/src/subsystems/dlep/dlep_base_radio.c
// (_cb_add_neighbor, _cb_del_neighbor, _cb_change_neighbor,
// _send_destination_up, _handle_destination_up_ack).
//

package dlep

// NeighborState is the local-neighbor lifecycle state.
type NeighborState int

const (
	NeighborIdle NeighborState = iota
	NeighborUpSent
	NeighborUpAcked
	NeighborDownSent
	NeighborDownAcked
)

func (s NeighborState) String() string {
	switch s {
	case NeighborIdle:
		return "IDLE"
	case NeighborUpSent:
		return "UP_SENT"
	case NeighborUpAcked:
		return "UP_ACKED"
	case NeighborDownSent:
		return "DOWN_SENT"
	case NeighborDownAcked:
		return "DOWN_ACKED"
	default:
		return "UNKNOWN"
	}
}

// LocalNeighbor is the radio session's view of one destination MAC.
type LocalNeighbor struct {
	MAC       string // textual EUI-48/EUI-64, used as the table key
	rawMAC    []byte
	State     NeighborState
	Proxied   bool
	Changed   bool // sticky: a change arrived while UP_SENT, replay once acked
	Stats     L2Stats
	stopTimer func() bool
}

// newLocalNeighbor returns a fresh, unset neighbor for mac.
func newLocalNeighbor(mac string, proxied bool) *LocalNeighbor {
	return &LocalNeighbor{MAC: mac, State: NeighborIdle, Proxied: proxied}
}
