// SPDX-License-Identifier: GPL-3.0-or-later
//
// Grounded on: _examples/original_source/src/subsystems/dlep/dlep_base_radio.c
// (the PEER_INITIALIZATION_ACK mandatory-metric fill) and
// _examples/original_source/src/subsystems/l2_statistics.c (per-neighbor
// reported stats).
//

package dlep

// Metric identifies one of the mandatory layer-2 network metrics carried
// in a PEER_INITIALIZATION_ACK or a DESTINATION_UP.
type Metric struct {
	TLV   uint16
	Value uint64
}

// DefaultMetrics returns the mandatory metric set written into a fresh
// neighbor's DESTINATION_UP/PEER_INITIALIZATION_ACK.
//
// The original source's mandatory-TLV fill lists TX_MAX_BITRATE and
// RX_BITRATE twice consecutively; that is copy-paste noise from how the
// first-time population loop was written, not a second, distinct metric.
// This implementation reproduces the set once each.
func DefaultMetrics() []Metric {
	return []Metric{
		{TLV: TLVTXMaxBitrate, Value: 0},
		{TLV: TLVRXBitrate, Value: 0},
		{TLV: TLVLatency, Value: 1_000_000},
	}
}

// L2Stats is a per-neighbor layer-2 statistics snapshot, kept separate
// from the mandatory defaults written into a destination's initial
// DESTINATION_UP. No code in this package writes it: a [LocalNeighbor]'s
// Stats stay at their zero values.
type L2Stats struct {
	TXMaxBitrate uint64
	RXBitrate    uint64
	LatencyUsec  uint64
}
