// SPDX-License-Identifier: GPL-3.0-or-later
//
// Grounded on: _examples/original_source/src/base/os_linux/os_system_linux.c
// (_add_protocol, os_system_linux_netlink_send, _send_netlink_messages,
// _netlink_handler, _find_matching_message, _cb_handle_netlink_timeout).
//

// Package netlink implements the netlink multiplexer: one raw socket per
// protocol, seq-correlated request/reply tracking, dump-isolated send
// batching, and multicast fan-out to registered handlers.
package netlink

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/oonf-go/meshcore/internal/deferq"
	"github.com/oonf-go/meshcore/internal/errclass"
	"github.com/oonf-go/meshcore/internal/eventloop"

	"github.com/oonf-go/meshcore"
)

// Tuning constants mirroring NETLINK_MESSAGE_BLOCK_SIZE and a 32-iovec
// send batch (31 real messages plus a trailing DONE).
const (
	maxBatchBytes    = 4096
	maxBatchMessages = 31
	ackTimeout       = 2 * time.Second
)

// rawSocket abstracts a single protocol's underlying netlink socket so
// the multiplexer's framing/batching/correlation logic can be tested
// without a kernel. Send must return [ErrWouldBlock] when the socket would
// block.
type rawSocket interface {
	Send(b []byte) error
	Receive(buf []byte) (n int, err error)
	JoinGroup(group uint32) error
	Close() error
}

// socketFactory opens a rawSocket bound to the given netlink protocol
// number. Overridden by tests; production code uses the factory returned
// by [NewLinuxSocketFactory] (socket_linux.go), which on non-Linux
// platforms (socket_other.go) always fails with
// [errclass.ErrUnsupportedPlatform].
type socketFactory func(proto int) (rawSocket, error)

// ErrWouldBlock is returned by a [rawSocket]'s Send when the kernel
// socket buffer is full; the multiplexer reverts the batch instead of
// reporting an error to its messages.
var ErrWouldBlock = errors.New("netlink: send would block")

type protoSocket struct {
	proto        int
	sock         rawSocket
	portID       uint32
	seq          uint32
	buffered     []*Message
	sent         []*Message
	handlers     []*Handler
	joinedGroups map[uint32]bool
	stopTimer    func() bool
}

// Mux is the single runtime handle coordinating every protocol socket.
type Mux struct {
	cfg       *meshcore.Config
	logger    meshcore.SLogger
	loop      *eventloop.Loop
	deferred  *deferq.Queue
	newSocket socketFactory
	instance  uint32
	sockets   map[int]*protoSocket
}

// NewMux returns a [*Mux] driven by loop and using factory to open raw
// protocol sockets.
func NewMux(cfg *meshcore.Config, logger meshcore.SLogger, loop *eventloop.Loop, deferred *deferq.Queue, factory socketFactory) *Mux {
	if logger == nil {
		logger = meshcore.DefaultSLogger()
	}
	return &Mux{
		cfg:       cfg,
		logger:    logger,
		loop:      loop,
		deferred:  deferred,
		newSocket: factory,
		sockets:   make(map[int]*protoSocket),
	}
}

// AttachHandler registers h to receive multicast messages of the types
// it subscribes to on protocol proto, opening the protocol's socket on
// first use and joining every multicast group h requests that the
// socket has not already joined. Joining a group is fatal for this
// handler: if any join fails, h is not attached and the first error is
// returned, leaving already-attached handlers and their groups intact.
func (m *Mux) AttachHandler(proto int, h *Handler) error {
	ps, ok := m.sockets[proto]
	opened := false
	if !ok {
		sock, err := m.newSocket(proto)
		if err != nil {
			return fmt.Errorf("netlink: open protocol %d: %w", proto, err)
		}
		ps = &protoSocket{
			proto:        proto,
			sock:         sock,
			portID:       m.nextPortID(),
			seq:          0,
			joinedGroups: make(map[uint32]bool),
		}
		m.sockets[proto] = ps
		opened = true
	}
	for _, g := range h.MulticastGroups {
		if ps.joinedGroups[g] {
			continue
		}
		if err := ps.sock.JoinGroup(g); err != nil {
			if opened {
				ps.sock.Close()
				delete(m.sockets, proto)
			}
			return fmt.Errorf("netlink: join multicast group %d on protocol %d: %w", g, proto, err)
		}
		ps.joinedGroups[g] = true
	}
	ps.handlers = append(ps.handlers, h)
	return nil
}

// DetachHandler removes the handler named name from protocol proto.
func (m *Mux) DetachHandler(proto int, name string) {
	ps, ok := m.sockets[proto]
	if !ok {
		return
	}
	for i, h := range ps.handlers {
		if h.Name == name {
			ps.handlers = append(ps.handlers[:i], ps.handlers[i+1:]...)
			return
		}
	}
}

// nextPortID mirrors (getpid() & ((1<<22)-1)) + (socket_id << 22): a
// per-process-instance unique port id without calling bind(0) roulette.
func (m *Mux) nextPortID() uint32 {
	id := m.instance
	m.instance++
	const pidMask = (1 << 22) - 1
	return uint32(os.Getpid())&pidMask + (id << 22)
}

// Send enqueues msg for protocol proto, assigning it a fresh 31-bit
// sequence number (never zero), and flushes at once if nothing was
// buffered or in flight.
func (m *Mux) Send(proto int, msg *Message) error {
	ps, ok := m.sockets[proto]
	if !ok {
		return fmt.Errorf("netlink: protocol %d has no attached socket", proto)
	}

	ps.seq = (ps.seq + 1) & 0x7FFFFFFF
	if ps.seq == 0 {
		ps.seq = 1
	}
	msg.seq = ps.seq
	msg.Flags |= FlagRequest

	wasIdle := len(ps.buffered) == 0 && len(ps.sent) == 0
	ps.buffered = append(ps.buffered, msg)
	if wasIdle {
		m.flush(ps)
	}
	return nil
}

// flush pulls a batch of buffered messages bounded by maxBatchMessages
// and maxBatchBytes off the head of ps.buffered, framing them as a
// single NLM_F_MULTI transmission terminated by a DONE trailer when more
// than one message is batched, and sends it. Nothing is sent while a
// previous batch is still in flight. A dump message always travels alone
// in its batch. On a transient send failure the batch is reverted to
// the head of ps.buffered, unaltered, so the next flush attempt retries
// the exact same messages in the exact same order.
func (m *Mux) flush(ps *protoSocket) {
	for len(ps.buffered) > 0 && len(ps.sent) == 0 {
		batch, rest := m.takeBatch(ps.buffered)
		wire := m.frameBatch(ps, batch)

		err := ps.sock.Send(wire)
		if err != nil {
			if errors.Is(err, ErrWouldBlock) {
				ps.buffered = append(batch, rest...)
				return
			}
			for _, msg := range batch {
				m.reportError(msg, err)
			}
			ps.buffered = rest
			continue
		}

		ps.buffered = rest
		ps.sent = append(ps.sent, batch...)
		m.armAckTimer(ps)
	}
}

func (m *Mux) takeBatch(buffered []*Message) (batch, rest []*Message) {
	used := 0
	for i, msg := range buffered {
		if i >= maxBatchMessages || (msg.Dump && i > 0) {
			break
		}
		size := headerLen + len(msg.Body)
		if i > 0 && used+size > maxBatchBytes {
			break
		}
		batch = append(batch, msg)
		used += size
		if msg.Dump {
			break
		}
	}
	return batch, buffered[len(batch):]
}

func (m *Mux) frameBatch(ps *protoSocket, batch []*Message) []byte {
	var wire []byte
	multi := len(batch) > 1
	for _, msg := range batch {
		flags := msg.Flags
		if multi {
			flags |= FlagMulti
		}
		wire = append(wire, EncodeHeader(msg.Type, flags, msg.seq, ps.portID, msg.Body)...)
	}
	if multi {
		wire = append(wire, EncodeHeader(MsgDone, FlagMulti, 0, ps.portID, nil)...)
	}
	return wire
}

func (m *Mux) reportError(msg *Message, err error) {
	msg.result = -1
	if msg.OnError != nil {
		msg.OnError(fmt.Errorf("netlink: send: %w", err))
	}
}

func (m *Mux) armAckTimer(ps *protoSocket) {
	if ps.stopTimer != nil || m.loop == nil {
		return
	}
	ps.stopTimer = m.loop.AfterFunc(ackTimeout, func() {
		ps.stopTimer = nil
		timedOut := ps.sent
		ps.sent = nil
		for _, msg := range timedOut {
			if msg.OnError != nil {
				msg.OnError(fmt.Errorf("%w", errclass.ErrTimeout))
			}
		}
		m.flush(ps)
	})
}

// OnReadable parses one or more complete netlink frames out of data
// received on protocol proto's socket and dispatches them: NOOP is
// skipped, DONE/ERROR complete or fail the matching in-flight request
// (sharing one exit path when ERROR carries errno 0, per the multiplexer's
// design), and any other type is treated as dump response data only if
// it matches an in-flight dump request's sequence number and carries
// this socket's own port id in the header; everything else (no match,
// a foreign port id, or a match against a non-dump request) is instead
// multicast to every handler subscribed to that wire type.
func (m *Mux) OnReadable(proto int, data []byte) {
	ps, ok := m.sockets[proto]
	if !ok {
		return
	}
	buf := data
	for len(buf) > 0 {
		hdr, ok := decodeHeader(buf)
		if !ok {
			return
		}
		m.dispatch(ps, hdr)
		buf = buf[hdr.Len:]
	}
	if len(ps.sent) == 0 && ps.stopTimer != nil {
		ps.stopTimer()
		ps.stopTimer = nil
	}
	if len(ps.buffered) > 0 {
		m.flush(ps)
	}
}

func (m *Mux) dispatch(ps *protoSocket, hdr decodedHeader) {
	switch hdr.Type {
	case MsgNoop:
		return
	case MsgDone:
		if msg, idx := findBySeq(ps.sent, hdr.Seq); idx >= 0 && msg.Dump {
			ps.sent = removeAt(ps.sent, idx)
			msg.result = 0
			if msg.OnDone != nil {
				msg.OnDone()
			}
		}
	case MsgError:
		m.dispatchError(ps, hdr)
	default:
		if msg, idx := findBySeq(ps.sent, hdr.Seq); idx >= 0 && hdr.PID == ps.portID && msg.Dump {
			if msg.OnResponse != nil {
				msg.OnResponse(hdr.Body)
			}
			return
		}
		for _, h := range ps.handlers {
			if h.wants(hdr.Type) && h.OnMulticast != nil {
				h.OnMulticast(hdr.Type, hdr.Body)
			}
		}
	}
}

// dispatchError handles a NLMSG_ERROR frame: its body is a 4-byte signed
// errno followed by the nlmsghdr of the request it replies to. errno 0
// is an ACK (success); this shares its exit path with DONE, per the
// multiplexer's documented unification of the two.
func (m *Mux) dispatchError(ps *protoSocket, hdr decodedHeader) {
	if len(hdr.Body) < 4+headerLen {
		return
	}
	errno := int32(binary.LittleEndian.Uint32(hdr.Body[0:4]))
	embeddedSeq := binary.LittleEndian.Uint32(hdr.Body[4+8 : 4+12])

	msg, idx := findBySeq(ps.sent, embeddedSeq)
	if idx < 0 {
		return
	}
	ps.sent = removeAt(ps.sent, idx)

	if errno == 0 {
		msg.result = 0
		if msg.OnDone != nil {
			msg.OnDone()
		}
		return
	}
	msg.result = int(-errno)
	if msg.OnError != nil {
		msg.OnError(fmt.Errorf("%w: errno %d", errclass.ErrProtocol, -errno))
	}
}

func findBySeq(list []*Message, seq uint32) (*Message, int) {
	for i, msg := range list {
		if msg.seq == seq {
			return msg, i
		}
	}
	return nil, -1
}

func removeAt(list []*Message, idx int) []*Message {
	return append(list[:idx], list[idx+1:]...)
}

// Serve spawns the goroutine that blocks reading protocol proto's raw
// socket and posts each datagram to the event loop as an [Mux.OnReadable]
// call, keeping all message parsing and correlation on the loop's single
// goroutine. It returns immediately; the goroutine exits when Receive
// returns an error (typically because [Mux.Close] closed the socket).
func (m *Mux) Serve(proto int) {
	ps, ok := m.sockets[proto]
	if !ok {
		return
	}
	go func() {
		buf := make([]byte, maxBatchBytes)
		for {
			n, err := ps.sock.Receive(buf)
			if err != nil {
				return
			}
			data := append([]byte(nil), buf[:n]...)
			m.loop.Post(func() { m.OnReadable(proto, data) })
		}
	}()
}

// Close closes every protocol socket and cancels outstanding ack timers.
func (m *Mux) Close() error {
	var firstErr error
	for _, ps := range m.sockets {
		if ps.stopTimer != nil {
			ps.stopTimer()
		}
		if err := ps.sock.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
