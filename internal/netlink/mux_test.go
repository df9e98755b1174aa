// SPDX-License-Identifier: GPL-3.0-or-later

package netlink

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oonf-go/meshcore/internal/deferq"
	"github.com/oonf-go/meshcore/internal/eventloop"
	"github.com/oonf-go/meshcore"
)

// fakeSocket is a [rawSocket] double recording every transmission so
// tests can inspect exactly what Send batched.
type fakeSocket struct {
	sent    [][]byte
	sendErr error
	closed  bool
	joined  []uint32
	joinErr error
}

func (s *fakeSocket) Send(b []byte) error {
	if s.sendErr != nil {
		err := s.sendErr
		s.sendErr = nil
		return err
	}
	cp := append([]byte(nil), b...)
	s.sent = append(s.sent, cp)
	return nil
}

func (s *fakeSocket) Receive(buf []byte) (int, error) {
	return 0, nil
}

func (s *fakeSocket) JoinGroup(group uint32) error {
	if s.joinErr != nil {
		return s.joinErr
	}
	s.joined = append(s.joined, group)
	return nil
}

func (s *fakeSocket) Close() error {
	s.closed = true
	return nil
}

func newTestMux(t *testing.T, sock *fakeSocket) (*Mux, int) {
	t.Helper()
	cfg := meshcore.NewConfig()
	dq := deferq.New()
	loop := eventloop.NewLoop(dq)
	const proto = 0
	mux := NewMux(cfg, meshcore.DefaultSLogger(), loop, dq, func(int) (rawSocket, error) {
		return sock, nil
	})
	require.NoError(t, mux.AttachHandler(proto, &Handler{Name: "test"}))
	return mux, proto
}

func encodeError(seq uint32, errno int32, pid uint32) []byte {
	body := make([]byte, 4+headerLen)
	binary.LittleEndian.PutUint32(body[0:4], uint32(errno))
	// the embedded original request header; only seq (bytes 8:12) is consulted.
	binary.LittleEndian.PutUint32(body[4+8:4+12], seq)
	return EncodeHeader(MsgError, 0, seq, pid, body)
}

func TestSendAssignsSequenceAndFlushesImmediately(t *testing.T) {
	sock := &fakeSocket{}
	mux, proto := newTestMux(t, sock)

	var done bool
	err := mux.Send(proto, &Message{
		Type:   100,
		OnDone: func() { done = true },
	})
	require.NoError(t, err)
	require.Len(t, sock.sent, 1, "a single non-dump message flushes on its own")
	assert.False(t, done)
}

func TestSkipsSequenceZero(t *testing.T) {
	sock := &fakeSocket{}
	mux, proto := newTestMux(t, sock)
	ps := mux.sockets[proto]
	ps.seq = 0xFFFFFFFF // wraps to 0 on next increment

	require.NoError(t, mux.Send(proto, &Message{Type: 1}))
	assert.NotEqual(t, uint32(0), ps.sent[0].seq)
}

func TestErrorWithZeroErrnoCompletesAsAck(t *testing.T) {
	sock := &fakeSocket{}
	mux, proto := newTestMux(t, sock)

	var done bool
	var gotErr error
	require.NoError(t, mux.Send(proto, &Message{
		Type:    100,
		OnDone:  func() { done = true },
		OnError: func(err error) { gotErr = err },
	}))

	seq := mux.sockets[proto].sent[0].seq
	frame := encodeError(seq, 0, mux.sockets[proto].portID)
	mux.OnReadable(proto, frame)

	assert.True(t, done)
	assert.NoError(t, gotErr)
	assert.Empty(t, mux.sockets[proto].sent, "message is removed from the in-flight list")
}

func TestErrorWithNonzeroErrnoReportsError(t *testing.T) {
	sock := &fakeSocket{}
	mux, proto := newTestMux(t, sock)

	var done bool
	var gotErr error
	require.NoError(t, mux.Send(proto, &Message{
		Type:    100,
		OnDone:  func() { done = true },
		OnError: func(err error) { gotErr = err },
	}))

	seq := mux.sockets[proto].sent[0].seq
	frame := encodeError(seq, -int32(1), mux.sockets[proto].portID) // -EPERM-ish
	mux.OnReadable(proto, frame)

	assert.False(t, done)
	assert.Error(t, gotErr)
}

func TestDumpStaysInFlightUntilDone(t *testing.T) {
	sock := &fakeSocket{}
	mux, proto := newTestMux(t, sock)

	var responses int
	var done bool
	require.NoError(t, mux.Send(proto, &Message{
		Type:       200,
		Dump:       true,
		OnResponse: func([]byte) { responses++ },
		OnDone:     func() { done = true },
	}))

	pid := mux.sockets[proto].portID
	seq := mux.sockets[proto].sent[0].seq

	dataFrame := EncodeHeader(300, 0, seq, pid, []byte{1, 2, 3})
	mux.OnReadable(proto, dataFrame)
	assert.Equal(t, 1, responses)
	assert.False(t, done, "dump stays in flight across multiple responses")
	require.Len(t, mux.sockets[proto].sent, 1)

	doneFrame := EncodeHeader(MsgDone, 0, seq, pid, nil)
	mux.OnReadable(proto, doneFrame)
	assert.True(t, done)
	assert.Empty(t, mux.sockets[proto].sent)
}

func TestNonDumpDataMessageIsNotTreatedAsResponse(t *testing.T) {
	sock := &fakeSocket{}
	mux, proto := newTestMux(t, sock)

	var responses int
	var done bool
	require.NoError(t, mux.Send(proto, &Message{
		Type:       200,
		OnResponse: func([]byte) { responses++ },
		OnDone:     func() { done = true },
	}))

	pid := mux.sockets[proto].portID
	seq := mux.sockets[proto].sent[0].seq
	frame := EncodeHeader(300, 0, seq, pid, []byte{9})
	mux.OnReadable(proto, frame)

	assert.Zero(t, responses, "a non-dump request only completes via its ack, not a same-seq data message")
	assert.False(t, done)
	require.Len(t, mux.sockets[proto].sent, 1, "still in flight, awaiting its ack")
}

func TestWrongPortIDDoesNotCompleteDumpResponse(t *testing.T) {
	sock := &fakeSocket{}
	mux, proto := newTestMux(t, sock)

	var responses int
	require.NoError(t, mux.Send(proto, &Message{
		Type:       200,
		Dump:       true,
		OnResponse: func([]byte) { responses++ },
	}))

	seq := mux.sockets[proto].sent[0].seq
	frame := EncodeHeader(300, 0, seq, mux.sockets[proto].portID+1, []byte{9})
	mux.OnReadable(proto, frame)

	assert.Zero(t, responses, "a foreign port id must not be accepted as this socket's dump response")
}

func TestUnmatchedMessageDispatchesToMulticastHandler(t *testing.T) {
	sock := &fakeSocket{}
	mux, proto := newTestMux(t, sock)

	var got []byte
	h := &Handler{
		Name:           "watcher",
		MulticastTypes: map[uint16]bool{500: true},
		OnMulticast:    func(msgType uint16, body []byte) { got = body },
	}
	require.NoError(t, mux.AttachHandler(proto, h))

	frame := EncodeHeader(500, 0, 0, 0, []byte{7, 8, 9})
	mux.OnReadable(proto, frame)

	assert.Equal(t, []byte{7, 8, 9}, got)
}

func TestWouldBlockRevertsBatchToBufferedHead(t *testing.T) {
	sock := &fakeSocket{sendErr: ErrWouldBlock}
	mux, proto := newTestMux(t, sock)

	err := mux.Send(proto, &Message{Type: 1})
	require.NoError(t, err)

	ps := mux.sockets[proto]
	assert.Empty(t, sock.sent)
	require.Len(t, ps.buffered, 1, "message reverted to buffered queue")
	assert.Empty(t, ps.sent)
}

func TestAttachHandlerJoinsRequestedMulticastGroups(t *testing.T) {
	sock := &fakeSocket{}
	mux, proto := newTestMux(t, sock)

	require.NoError(t, mux.AttachHandler(proto, &Handler{
		Name:            "routes",
		MulticastGroups: []uint32{1, 2},
	}))
	assert.ElementsMatch(t, []uint32{1, 2}, sock.joined)

	// A second handler sharing group 1 only joins the new one.
	require.NoError(t, mux.AttachHandler(proto, &Handler{
		Name:            "neighbors",
		MulticastGroups: []uint32{1, 3},
	}))
	assert.ElementsMatch(t, []uint32{1, 2, 3}, sock.joined)
}

func TestAttachHandlerGroupJoinFailureIsFatalForTheHandler(t *testing.T) {
	sock := &fakeSocket{joinErr: errors.New("EPERM")}
	cfg := meshcore.NewConfig()
	dq := deferq.New()
	loop := eventloop.NewLoop(dq)
	mux := NewMux(cfg, meshcore.DefaultSLogger(), loop, dq, func(int) (rawSocket, error) {
		return sock, nil
	})

	err := mux.AttachHandler(0, &Handler{Name: "routes", MulticastGroups: []uint32{1}})
	require.Error(t, err)
	assert.Empty(t, mux.sockets, "the newly opened socket is rolled back on a fatal join failure")
	assert.True(t, sock.closed)
}

func TestDetachHandlerRemovesByName(t *testing.T) {
	sock := &fakeSocket{}
	mux, proto := newTestMux(t, sock)
	mux.DetachHandler(proto, "test")
	assert.Empty(t, mux.sockets[proto].handlers)
}

func TestCloseClosesAllSockets(t *testing.T) {
	sock := &fakeSocket{}
	mux, _ := newTestMux(t, sock)
	require.NoError(t, mux.Close())
	assert.True(t, sock.closed)
}
