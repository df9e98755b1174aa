//go:build linux

// SPDX-License-Identifier: GPL-3.0-or-later
//
// Grounded on: _examples/other_examples/09737aaa_bamgate-bamgate__internal-tunnel-netlink.go.go
// and _examples/original_source/src/base/os_linux/os_system_linux.c (_add_protocol).
//

package netlink

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// linuxSocket is the production [rawSocket]: a bound AF_NETLINK/SOCK_RAW
// socket for one protocol.
type linuxSocket struct {
	fd int
}

// NewLinuxSocketFactory returns a [socketFactory] opening real raw
// netlink sockets, for use by [NewMux] outside of tests.
func NewLinuxSocketFactory() socketFactory {
	return newLinuxSocket
}

func newLinuxSocket(proto int) (rawSocket, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC, proto)
	if err != nil {
		return nil, fmt.Errorf("netlink: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, 65536); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netlink: setsockopt SO_RCVBUF: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netlink: bind: %w", err)
	}
	return &linuxSocket{fd: fd}, nil
}

func (s *linuxSocket) Send(b []byte) error {
	err := unix.Sendto(s.fd, b, unix.MSG_DONTWAIT, &unix.SockaddrNetlink{Family: unix.AF_NETLINK})
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
		return ErrWouldBlock
	}
	return err
}

func (s *linuxSocket) Receive(buf []byte) (int, error) {
	n, _, err := unix.Recvfrom(s.fd, buf, 0)
	return n, err
}

// JoinGroup subscribes the socket to a multicast group via
// NETLINK_ADD_MEMBERSHIP, which (unlike the bind-time Groups bitmask)
// works for group numbers beyond 31.
func (s *linuxSocket) JoinGroup(group uint32) error {
	if err := unix.SetsockoptInt(s.fd, unix.SOL_NETLINK, unix.NETLINK_ADD_MEMBERSHIP, int(group)); err != nil {
		return fmt.Errorf("netlink: join multicast group %d: %w", group, err)
	}
	return nil
}

func (s *linuxSocket) Close() error {
	return unix.Close(s.fd)
}
