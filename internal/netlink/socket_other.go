//go:build !linux

// SPDX-License-Identifier: GPL-3.0-or-later

package netlink

import "github.com/oonf-go/meshcore/internal/errclass"

// NewLinuxSocketFactory is unavailable on non-Linux platforms: raw
// AF_NETLINK sockets are a Linux kernel facility. Every other part of
// this package (framing, batching, correlation) is platform-independent
// and exercised instead through a test [socketFactory].
func NewLinuxSocketFactory() socketFactory {
	return func(proto int) (rawSocket, error) {
		return nil, errclass.ErrUnsupportedPlatform
	}
}
