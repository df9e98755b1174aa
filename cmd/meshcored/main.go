// SPDX-License-Identifier: GPL-3.0-or-later
//
// meshcored is a thin composition root: it wires one class registry, one
// deferred-callback queue, one event loop, one netlink multiplexer, a
// DLEP session per accepted router connection, and one DNS-SD resolver
// together, exactly as package meshcore's constituent packages are
// designed to be assembled. It contains no core logic of its own.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"

	"github.com/oonf-go/meshcore/internal/class"
	"github.com/oonf-go/meshcore/internal/deferq"
	"github.com/oonf-go/meshcore/internal/dlep"
	"github.com/oonf-go/meshcore/internal/dnssd"
	"github.com/oonf-go/meshcore/internal/eventloop"
	"github.com/oonf-go/meshcore/internal/netlink"

	"github.com/oonf-go/meshcore"
)

// l2NeighborAddress is the pooled payload for one discovered layer-2
// neighbor: interface, MAC, and the IP address dns_sd would resolve
// services against.
type l2NeighborAddress struct {
	Interface string
	MAC       []byte
	IP        net.IP
}

func main() {
	dlepAddr := flag.String("dlep-listen", "127.0.0.1:14440", "TCP address DLEP radio sessions are accepted on")
	flag.Parse()

	logger := meshcore.DefaultSLogger()
	cfg := meshcore.NewConfig()
	cfg.DNSSDPrefixes = []string{"_http._tcp.", "_ssh._tcp."}

	deferred := deferq.New()
	loop := eventloop.NewLoop(deferred)
	registry := class.NewRegistry()

	neighClass, err := class.New[l2NeighborAddress](registry, "l2neigh", 16, cfg.ClassDebug)
	if err != nil {
		fmt.Fprintln(os.Stderr, "meshcored: class.New:", err)
		os.Exit(1)
	}

	var sessions []*dlep.Session
	resolver := dnssd.NewResolver(cfg, dnssd.NewPrefixRegistry(), newDNSQueryFunc(cfg, logger), staticServerSelector, loop, logger)

	// Wire the layer-2-neighbor-address class extension to enqueue a
	// DNS-SD context for every newly discovered neighbor and to notify
	// every active DLEP session of the destination. OnChanged, not
	// OnAdded, carries the populated payload: Alloc fires OnAdded against a
	// still-zero Value, before the caller has had a chance to fill it in.
	if err := neighClass.AddExtension(&class.Extension[l2NeighborAddress]{
		Name: "dnssd-dlep-bridge",
		OnChanged: func(inst *class.Instance[l2NeighborAddress]) {
			n := inst.Value
			resolver.Enqueue(dnssd.ContextKey{Interface: n.Interface, IP: n.IP.String()})
			for _, s := range sessions {
				s.AddNeighbor(n.MAC, false)
			}
		},
		OnRemoved: func(inst *class.Instance[l2NeighborAddress]) {
			n := inst.Value
			for _, s := range sessions {
				s.RemoveNeighbor(n.MAC)
			}
		},
	}); err != nil {
		fmt.Fprintln(os.Stderr, "meshcored: AddExtension:", err)
		os.Exit(1)
	}

	mux := netlink.NewMux(cfg, logger, loop, deferred, netlink.NewLinuxSocketFactory())
	attachNeighborHandler(mux, neighClass, logger)

	listener, err := net.Listen("tcp", *dlepAddr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "meshcored: listen:", err)
		os.Exit(1)
	}
	defer listener.Close()

	go acceptLoop(listener, loop, logger, &sessions)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	logger.Info("meshcored: running", "dlep_listen", *dlepAddr)
	loop.Run(ctx)
}

func acceptLoop(listener net.Listener, loop *eventloop.Loop, logger meshcore.SLogger, sessions *[]*dlep.Session) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		s := dlep.NewSession(dlep.NewConfig(), conn, loop, logger)
		*sessions = append(*sessions, s)
		go feedSession(conn, s, loop)
	}
}

func feedSession(conn net.Conn, s *dlep.Session, loop *eventloop.Loop) {
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		data := append([]byte(nil), buf[:n]...)
		loop.Post(func() { s.Feed(data) })
	}
}

// staticServerSelector is a placeholder selector: no netlink-sourced
// remote-DNS data is wired to an interface table, so it reports no server
// for every interface and the resolver drops each context without
// querying.
func staticServerSelector(iface string) (string, bool) {
	return "", false
}

// attachNeighborHandler joins the kernel neighbor-table multicast group and
// turns RTM_NEWNEIGH/RTM_DELNEIGH notifications into l2NeighborAddress class
// instances, so discovering a neighbor on the wire (not just a test harness
// calling neighClass.Alloc directly) is what actually drives the
// dnssd-dlep-bridge extension registered in main.
func attachNeighborHandler(mux *netlink.Mux, neighClass *class.Class[l2NeighborAddress], logger meshcore.SLogger) {
	byMAC := make(map[string]*class.Instance[l2NeighborAddress])

	err := mux.AttachHandler(netlink.ProtoRoute, &netlink.Handler{
		Name:            "l2neigh",
		MulticastGroups: []uint32{netlink.RTNLGRPNeigh},
		MulticastTypes: map[uint16]bool{
			netlink.RTMNewNeigh: true,
			netlink.RTMDelNeigh: true,
		},
		OnMulticast: func(msgType uint16, body []byte) {
			upd, ok := netlink.ParseNeighborUpdate(body)
			if !ok || len(upd.MAC) == 0 {
				return
			}
			key := string(upd.MAC)
			switch msgType {
			case netlink.RTMNewNeigh:
				if len(upd.IP) == 0 || byMAC[key] != nil {
					return
				}
				iface, err := net.InterfaceByIndex(int(upd.IfIndex))
				name := ""
				if err == nil {
					name = iface.Name
				}
				inst := neighClass.Alloc()
				inst.Value = l2NeighborAddress{Interface: name, MAC: upd.MAC, IP: net.IP(upd.IP)}
				neighClass.Changed(inst)
				byMAC[key] = inst
			case netlink.RTMDelNeigh:
				if inst, ok := byMAC[key]; ok {
					neighClass.Free(inst)
					delete(byMAC, key)
				}
			}
		},
	})
	if err != nil {
		logger.Warn("meshcored: could not join neighbor-table multicast group", "error", err)
	}
	mux.Serve(netlink.ProtoRoute)
}
