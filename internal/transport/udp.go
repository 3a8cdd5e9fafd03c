// Copyright 2021 The Matrix.org Foundation C.I.C.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package transport is the UDP socket collaborator spec.md §1/§6 treats as
// an external boundary: it owns the net.UDPConn, decoupling the pipeline
// from socket lifecycle. Grounded on dsoftbus-go's
// pkg/discovery/coap/coap_socket.go (a SocketInfo wrapper around
// net.UDPConn with explicit bind/send/recv/close) and dustin-go-coap's
// UdpListenAndServe read loop.
package transport

import (
	"fmt"
	"net"

	"github.com/sirupsen/logrus"
)

const maxDatagramSize = 1500

// Handler processes one received datagram. Serve calls Handle on a new
// goroutine for every datagram, so Handle may be called concurrently and
// the read loop does not wait for it to return.
type Handler interface {
	Handle(peer net.Addr, raw []byte)
}

// Socket wraps a bound net.UDPConn for both the receive loop and reply
// sends, matching dsoftbus-go's SocketInfo shape.
type Socket struct {
	conn *net.UDPConn
	log  logrus.FieldLogger
}

// Listen binds addr (e.g. ":5683") and returns a ready Socket.
func Listen(addr string, log logrus.FieldLogger) (*Socket, error) {
	uaddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve udp addr %q: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", uaddr)
	if err != nil {
		return nil, fmt.Errorf("listen udp %q: %w", addr, err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Socket{conn: conn, log: log}, nil
}

// SendTo implements pipeline.Egress.
func (s *Socket) SendTo(addr net.Addr, b []byte) error {
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		return fmt.Errorf("send to %v: not a udp address", addr)
	}
	_, err := s.conn.WriteToUDP(b, udpAddr)
	if err != nil {
		return fmt.Errorf("write udp datagram to %v: %w", addr, err)
	}
	return nil
}

// Serve runs the receive loop until the socket is closed, dispatching
// each datagram to h on its own goroutine so one slow handler cannot
// stall the read loop. Per spec.md §7, a socket read error is fatal to
// the receive loop and Serve returns it so the caller's supervisor can
// restart the process.
func (s *Socket) Serve(h Handler) error {
	buf := make([]byte, maxDatagramSize)
	for {
		n, peer, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			return fmt.Errorf("udp receive loop: %w", err)
		}
		datagram := make([]byte, n)
		copy(datagram, buf[:n])
		go h.Handle(peer, datagram)
	}
}

// Close releases the socket (spec.md §5: "the UDP channel is scoped,
// acquired at boot, released on process exit").
func (s *Socket) Close() error {
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("close udp socket: %w", err)
	}
	return nil
}
