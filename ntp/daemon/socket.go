/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package daemon

import (
	"fmt"
	"net"
	"time"

	"github.com/facebook/ntpd/dscp"
	"github.com/facebook/ntpd/ntp/protocol"
	"github.com/facebook/ntpd/timestamp"
)

// defaultDSCP marks outbound poll datagrams so they receive the same QoS
// treatment network infrastructure gives other latency-sensitive protocols.
const defaultDSCP = 46 // EF (expedited forwarding)

// Socket is the UDP abstraction the Peer Task uses to send polls and
// receive responses. Recv must deliver a kernel receive timestamp
// alongside every datagram (§6) — the acceptor refuses to process a
// datagram with none.
type Socket interface {
	// Recv blocks until a datagram arrives (or the socket is closed),
	// returning the number of bytes copied into buf and the kernel receive
	// timestamp in NTP epoch, if the kernel supplied one.
	Recv(buf []byte) (int, *protocol.NtpTimestamp, error)
	Send(data []byte) error
	LocalAddr() net.Addr
	PeerAddr() net.Addr
	Close() error
}

// UDPSocket is the real Socket: a connected UDP socket with kernel RX
// software timestamps enabled, grounded on package timestamp's cmsg
// plumbing.
type UDPSocket struct {
	conn   *net.UDPConn
	fd     int
	oobBuf []byte
}

// DialUDPSocket binds a local endpoint to 0.0.0.0:0, resolves and connects
// to remoteAddr (so Recv yields only that peer's datagrams), and enables
// kernel RX timestamping. This implements the socket half of Peer Task's
// Spawn contract (§4.1).
func DialUDPSocket(remoteAddr string) (*UDPSocket, error) {
	raddr, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", remoteAddr, err)
	}
	laddr := &net.UDPAddr{IP: net.IPv4zero, Port: 0}
	conn, err := net.DialUDP("udp", laddr, raddr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", remoteAddr, err)
	}

	fd, err := timestamp.ConnFd(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("getting socket fd: %w", err)
	}
	if err := timestamp.EnableSWTimestampsRx(fd); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling rx timestamps: %w", err)
	}
	if err := dscp.Enable(fd, raddr.IP, defaultDSCP); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting dscp: %w", err)
	}

	return &UDPSocket{
		conn:   conn,
		fd:     fd,
		oobBuf: make([]byte, timestamp.ControlSizeBytes),
	}, nil
}

// Recv reads one datagram along with its kernel receive timestamp.
func (s *UDPSocket) Recv(buf []byte) (int, *protocol.NtpTimestamp, error) {
	n, _, t, err := timestamp.ReadPacketWithRXTimestampBuf(s.fd, buf, s.oobBuf)
	if err != nil {
		return 0, nil, err
	}
	ts := timeToNtp(t)
	return n, &ts, nil
}

// Send writes a datagram to the connected peer.
func (s *UDPSocket) Send(data []byte) error {
	_, err := s.conn.Write(data)
	return err
}

// LocalAddr returns the socket's bound local address.
func (s *UDPSocket) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// PeerAddr returns the connected remote address.
func (s *UDPSocket) PeerAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// Close releases the socket. The Peer Task must not emit further messages
// once this has been called.
func (s *UDPSocket) Close() error {
	return s.conn.Close()
}

func timeToNtp(t time.Time) protocol.NtpTimestamp {
	seconds := uint32(t.Unix() + ntpEraOffset)
	fraction := uint32(uint64(t.Nanosecond()) << 32 / 1_000_000_000)
	return protocol.NewNtpTimestamp(seconds, fraction)
}
