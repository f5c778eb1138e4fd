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
	"context"
	"fmt"
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/facebook/ntpd/ntp/protocol"
	"github.com/facebook/ntpd/ntp/proto"
)

// recvResult is one datagram (or error) handed from the socket reader
// goroutine to the Peer Task's single-threaded event loop. Only the event
// loop goroutine touches Peer state; the reader goroutine only produces
// these values, preserving the "no shared mutable state outside channels"
// discipline of §5 even though Go schedules the reader on its own
// goroutine rather than cooperatively.
type recvResult struct {
	n    int
	buf  []byte
	ts   *protocol.NtpTimestamp
	err  error
}

// PeerTask drives one upstream association: the per-peer event loop of
// §4.1. It owns its Peer state, its socket, and its injected clock.
type PeerTask struct {
	index    proto.PeerIndex
	clock    NtpClock
	socket   Socket
	channels PeerChannels
	peer     *proto.Peer

	lastSendTimestamp *protocol.NtpTimestamp
	lastPollSent      proto.NtpInstant
	resetEpoch        proto.ResetEpoch

	pollWait Wait
	recvCh   chan recvResult
}

// TaskHandle is the supervisor's handle on a running Peer Task, returned
// by Spawn.
type TaskHandle struct {
	cancel context.CancelFunc
}

// Abort cancels the task. The task releases its socket and emits no
// further messages.
func (h *TaskHandle) Abort() {
	h.cancel()
}

// Spawn binds a local UDP endpoint to 0.0.0.0:0, resolves remoteAddr,
// connects, derives local and remote reference identifiers from IP
// addresses, initializes Peer state, and launches the event loop. It fails
// with an IO error on socket creation/bind/connect failures.
func Spawn(ctx context.Context, index proto.PeerIndex, remoteAddr string, clock NtpClock, channels PeerChannels) (*TaskHandle, error) {
	socket, err := DialUDPSocket(remoteAddr)
	if err != nil {
		return nil, fmt.Errorf("spawning peer %d: %w", index.Int(), err)
	}
	task, err := newTask(index, socket, clock, channels, NewTimerWait(time.Now()))
	if err != nil {
		return nil, err
	}

	taskCtx, cancel := context.WithCancel(ctx)
	go task.Run(taskCtx)
	return &TaskHandle{cancel: cancel}, nil
}

// newTask is Spawn with the socket and poll-timer Wait already
// constructed, letting tests supply fakes for both without touching a real
// file descriptor or wall clock. The returned task has not been started:
// callers run it with Run.
func newTask(index proto.PeerIndex, socket Socket, clock NtpClock, channels PeerChannels, pollWait Wait) (*PeerTask, error) {
	ourRefID := referenceIDFromAddr(socket.LocalAddr())
	peerRefID := referenceIDFromAddr(socket.PeerAddr())

	system := channels.SystemSnapshot.Load()
	peer := proto.NewPeer(ourRefID, peerRefID, system.MinPollInterval)

	t := &PeerTask{
		index:      index,
		clock:      clock,
		socket:     socket,
		channels:   channels,
		peer:       peer,
		resetEpoch: channels.Reset.BorrowAndUpdate(),
		pollWait:   pollWait,
		recvCh:     make(chan recvResult, 1),
	}
	return t, nil
}

func referenceIDFromAddr(addr net.Addr) uint32 {
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		return 0
	}
	ip4 := udpAddr.IP.To4()
	if ip4 == nil {
		return 0
	}
	return protocol.ReferenceIDFromIP([4]byte{ip4[0], ip4[1], ip4[2], ip4[3]})
}

// Run is the event loop: a single-threaded cooperative multiplex over the
// poll deadline, the reset watch, and inbound datagrams (§4.1). It returns
// when ctx is canceled or the peer is demobilized; in both cases it
// releases the socket before returning.
func (t *PeerTask) Run(ctx context.Context) {
	defer t.socket.Close()
	defer t.pollWait.Stop()

	go t.recvLoop(ctx)

	for {
		select {
		case <-ctx.Done():
			return

		case <-t.pollWait.C():
			t.handlePoll()

		case <-t.channels.Reset.Changed():
			t.peer.ResetMeasurements()
			t.resetEpoch = t.channels.Reset.BorrowAndUpdate()

		case r := <-t.recvCh:
			pkt, recvTimestamp, ok := acceptPacket(r.n, r.err, r.ts, r.buf)
			if !ok {
				continue
			}
			if t.lastSendTimestamp == nil {
				log.Warningf("peer %d: received response with no outstanding poll, ignoring", t.index.Int())
				continue
			}
			if cont := t.handlePacket(pkt, recvTimestamp); !cont {
				return
			}
		}
	}
}

// recvLoop repeatedly calls the (blocking) socket Recv and forwards each
// result to recvCh, so the event loop above can select over it alongside
// timer and reset readiness. It exits once the socket is closed or ctx is
// done.
func (t *PeerTask) recvLoop(ctx context.Context) {
	for {
		buf := make([]byte, protocol.PacketSizeBytes)
		n, ts, err := t.socket.Recv(buf)
		select {
		case t.recvCh <- recvResult{n: n, buf: buf, ts: ts, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// handlePoll implements §4.1 step 1: generate and send an outbound poll.
func (t *PeerTask) handlePoll() {
	system := t.channels.SystemSnapshot.Load()

	pkt := t.peer.GeneratePollMessage(system)

	t.lastPollSent = proto.Now()
	t.updatePollWait(system)

	t.emit(UpdatedSnapshotMsg{Index: t.index, Epoch: t.resetEpoch, Snapshot: t.peer.Snapshot()})

	// A clock read failure here is fatal to the process: the peer cannot
	// proceed without a trustworthy local time source (§4.1, §9).
	now, err := t.clock.Now()
	if err != nil {
		log.Panicf("peer %d: cannot determine origin timestamp: %v", t.index.Int(), err)
	}
	t.lastSendTimestamp = &now

	data, err := pkt.Bytes()
	if err != nil {
		log.Errorf("peer %d: failed to serialize poll: %v", t.index.Int(), err)
		return
	}
	if err := t.socket.Send(data); err != nil {
		// Transient: logged and continued, the poll is simply lost (§7).
		log.Warningf("peer %d: failed to send poll: %v", t.index.Int(), err)
	}
}

// handlePacket implements §4.1 step 3's post-accept dispatch. It returns
// false when the task must stop (Kiss-o'-Death demobilize).
func (t *PeerTask) handlePacket(pkt *protocol.Packet, recvTimestamp protocol.NtpTimestamp) bool {
	system := t.channels.SystemSnapshot.Load()
	frequencyTolerance := t.channels.SystemConfig.Load().FrequencyTolerance

	snapshot, reason, ok := t.peer.HandleIncoming(system, pkt, frequencyTolerance, *t.lastSendTimestamp, recvTimestamp)

	// Recompute the poll deadline using the *post-handle* peer poll
	// interval but the snapshot read at the top of this function — the
	// ordering spec.md §9 calls out as deliberate and worth replicating
	// exactly rather than "fixing".
	t.updatePollWait(system)

	if !ok {
		if reason == proto.IgnoreKissDemobilize {
			t.emit(MustDemobilizeMsg{Index: t.index})
			return false
		}
		log.Debugf("peer %d: ignoring packet: %s", t.index.Int(), reason)
		return true
	}

	t.emit(NewMeasurementMsg{Index: t.index, Epoch: t.resetEpoch, Snapshot: snapshot})
	return true
}

// updatePollWait reschedules the poll deadline to lastPollSent plus the
// peer's current poll interval under the system's poll-interval bounds.
func (t *PeerTask) updatePollWait(system proto.SystemSnapshot) {
	interval := t.peer.CurrentPollInterval(system)
	t.pollWait.Reset(t.lastPollSent.Add(interval.Duration()).Time())
}

// emit sends msg to the supervisor. The channel is bounded; this may
// block, throttling the peer if the supervisor falls behind (§5).
func (t *PeerTask) emit(msg MsgForSystem) {
	t.channels.MsgForSystemSender <- msg
}
