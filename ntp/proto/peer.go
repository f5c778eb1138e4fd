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

package proto

import (
	"math/rand"
	"time"

	"github.com/facebook/ntpd/ntp/protocol"
)

// IgnoreReason is the taxonomy of reasons handle_incoming declines to
// produce a measurement. KissDemobilize is terminal; every other reason is
// transient and logged by the Peer Task, which continues the event loop.
type IgnoreReason int

const (
	// IgnoreNone is the zero value, returned alongside ok=true when a
	// response is accepted; it means "no reason to ignore".
	IgnoreNone IgnoreReason = iota
	// IgnoreKissDemobilize means the server sent a Kiss-o'-Death code that
	// requires this association to be torn down permanently.
	IgnoreKissDemobilize
	// IgnoreKissRateLimit means the server asked us to back off; the poll
	// interval has already been grown in response.
	IgnoreKissRateLimit
	// IgnoreInvalidMode means the response's association mode was not Server.
	IgnoreInvalidMode
	// IgnoreInvalidStratum means the response's stratum was out of range.
	IgnoreInvalidStratum
	// IgnoreOriginMismatch means the response's origin timestamp did not
	// match the nonce from the last poll we sent.
	IgnoreOriginMismatch
	// IgnoreDuplicateOrReplay means we have already processed a response
	// carrying this origin timestamp.
	IgnoreDuplicateOrReplay
	// IgnoreFilterRejectedAsOld means the clock filter's newness check
	// rejected the sample because it was not newer than the last one.
	IgnoreFilterRejectedAsOld
)

func (r IgnoreReason) String() string {
	switch r {
	case IgnoreKissDemobilize:
		return "kiss-demobilize"
	case IgnoreKissRateLimit:
		return "kiss-rate-limit"
	case IgnoreInvalidMode:
		return "invalid-mode"
	case IgnoreInvalidStratum:
		return "invalid-stratum"
	case IgnoreOriginMismatch:
		return "origin-mismatch"
	case IgnoreDuplicateOrReplay:
		return "duplicate-or-replay"
	case IgnoreFilterRejectedAsOld:
		return "filter-rejected-as-old"
	default:
		return "none"
	}
}

// Kiss-o'-Death codes this core recognizes, per spec.md §6. An unrecognized
// stratum-0 code is treated conservatively as a rate-limit rather than a
// demobilize: RFC 5905 §7.4 does not require the client to shut down an
// association over a code it doesn't understand.
const (
	kissCodeDeny = "DENY"
	kissCodeRestrict = "RSTR"
	kissCodeRate = "RATE"
)

// minStratum/maxStratum bound the stratum field a server response may
// legitimately carry; stratum 0 is reserved for Kiss-o'-Death and is
// handled separately.
const (
	minStratum = 1
	maxStratum = 16
)

// Peer holds one upstream association's state: reach register, current
// poll interval, reference identifiers, leap indicator, stratum, precision,
// and the clock filter register. It is owned exclusively by one Peer Task.
type Peer struct {
	ourReferenceID  uint32
	peerReferenceID uint32

	leapIndicator protocol.LeapIndicator
	stratum       uint8
	precision     protocol.NtpDuration

	pollInterval  PollInterval
	consecutiveUnreach int
	reach         uint8

	filterRegister ClockFilterRegister
	filterTime     protocol.NtpTimestamp

	nextExpectedOriginTimestamp *protocol.NtpTimestamp
	lastAcceptedOriginTimestamp *protocol.NtpTimestamp
	transmitCount               uint64
	nonceRand                   *rand.Rand
}

// NewPeer creates Peer state for a freshly spawned association. The filter
// register starts all-DUMMY and lives for the lifetime of the peer.
func NewPeer(ourReferenceID, peerReferenceID uint32, initialPollInterval PollInterval) *Peer {
	return &Peer{
		ourReferenceID:  ourReferenceID,
		peerReferenceID: peerReferenceID,
		leapIndicator:   protocol.LeapUnsynchronized,
		// 2^-20 seconds in 32.32 fixed point, a representative software
		// clock precision; matches the Precision field GeneratePollMessage
		// puts on outbound packets.
		precision:      protocol.NtpDuration(1 << 12),
		pollInterval:   initialPollInterval,
		filterRegister: NewClockFilterRegister(),
		filterTime:     protocol.NtpEpoch,
		nonceRand:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// nextNonce produces the next privacy-preserving transmit-timestamp nonce.
// It must never equal the peer's true local clock reading; a
// process-local pseudorandom value satisfies that without leaking
// wall-clock time to the network.
func (p *Peer) nextNonce() protocol.NtpTimestamp {
	p.transmitCount++
	return protocol.NtpTimestamp(p.nonceRand.Uint64())
}

// GeneratePollMessage builds an outbound client-mode header: version 4,
// mode Client, our current leap/stratum/poll/precision, and a
// privacy-preserving nonce in the transmit-timestamp field. The nonce is
// remembered so the matching response can be authenticated by
// handle_incoming's origin-timestamp check.
func (p *Peer) GeneratePollMessage(system SystemSnapshot) *protocol.Packet {
	pkt := protocol.NewClientPacket()
	pkt.SetLeap(p.leapIndicator)
	pkt.Stratum = p.stratum
	pkt.Poll = int8(p.pollInterval)
	pkt.Precision = -20
	pkt.ReferenceID = p.ourReferenceID

	nonce := p.nextNonce()
	pkt.SetTransmitTimestamp(nonce)
	p.nextExpectedOriginTimestamp = &nonce

	return pkt
}

// CurrentPollInterval returns the poll interval clamped by the system
// snapshot's bounds. It grows only on RATE and unrecognized kiss codes (via
// growPollInterval); unanswered polls do not grow it. It is re-derived here
// rather than stored denormalized so bound changes take effect immediately.
func (p *Peer) CurrentPollInterval(system SystemSnapshot) PollInterval {
	return p.pollInterval.Clamp(system.MinPollInterval, system.MaxPollInterval)
}

// growPollInterval increases the poll interval by one step. It is called
// when a server sends a RATE or unrecognized kiss code, and from nowhere
// else.
func (p *Peer) growPollInterval(system SystemSnapshot) {
	p.pollInterval = (p.pollInterval + 1).Clamp(system.MinPollInterval, system.MaxPollInterval)
}

// ResetMeasurements clears the outstanding nonce so any response to a
// pre-reset poll fails the origin-timestamp check and is ignored. The
// filter register is deliberately NOT cleared: historical samples remain
// valid and continue aging via the dispersion-correction term.
func (p *Peer) ResetMeasurements() {
	p.nextExpectedOriginTimestamp = nil
	p.consecutiveUnreach = 0
}

// HandleIncoming validates an inbound response and, if accepted, runs it
// through the clock filter. Checks run in this order: origin-timestamp
// match, mode, Kiss-o'-Death, stratum range, then the
// offset/delay/dispersion computation and clock filter application. The
// stratum range check follows the Kiss-o'-Death check because a
// Kiss-o'-Death packet carries stratum 0.
func (p *Peer) HandleIncoming(
	system SystemSnapshot,
	pkt *protocol.Packet,
	frequencyTolerance FrequencyTolerance,
	sendTimestamp protocol.NtpTimestamp,
	recvTimestamp protocol.NtpTimestamp,
) (PeerSnapshot, IgnoreReason, bool) {
	origin := pkt.OriginTimestamp()
	if p.nextExpectedOriginTimestamp == nil {
		if p.lastAcceptedOriginTimestamp != nil && origin == *p.lastAcceptedOriginTimestamp {
			return PeerSnapshot{}, IgnoreDuplicateOrReplay, false
		}
		return PeerSnapshot{}, IgnoreOriginMismatch, false
	}
	if origin != *p.nextExpectedOriginTimestamp {
		return PeerSnapshot{}, IgnoreOriginMismatch, false
	}
	// The nonce has now served its purpose; remember it so a duplicate or
	// replayed copy of this same response is recognized and rejected
	// distinctly from an unrelated mismatch.
	p.lastAcceptedOriginTimestamp = p.nextExpectedOriginTimestamp
	p.nextExpectedOriginTimestamp = nil

	if pkt.Mode() != protocol.ModeServer {
		return PeerSnapshot{}, IgnoreInvalidMode, false
	}

	if code, ok := pkt.IsKissOfDeath(); ok {
		switch code {
		case kissCodeDeny, kissCodeRestrict:
			return PeerSnapshot{}, IgnoreKissDemobilize, false
		case kissCodeRate:
			p.growPollInterval(system)
			return PeerSnapshot{}, IgnoreKissRateLimit, false
		default:
			p.growPollInterval(system)
			return PeerSnapshot{}, IgnoreKissRateLimit, false
		}
	}

	if pkt.Stratum < minStratum || pkt.Stratum > maxStratum {
		return PeerSnapshot{}, IgnoreInvalidStratum, false
	}

	t1 := sendTimestamp
	t2 := pkt.ReceiveTimestamp()
	t3 := pkt.TransmitTimestamp()
	t4 := recvTimestamp

	offset := (t2.Sub(t1) + t3.Sub(t4)) / 2
	delay := t4.Sub(t1) - t3.Sub(t2)
	// Φ·(T4-T1), Φ being the configured frequency tolerance in ppm; the
	// conversion back to NtpDuration truncates toward zero.
	phiTerm := protocol.NtpDuration(float64(t4.Sub(t1)) * float64(frequencyTolerance) / 1_000_000)
	dispersion := p.precision + pkt.PrecisionDuration() + phiTerm

	newTuple := FilterTuple{
		Offset:     offset,
		Delay:      delay,
		Dispersion: dispersion,
		Time:       t4,
	}

	updatedRegister, stats, ok := ClockFilter(p.filterTime, p.precision, pkt.Leap(), p.filterRegister, newTuple)
	p.filterRegister = updatedRegister
	if !ok {
		return PeerSnapshot{}, IgnoreFilterRejectedAsOld, false
	}

	p.filterTime = stats.FilterTime
	p.leapIndicator = pkt.Leap()
	p.stratum = pkt.Stratum
	p.peerReferenceID = pkt.ReferenceID
	p.consecutiveUnreach = 0
	p.reach = (p.reach << 1) | 1

	return p.snapshot(stats), IgnoreNone, true
}

func (p *Peer) snapshot(stats PeerStatistics) PeerSnapshot {
	return PeerSnapshot{
		ReferenceID:   p.peerReferenceID,
		Stratum:       p.stratum,
		LeapIndicator: p.leapIndicator,
		PollInterval:  p.pollInterval,
		Reach:         p.reach,
		Statistics:    stats,
	}
}

// Snapshot returns the peer's current condensed state without running the
// clock filter, used by the Peer Task to publish UpdatedSnapshot messages
// after sending a poll.
func (p *Peer) Snapshot() PeerSnapshot {
	return p.snapshot(PeerStatistics{Filter: p.filterRegister, FilterTime: p.filterTime})
}
