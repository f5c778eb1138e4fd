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
	"time"

	"github.com/facebook/ntpd/ntp/protocol"
)

// FrequencyTolerance is Φ, the assumed maximum frequency error of any clock
// in the system, expressed in parts per million. HandleIncoming scales
// (T4-T1) by this value when computing a sample's initial dispersion. The
// clock filter's aging step does not read it: it uses the fixed 15 ppm of
// NtpDuration.MultiplyByPhi.
type FrequencyTolerance float64

// DefaultFrequencyTolerance is the protocol's conventional Φ, 15 ppm.
const DefaultFrequencyTolerance FrequencyTolerance = 15

// PollInterval is a poll interval expressed the RFC 5905 way: log2 seconds.
// A value of 6 means 64 seconds between polls.
type PollInterval int8

// Duration converts the poll interval to a wall-clock time.Duration.
func (p PollInterval) Duration() time.Duration {
	if p < 0 {
		return time.Second / time.Duration(int64(1)<<uint(-p))
	}
	return time.Second * time.Duration(int64(1)<<uint(p))
}

// Clamp bounds p to [min, max], the system configuration's poll-interval
// bounds.
func (p PollInterval) Clamp(min, max PollInterval) PollInterval {
	if p < min {
		return min
	}
	if p > max {
		return max
	}
	return p
}

// SystemConfig is the read-mostly configuration the supervisor publishes to
// every peer: the frequency tolerance used to inflate dispersion on every
// accepted measurement. Peers only ever read it.
type SystemConfig struct {
	FrequencyTolerance FrequencyTolerance
}

// DefaultSystemConfig mirrors the protocol's conventional 15ppm frequency
// tolerance.
func DefaultSystemConfig() SystemConfig {
	return SystemConfig{
		FrequencyTolerance: DefaultFrequencyTolerance,
	}
}

// SystemSnapshot is the read-mostly view of system state published to every
// peer: the leap indicator the system wants to announce, and the
// poll-interval bounds a peer's own interval is clamped to. Both are things
// a peer consults on essentially every iteration of its event loop, which is
// why they travel together as one snapshot rather than through SystemConfig
// (reserved for values a peer reads only while processing a response).
type SystemSnapshot struct {
	LeapIndicator   protocol.LeapIndicator
	MinPollInterval PollInterval
	MaxPollInterval PollInterval
}

// DefaultSystemSnapshot mirrors common NTP client defaults: 64s to 1024s
// poll bounds (log2 6..10).
func DefaultSystemSnapshot() SystemSnapshot {
	return SystemSnapshot{
		MinPollInterval: 6,
		MaxPollInterval: 10,
	}
}

// PeerSnapshot is the condensed, freely shareable projection of Peer state
// sent to the supervisor over the message channel.
type PeerSnapshot struct {
	Index      PeerIndex
	ReferenceID uint32
	Stratum    uint8
	LeapIndicator protocol.LeapIndicator
	PollInterval PollInterval
	Reach      uint8
	Statistics PeerStatistics
}

// PeerIndex is an opaque, dense identifier assigned by the supervisor. The
// task carries it on every outbound message so the supervisor can
// demultiplex.
type PeerIndex struct {
	index int
}

// NewPeerIndex wraps a supervisor-assigned dense integer as a PeerIndex.
func NewPeerIndex(i int) PeerIndex { return PeerIndex{index: i} }

// Int returns the underlying dense integer.
func (p PeerIndex) Int() int { return p.index }

// ResetEpoch is an unsigned 64-bit counter with wrapping increment. A
// message is a valid measurement only if its ResetEpoch equals the
// supervisor's current epoch at the time of application.
type ResetEpoch uint64

// Inc returns the next epoch. uint64 addition already wraps on overflow, so
// this is the Go equivalent of the reference implementation's wrapping_add.
func (e ResetEpoch) Inc() ResetEpoch {
	return e + 1
}
