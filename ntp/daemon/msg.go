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

// Package daemon drives one upstream NTP association: the Peer Task event
// loop that schedules polls, receives and timestamps responses, and feeds
// them into the Peer State owned by package proto.
package daemon

import (
	"sync"

	"github.com/facebook/ntpd/ntp/proto"
)

// MsgForSystem is the outbound message a Peer Task emits to the supervisor.
// Exactly one of MustDemobilize, NewMeasurement, or UpdatedSnapshot is the
// concrete type behind this interface.
type MsgForSystem interface {
	isMsgForSystem()
}

// MustDemobilizeMsg is terminal: the peer received a Kiss-o'-Death code
// that demands permanent teardown of the association. No further messages
// follow it from the same peer.
type MustDemobilizeMsg struct {
	Index proto.PeerIndex
}

func (MustDemobilizeMsg) isMsgForSystem() {}

// NewMeasurementMsg carries a freshly accepted clock-filter sample and
// triggers downstream clock-select in the supervisor.
type NewMeasurementMsg struct {
	Index    proto.PeerIndex
	Epoch    proto.ResetEpoch
	Snapshot proto.PeerSnapshot
}

func (NewMeasurementMsg) isMsgForSystem() {}

// UpdatedSnapshotMsg is informational only: it reflects a state change
// (typically a freshly sent poll) that does not itself constitute a new
// measurement.
type UpdatedSnapshotMsg struct {
	Index    proto.PeerIndex
	Epoch    proto.ResetEpoch
	Snapshot proto.PeerSnapshot
}

func (UpdatedSnapshotMsg) isMsgForSystem() {}

// SharedSnapshot holds a SystemSnapshot behind a multi-reader/single-writer
// lock. Peers only ever read it; the supervisor is the sole writer. Holding
// the guard across a suspension point (a channel send, a socket call) is
// forbidden — callers must copy out and release promptly.
type SharedSnapshot struct {
	mu    sync.RWMutex
	value proto.SystemSnapshot
}

// NewSharedSnapshot wraps an initial value for publication.
func NewSharedSnapshot(initial proto.SystemSnapshot) *SharedSnapshot {
	return &SharedSnapshot{value: initial}
}

// Load returns the current value under a brief read lock.
func (s *SharedSnapshot) Load() proto.SystemSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Store publishes a new value, the supervisor's sole write path.
func (s *SharedSnapshot) Store(v proto.SystemSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
}

// SharedConfig holds a SystemConfig behind the same read-mostly discipline
// as SharedSnapshot.
type SharedConfig struct {
	mu    sync.RWMutex
	value proto.SystemConfig
}

// NewSharedConfig wraps an initial configuration for publication.
func NewSharedConfig(initial proto.SystemConfig) *SharedConfig {
	return &SharedConfig{value: initial}
}

// Load returns the current configuration under a brief read lock.
func (c *SharedConfig) Load() proto.SystemConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Store publishes a new configuration.
func (c *SharedConfig) Store(v proto.SystemConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
}

// ResetWatch is a latest-value, lossy-coalescing subscription of
// proto.ResetEpoch: if two resets are published before a peer observes
// either, it sees only the latest. This mirrors a watch channel's
// semantics without requiring a specific runtime.
type ResetWatch struct {
	mu      sync.Mutex
	value   proto.ResetEpoch
	changed chan struct{}
}

// NewResetWatch creates a watch seeded with the given epoch.
func NewResetWatch(initial proto.ResetEpoch) *ResetWatch {
	return &ResetWatch{value: initial, changed: make(chan struct{}, 1)}
}

// Publish sets the latest epoch and wakes any receiver blocked in Changed.
// If a not-yet-observed change is already pending, this overwrites it —
// the coalescing behavior the reset channel requires.
func (w *ResetWatch) Publish(epoch proto.ResetEpoch) {
	w.mu.Lock()
	w.value = epoch
	w.mu.Unlock()
	select {
	case w.changed <- struct{}{}:
	default:
	}
}

// Changed returns a channel that becomes ready after Publish; publishes not
// yet received from it coalesce into one ready signal. Receiving from it is
// what consumes the signal — BorrowAndUpdate does not.
func (w *ResetWatch) Changed() <-chan struct{} {
	return w.changed
}

// BorrowAndUpdate returns the latest published epoch.
func (w *ResetWatch) BorrowAndUpdate() proto.ResetEpoch {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value
}

// PeerChannels bundles the shared state and outbound sender a Peer Task
// needs: the message sender to the supervisor, read-mostly system
// snapshot/config, and the reset watch.
type PeerChannels struct {
	MsgForSystemSender chan<- MsgForSystem
	SystemSnapshot     *SharedSnapshot
	SystemConfig       *SharedConfig
	Reset              *ResetWatch
}
