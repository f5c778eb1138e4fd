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

package supervisor

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/facebook/ntpd/ntp/daemon"
	"github.com/facebook/ntpd/ntp/proto"
	"github.com/facebook/ntpd/ntp/protocol"
	"github.com/facebook/ntpd/ntp/stats"
)

// Supervisor is the minimal "System" needed to run a complete daemon: it
// owns the SystemSnapshot/SystemConfig every Peer Task reads, spawns one
// Peer Task per configured server, and demultiplexes their MsgForSystem
// stream. It does not implement RFC 5905 clock selection/combine/steer;
// NewMeasurement handling below is a logged, lowest-stratum-wins
// placeholder standing in for that, per spec.md's Non-goals.
type Supervisor struct {
	cfg      *Config
	clock    daemon.NtpClock
	counters *stats.Counters

	snapshot *daemon.SharedSnapshot
	config   *daemon.SharedConfig
	reset    *daemon.ResetWatch

	msgCh chan daemon.MsgForSystem

	mu          sync.Mutex
	handles     map[int]*daemon.TaskHandle
	bestIndex   int
	bestStratum uint8
	haveBest    bool
}

// New creates a Supervisor from a validated Config.
func New(cfg *Config, clock daemon.NtpClock, counters *stats.Counters) *Supervisor {
	return &Supervisor{
		cfg:      cfg,
		clock:    clock,
		counters: counters,
		snapshot: daemon.NewSharedSnapshot(cfg.SystemSnapshot()),
		config:   daemon.NewSharedConfig(cfg.SystemConfig()),
		reset:    daemon.NewResetWatch(0),
		msgCh:    make(chan daemon.MsgForSystem, 64),
		handles:  make(map[int]*daemon.TaskHandle),
	}
}

// Run spawns a Peer Task for every configured server and then demultiplexes
// messages until ctx is canceled, at which point every task is aborted.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.spawnPeers(ctx); err != nil {
		return err
	}
	return s.demux(ctx)
}

func (s *Supervisor) spawnPeers(ctx context.Context) error {
	eg, _ := errgroup.WithContext(ctx)
	for i, addr := range s.cfg.Servers {
		index := i
		remoteAddr := addr
		eg.Go(func() error {
			channels := daemon.PeerChannels{
				MsgForSystemSender: s.msgCh,
				SystemSnapshot:     s.snapshot,
				SystemConfig:       s.config,
				Reset:              s.reset,
			}
			handle, err := daemon.Spawn(ctx, proto.NewPeerIndex(index), remoteAddr, s.clock, channels)
			if err != nil {
				return fmt.Errorf("spawning peer for %s: %w", remoteAddr, err)
			}
			s.mu.Lock()
			s.handles[index] = handle
			s.mu.Unlock()
			return nil
		})
	}
	return eg.Wait()
}

func (s *Supervisor) demux(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			for _, h := range s.handles {
				h.Abort()
			}
			s.mu.Unlock()
			return ctx.Err()
		case msg := <-s.msgCh:
			s.handle(msg)
		}
	}
}

func (s *Supervisor) handle(msg daemon.MsgForSystem) {
	switch m := msg.(type) {
	case daemon.MustDemobilizeMsg:
		log.Warningf("peer %d demobilized, dropping from selection", m.Index.Int())
		s.counters.Inc(fmt.Sprintf("%s%d", stats.DemobilizedPrefix, m.Index.Int()), 1)
		s.mu.Lock()
		if s.haveBest && s.bestIndex == m.Index.Int() {
			s.haveBest = false
		}
		s.mu.Unlock()

	case daemon.NewMeasurementMsg:
		s.counters.Inc(fmt.Sprintf("%s%d", stats.MeasurementsPrefix, m.Index.Int()), 1)
		s.considerForSelection(m.Index.Int(), m.Snapshot)

	case daemon.UpdatedSnapshotMsg:
		s.counters.Inc(fmt.Sprintf("%s%d", stats.PollsSentPrefix, m.Index.Int()), 1)
	}
}

// considerForSelection is a placeholder for RFC 5905 clock selection: it
// logs whichever peer currently reports the lowest stratum. It never
// steers the local clock — real clock discipline is out of scope.
func (s *Supervisor) considerForSelection(index int, snapshot proto.PeerSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.haveBest || snapshot.Stratum < s.bestStratum {
		s.bestIndex = index
		s.bestStratum = snapshot.Stratum
		s.haveBest = true
		log.Infof("peer %d now lowest-stratum candidate (stratum %d, offset %.9fs)", index, snapshot.Stratum, snapshot.Statistics.Offset.Seconds())
	}
}

// TriggerReset publishes a new reset epoch to every peer, causing each to
// clear its outstanding nonce on its next event loop iteration. Used when
// system state changes in a way that invalidates in-flight measurements.
func (s *Supervisor) TriggerReset() {
	s.reset.Publish(s.reset.BorrowAndUpdate() + 1)
}

// UpdateLeapIndicator republishes the SystemSnapshot with a new leap
// indicator, visible to every peer's next GeneratePollMessage/HandleIncoming.
func (s *Supervisor) UpdateLeapIndicator(li protocol.LeapIndicator) {
	current := s.snapshot.Load()
	current.LeapIndicator = li
	s.snapshot.Store(current)
}
