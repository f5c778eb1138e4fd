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

// Package stats holds the daemon's in-process counters and a Prometheus
// exporter for them.
package stats

import "sync"

// per-peer counter key prefixes, joined with the peer's index.
const (
	PollsSentPrefix       = "ntp.peer.polls_sent."
	MeasurementsPrefix    = "ntp.peer.measurements."
	IgnoredPrefix         = "ntp.peer.ignored."
	DemobilizedPrefix     = "ntp.peer.demobilized."
)

// Counters is a concurrency-safe set of named int64 counters, the daemon's
// equivalent of the sptp client's Counters map.
type Counters struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewCounters returns an empty counter set.
func NewCounters() *Counters {
	return &Counters{values: make(map[string]int64)}
}

// Inc increments the named counter by delta, creating it at delta if absent.
func (c *Counters) Inc(key string, delta int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] += delta
}

// Snapshot returns a point-in-time copy of every counter, safe for the
// caller to range over without holding any lock.
func (c *Counters) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}
