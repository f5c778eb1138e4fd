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

// Package proto holds the per-peer estimator: the association state
// machine (Peer) and the clock filter algorithm (RFC 5905 §A.5.2) it
// drives on every accepted sample.
package proto

import "time"

// NtpInstant is a monotonic instant used only for local scheduling (poll
// deadlines, reachability back-off). It must never be serialized or
// compared with protocol NtpTimestamp values, which run on the server's
// clock, not ours.
type NtpInstant struct {
	t time.Time
}

// Now returns the current monotonic instant.
func Now() NtpInstant {
	return NtpInstant{t: time.Now()}
}

// Add returns the instant d later.
func (i NtpInstant) Add(d time.Duration) NtpInstant {
	return NtpInstant{t: i.t.Add(d)}
}

// Sub returns the duration elapsed between i and other (i - other).
func (i NtpInstant) Sub(other NtpInstant) time.Duration {
	return i.t.Sub(other.t)
}

// Time exposes the underlying time.Time, for use by timer primitives
// (time.Timer/time.Sleep) that operate on wall/monotonic time.Time.
func (i NtpInstant) Time() time.Time {
	return i.t
}
