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
	"time"

	"github.com/facebook/ntpd/clock"
	"github.com/facebook/ntpd/ntp/protocol"
	"golang.org/x/sys/unix"
)

// ntpEraOffset is the number of seconds between the Unix epoch
// (1970-01-01) and the NTP era (1900-01-01).
const ntpEraOffset = 2208988800

// NtpClock is the local time source a Peer Task is injected with. Only Now
// is invoked by the core (§6); SetFreq/Step/UpdateClock exist for a real
// clock-discipline loop, explicitly out of scope here, to call.
type NtpClock interface {
	// Now returns the current time as an NTP timestamp, or an error if the
	// local clock cannot be trusted. A Now failure during poll send is
	// fatal to the process (§4.1, §9) — the peer cannot proceed without a
	// trustworthy local time source.
	Now() (protocol.NtpTimestamp, error)
	SetFreq(freqPPB float64) error
	Step(d time.Duration) error
	UpdateClock() error
}

// SystemClock is the real NtpClock, backed by CLOCK_REALTIME via the
// CLOCK_ADJTIME syscall wrapper in package clock.
type SystemClock struct{}

// NewSystemClock returns the real system clock.
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

// Now reads time.Now and converts to NTP 32.32 fixed point. time.Now never
// errors on any platform this daemon targets, but the interface allows a
// clock source that can (e.g. one gated on an upstream PPS lock) to report
// failure.
func (c *SystemClock) Now() (protocol.NtpTimestamp, error) {
	now := time.Now()
	seconds := uint32(now.Unix() + ntpEraOffset)
	fraction := uint32(uint64(now.Nanosecond()) << 32 / 1_000_000_000)
	return protocol.NewNtpTimestamp(seconds, fraction), nil
}

// SetFreq adjusts CLOCK_REALTIME's frequency by freqPPB parts per billion.
func (c *SystemClock) SetFreq(freqPPB float64) error {
	_, err := clock.AdjFreqPPB(unix.CLOCK_REALTIME, freqPPB)
	return err
}

// Step steps CLOCK_REALTIME by d immediately.
func (c *SystemClock) Step(d time.Duration) error {
	_, err := clock.Step(unix.CLOCK_REALTIME, d)
	return err
}

// UpdateClock marks CLOCK_REALTIME as synchronized.
func (c *SystemClock) UpdateClock() error {
	return clock.SetSync()
}
