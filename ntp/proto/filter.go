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
	"math"
	"sort"

	"github.com/facebook/ntpd/ntp/protocol"
)

// PeerStatistics is the offset/delay/dispersion/jitter estimate the clock
// filter derives from an accepted sample, together with the updated
// register it was derived from.
type PeerStatistics struct {
	Offset     protocol.NtpDuration
	Delay      protocol.NtpDuration
	Dispersion protocol.NtpDuration
	Jitter     float64
	Filter     ClockFilterRegister
	FilterTime protocol.NtpTimestamp
}

// temporaryList is the register re-sorted by increasing delay, used only
// for the one estimator computation below and never persisted.
type temporaryList []FilterTuple

func (l temporaryList) Len() int      { return len(l) }
func (l temporaryList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }
func (l temporaryList) Less(i, j int) bool {
	// Incomparable/NaN-like values sort as "less than" — not reachable with
	// fixed-point NtpDuration, but the tie-break matches the protocol's
	// float-based reference behavior.
	return l[i].Delay < l[j].Delay
}

// validPrefixLen returns the count of leading non-DUMMY entries once sorted
// by delay: DUMMY tuples sort to the tail because MaxDispersion is the
// largest representable delay, so "valid" tuples form a prefix.
func validPrefixLen(sorted temporaryList) int {
	n := 0
	for _, t := range sorted {
		if t.IsDummy() {
			break
		}
		n++
	}
	return n
}

// ClockFilter implements the RFC 5905 §A.5.2 clock filter algorithm. It ages
// the register by Φ·(newTuple.Time - peerTime), shifts newTuple in, and
// derives updated statistics — unless the newness check (the "prime
// directive") rejects the sample as not newer than the last accepted one,
// in which case it returns ok=false and the register is still updated (the
// shift happens regardless of whether the sample is used for statistics).
func ClockFilter(
	peerTime protocol.NtpTimestamp,
	systemPrecision protocol.NtpDuration,
	leapIndicator protocol.LeapIndicator,
	register ClockFilterRegister,
	newTuple FilterTuple,
) (ClockFilterRegister, PeerStatistics, bool) {
	dispersionCorrection := newTuple.Time.Sub(peerTime).MultiplyByPhi()
	register.ShiftAndInsert(newTuple, dispersionCorrection)

	sorted := make(temporaryList, len(register))
	copy(sorted, register[:])
	sort.Stable(sorted)

	n := validPrefixLen(sorted)
	best := sorted[0]

	if best.Time.Sub(peerTime) <= protocol.ZeroDuration && leapIndicator.IsSynchronized() {
		return register, PeerStatistics{}, false
	}

	jitter := computeJitter(sorted[:n], best, systemPrecision)

	stats := PeerStatistics{
		Offset:     best.Offset,
		Delay:      best.Delay,
		Dispersion: dispersionOf(sorted),
		Jitter:     jitter,
		Filter:     register,
		FilterTime: best.Time,
	}
	return register, stats, true
}

// dispersionOf sums each tuple's dispersion weighted by 2^-(i+1), i being
// its position in the delay-sorted list. Invariant: sorted must already be
// ordered by increasing delay. All 8 register slots contribute, including
// DUMMYs, which is why a freshly bootstrapped all-DUMMY register still
// yields a bounded, non-zero dispersion (the series converges to
// MaxDispersion as the register fills with DUMMY entries).
func dispersionOf(sorted temporaryList) protocol.NtpDuration {
	var sum protocol.NtpDuration
	for i, t := range sorted {
		sum += t.Dispersion / (1 << uint(i+1))
	}
	return sum
}

// computeJitter is the RMS scatter of valid tuples' offsets around the
// lowest-delay sample's offset, divided by (n-1) as the protocol specifies
// (not n), floored at systemPrecision. A single valid tuple has zero jitter.
func computeJitter(valid []FilterTuple, best FilterTuple, systemPrecision protocol.NtpDuration) float64 {
	n := len(valid)
	if n <= 1 {
		return 0
	}

	var sumSquares float64
	for _, t := range valid {
		diff := t.Offset.Seconds() - best.Offset.Seconds()
		sumSquares += diff * diff
	}
	// Divide by (n-1) *after* the square root, matching the reference
	// implementation's root_mean_square / (n-1) — not sqrt(sum/(n-1)).
	jitter := math.Sqrt(sumSquares) / float64(n-1)
	return math.Max(jitter, systemPrecision.Seconds())
}
