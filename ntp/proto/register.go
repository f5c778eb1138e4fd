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

import "github.com/facebook/ntpd/ntp/protocol"

// ClockFilterRegister is the fixed eight-stage shift register RFC 5905
// §A.5.2 maintains per peer, newest sample at index 0.
type ClockFilterRegister [8]FilterTuple

// NewClockFilterRegister returns a register initialized to all-DUMMY, the
// state a freshly created Peer's filter starts in.
func NewClockFilterRegister() ClockFilterRegister {
	var r ClockFilterRegister
	for i := range r {
		r[i] = DummyTuple
	}
	return r
}

// ShiftAndInsert ages every non-DUMMY tuple currently held by dispersionCorrection,
// then shifts the register right by one slot and inserts current at index 0,
// discarding the oldest (index 7) tuple. DUMMY tuples are left untouched by
// the aging step — adding to a DUMMY's dispersion would change its identity
// and it would no longer compare equal to DummyTuple.
func (r *ClockFilterRegister) ShiftAndInsert(current FilterTuple, dispersionCorrection protocol.NtpDuration) {
	for i := range r {
		if !r[i].IsDummy() {
			r[i].Dispersion += dispersionCorrection
		}
	}
	for i := len(r) - 1; i > 0; i-- {
		r[i] = r[i-1]
	}
	r[0] = current
}
