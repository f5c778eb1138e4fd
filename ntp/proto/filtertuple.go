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

// FilterTuple is one (offset, delay, dispersion, time) sample held by a
// ClockFilterRegister.
type FilterTuple struct {
	Offset     protocol.NtpDuration
	Delay      protocol.NtpDuration
	Dispersion protocol.NtpDuration
	Time       protocol.NtpTimestamp
}

// DummyTuple is the distinguished sentinel a ClockFilterRegister is
// initialized with. Equality with DummyTuple marks a register slot as
// never having held a real sample.
var DummyTuple = FilterTuple{
	Offset:     protocol.ZeroDuration,
	Delay:      protocol.MaxDispersion,
	Dispersion: protocol.MaxDispersion,
	Time:       protocol.NtpEpoch,
}

// IsDummy reports whether this tuple is the DUMMY sentinel.
func (t FilterTuple) IsDummy() bool {
	return t == DummyTuple
}
