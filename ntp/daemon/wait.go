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

import "time"

// Wait abstracts the poll-timer future the event loop selects on. The
// production implementation wraps a real time.Timer; tests inject a
// controllable fake whose readiness is explicitly poked, which is the only
// way to deterministically sequence poll-vs-recv events in a test (§9).
type Wait interface {
	// C returns the channel that becomes ready when the deadline elapses.
	C() <-chan time.Time
	// Reset rearms the timer for a new deadline, replacing any pending one.
	Reset(deadline time.Time)
	// Stop releases timer resources; safe to call multiple times.
	Stop()
}

// timerWait is the real Wait backed by time.Timer.
type timerWait struct {
	timer *time.Timer
}

// NewTimerWait creates a Wait armed for the given deadline.
func NewTimerWait(deadline time.Time) Wait {
	return &timerWait{timer: time.NewTimer(time.Until(deadline))}
}

func (w *timerWait) C() <-chan time.Time {
	return w.timer.C
}

func (w *timerWait) Reset(deadline time.Time) {
	if !w.timer.Stop() {
		select {
		case <-w.timer.C:
		default:
		}
	}
	w.timer.Reset(time.Until(deadline))
}

func (w *timerWait) Stop() {
	w.timer.Stop()
}
