// Copyright The NRI Plugins Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package huge

import "time"

// extrema is the (min, max) pair recorded for a single epoch.
type extrema struct {
	min, max Length
	seen     bool
}

func nilExtrema() extrema {
	return extrema{min: ^Length(0), max: 0, seen: false}
}

func (e *extrema) report(n Length) {
	if !e.seen {
		e.min, e.max, e.seen = n, n, true
		return
	}
	e.min = e.min.Min(n)
	e.max = e.max.Max(n)
}

// MinMaxTracker tracks the extreme Length values reported over the
// trailing window w, using a fixed number of epochs to bound memory and
// give approximate (rather than exact) time ranges. Go has no
// const-generic integer parameters, so the epoch count that the
// original takes as a template argument is instead a constructor
// argument fixed for the tracker's lifetime.
type MinMaxTracker struct {
	epochs      []extrema
	epochLength time.Duration
	window      time.Duration
	clock       func() time.Time

	// epoch is the index (mod len(epochs)) of the most recently written
	// epoch; epochStart is the wall-clock time that epoch began.
	epoch      int
	epochStart time.Time
	started    bool
}

// NewMinMaxTracker returns a tracker with numEpochs epochs spanning the
// trailing window w. Reports and queries use now() as the clock, allowing
// tests to inject a deterministic clock.
func NewMinMaxTracker(numEpochs int, w time.Duration, now func() time.Time) *MinMaxTracker {
	if numEpochs < 1 {
		numEpochs = 1
	}
	if now == nil {
		now = time.Now
	}
	epochs := make([]extrema, numEpochs)
	for i := range epochs {
		epochs[i] = nilExtrema()
	}
	return &MinMaxTracker{
		epochs:      epochs,
		epochLength: w / time.Duration(numEpochs),
		window:      w,
		clock:       now,
	}
}

// advance rolls the epoch ring forward to match the current time,
// resetting any epochs that have fully elapsed since the last report.
func (t *MinMaxTracker) advance() {
	now := t.clock()
	if !t.started {
		t.started = true
		t.epochStart = now
		return
	}

	if t.epochLength <= 0 {
		return
	}

	elapsed := now.Sub(t.epochStart)
	ticks := int64(elapsed / t.epochLength)
	if ticks <= 0 {
		return
	}

	n := len(t.epochs)
	reset := ticks
	if reset > int64(n) {
		reset = int64(n)
	}
	for i := int64(0); i < reset; i++ {
		t.epoch = (t.epoch + 1) % n
		t.epochs[t.epoch] = nilExtrema()
	}
	t.epochStart = t.epochStart.Add(time.Duration(ticks) * t.epochLength)
}

// Report records a single observation of the tracked value in the
// current epoch.
func (t *MinMaxTracker) Report(n Length) {
	t.advance()
	t.epochs[t.epoch].report(n)
}

// epochsCovering returns how many trailing epochs (including the
// current, partial one) cover a lookback of d.
func (t *MinMaxTracker) epochsCovering(d time.Duration) int {
	if t.epochLength <= 0 || d < t.epochLength {
		return 1
	}
	n := int(d / t.epochLength)
	if d%t.epochLength != 0 {
		n++
	}
	if n > len(t.epochs) {
		n = len(t.epochs)
	}
	if n < 1 {
		n = 1
	}
	return n
}

// MaxOverTime returns the maximum reported value over the trailing
// window of duration d (approximate: rounded up to whole epochs).
func (t *MinMaxTracker) MaxOverTime(d time.Duration) Length {
	t.advance()
	n := t.epochsCovering(d)
	var max Length
	found := false
	idx := t.epoch
	for i := 0; i < n; i++ {
		e := t.epochs[idx]
		if e.seen {
			if !found || e.max > max {
				max = e.max
				found = true
			}
		}
		idx--
		if idx < 0 {
			idx = len(t.epochs) - 1
		}
	}
	return max
}

// MinOverTime returns the minimum reported value over the trailing
// window of duration d (approximate: rounded up to whole epochs).
func (t *MinMaxTracker) MinOverTime(d time.Duration) Length {
	t.advance()
	n := t.epochsCovering(d)
	var min Length
	found := false
	idx := t.epoch
	for i := 0; i < n; i++ {
		e := t.epochs[idx]
		if e.seen {
			if !found || e.min < min {
				min = e.min
				found = true
			}
		}
		idx--
		if idx < 0 {
			idx = len(t.epochs) - 1
		}
	}
	return min
}
