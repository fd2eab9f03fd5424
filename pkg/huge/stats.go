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

// BackingStats summarizes the memory a Cache currently accounts for, in
// the shape a higher-level allocator's own stats surface expects.
type BackingStats struct {
	SystemBytes   uint64
	FreeBytes     uint64
	UnmappedBytes uint64
}

// SkipSubreleaseIntervals bounds demand-based release: Short and Long
// are lookback windows used to estimate recent peak demand (Short takes
// priority if both are set); Realized is the lookback used to compute
// the "realized fragmentation" floor. Leaving both Short and Long zero
// disables demand-based release; a zero Realized makes the cache use its
// own cap demand interval (CapDemandInterval unless overridden).
type SkipSubreleaseIntervals struct {
	Short    time.Duration
	Long     time.Duration
	Realized time.Duration
}

// Empty reports whether both demand-estimation windows are unset, which
// disables demand-based release entirely.
func (i SkipSubreleaseIntervals) Empty() bool {
	return i.Short == 0 && i.Long == 0
}

// SubreleaseStats is a point-in-time snapshot of the numbers a periodic
// releaser or a stats dump cares about.
type SubreleaseStats struct {
	NumPages             uint64
	FreePages            uint64
	NumPagesSubreleased  uint64
}

// StatsTracker records a rolling history of SubreleaseStats, readable
// through Recent. It plays no part in the sizing or release decisions,
// which instead consult the usage/size MinMaxTrackers directly; Cache
// records into one after each demand-based release, and neither Print
// nor WriteDebugState reads it back.
type StatsTracker struct {
	history    []SubreleaseStats
	capacity   int
	next       int
	count      int
}

// NewStatsTracker returns a tracker retaining up to capacity samples.
func NewStatsTracker(capacity int) *StatsTracker {
	if capacity < 1 {
		capacity = 1
	}
	return &StatsTracker{
		history:  make([]SubreleaseStats, capacity),
		capacity: capacity,
	}
}

// Report appends a sample, evicting the oldest once capacity is reached.
func (t *StatsTracker) Report(s SubreleaseStats) {
	t.history[t.next] = s
	t.next = (t.next + 1) % t.capacity
	if t.count < t.capacity {
		t.count++
	}
}

// Recent returns the samples recorded so far, oldest first.
func (t *StatsTracker) Recent() []SubreleaseStats {
	out := make([]SubreleaseStats, 0, t.count)
	start := (t.next - t.count + t.capacity) % t.capacity
	for i := 0; i < t.count; i++ {
		out = append(out, t.history[(start+i)%t.capacity])
	}
	return out
}
