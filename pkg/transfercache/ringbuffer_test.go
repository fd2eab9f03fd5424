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

package transfercache_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	. "github.com/grunthon/tcmalloc/pkg/transfercache"
)

// TestInsertRemoveWithinCapacity is seed scenario S5: an empty ring with
// B=32, capacity=64 serves a full batch insert and removal without ever
// touching the backing free list, in FIFO order.
func TestInsertRemoveWithinCapacity(t *testing.T) {
	fl := &fakeFreeList{}
	ring, err := NewRingBufferTransferCache(0, 32, 64, 64, fl, NoStealingManager{})
	require.NoError(t, err)

	ptrs := fakePointers(32)
	ring.InsertRange(ptrs)
	require.Equal(t, 32, ring.TcLength())
	require.Equal(t, 0, fl.insertCalls)

	out := make([]unsafe.Pointer, 32)
	n := ring.RemoveRange(out, 32)
	require.Equal(t, 32, n)
	require.Equal(t, 0, ring.TcLength())
	require.Equal(t, ptrs, out, "pointers come out in the order they went in")

	stats := ring.GetHitRateStats()
	require.Equal(t, uint64(1), stats.InsertHits)
	require.Equal(t, uint64(1), stats.RemoveHits)
}

// TestOverflowFallsThroughWhenGrowthDenied: a ring with no manager-granted
// slack overflows a batch it cannot fit straight to the free list rather
// than partially admitting it.
func TestOverflowFallsThroughWhenGrowthDenied(t *testing.T) {
	fl := &fakeFreeList{}
	ring, err := NewRingBufferTransferCache(1, 4, 4, 4, fl, NoStealingManager{})
	require.NoError(t, err)

	ring.InsertRange(fakePointers(4))
	require.Equal(t, 4, ring.TcLength())

	overflow := fakePointers(4)
	ring.InsertRange(overflow)
	require.Equal(t, 4, ring.TcLength(), "capacity is full and NoStealingManager refuses to grow it")
	require.Equal(t, 1, fl.insertCalls)
	require.Equal(t, overflow, fl.store)

	stats := ring.GetHitRateStats()
	require.Equal(t, uint64(1), stats.InsertHits)
	require.Equal(t, uint64(1), stats.InsertMisses)
}

// TestRemoveRefillsFromFreeList: an underflowing RemoveRange pulls a
// batch from the free list before giving up.
func TestRemoveRefillsFromFreeList(t *testing.T) {
	fl := &fakeFreeList{}
	seed := fakePointers(4)
	fl.InsertRange(seed)
	fl.insertCalls = 0 // seeding isn't part of what we're asserting

	ring, err := NewRingBufferTransferCache(2, 4, 4, 4, fl, NoStealingManager{})
	require.NoError(t, err)

	out := make([]unsafe.Pointer, 4)
	n := ring.RemoveRange(out, 4)
	require.Equal(t, 4, n)
	require.Equal(t, seed, out)
	require.Equal(t, 1, fl.removeCalls)
	require.Equal(t, 0, ring.TcLength())

	stats := ring.GetHitRateStats()
	require.Equal(t, uint64(1), stats.RemoveHits)
}

// TestTryPlunderDrainsAfterSecondIdleCall is seed scenario S6: a ring with
// length 40 and no traffic between two TryPlunder calls empties out on the
// second call, handing everything to the free list.
func TestTryPlunderDrainsAfterSecondIdleCall(t *testing.T) {
	fl := &fakeFreeList{}
	ring, err := NewRingBufferTransferCache(3, 8, 64, 64, fl, NoStealingManager{})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		ring.InsertRange(fakePointers(8))
	}
	require.Equal(t, 40, ring.TcLength())

	ring.TryPlunder()
	require.Equal(t, 40, ring.TcLength(), "first call only arms the idle check")

	ring.TryPlunder()
	require.Equal(t, 0, ring.TcLength(), "second idle call drains everything")
	require.Equal(t, 40, fl.Length())
}

// TestTryPlunderSkipsIfTouchedBetweenCalls: activity between two
// TryPlunder calls resets the idle detector instead of draining.
func TestTryPlunderSkipsIfTouchedBetweenCalls(t *testing.T) {
	fl := &fakeFreeList{}
	ring, err := NewRingBufferTransferCache(4, 4, 16, 16, fl, NoStealingManager{})
	require.NoError(t, err)

	ring.InsertRange(fakePointers(4))
	ring.TryPlunder()

	ring.InsertRange(fakePointers(4))
	ring.TryPlunder()
	require.Equal(t, 8, ring.TcLength(), "the second insert re-armed the idle check")
}

// TestFIFOUnderMixedTraffic is invariant 7: whenever insertions never
// exceed capacity and removals never exceed length, pointers always come
// out in FIFO order, even across multiple interleaved batches.
func TestFIFOUnderMixedTraffic(t *testing.T) {
	fl := &fakeFreeList{}
	ring, err := NewRingBufferTransferCache(5, 4, 16, 16, fl, NoStealingManager{})
	require.NoError(t, err)

	var want []unsafe.Pointer

	batch1 := fakePointers(4)
	ring.InsertRange(batch1)
	want = append(want, batch1...)

	batch2 := fakePointers(4)
	ring.InsertRange(batch2)
	want = append(want, batch2...)

	out := make([]unsafe.Pointer, 3)
	ring.RemoveRange(out, 3)
	require.Equal(t, want[:3], out)
	want = want[3:]

	batch3 := fakePointers(3)
	ring.InsertRange(batch3)
	want = append(want, batch3...)

	rest := make([]unsafe.Pointer, len(want))
	n := ring.RemoveRange(rest, len(want))
	require.Equal(t, len(want), n)
	require.Equal(t, want, rest)
}

// TestNewRingBufferTransferCacheRejectsOutOfRangeSizeClass confirms a
// caller-supplied sizeClass outside [0, NumClasses) is reported rather
// than silently indexed later.
func TestNewRingBufferTransferCacheRejectsOutOfRangeSizeClass(t *testing.T) {
	_, err := NewRingBufferTransferCache(NumClasses, 4, 4, 4, &fakeFreeList{}, NoStealingManager{})
	require.ErrorIs(t, err, ErrSizeClassRange)
}

// TestNewRingBufferTransferCacheRejectsNilFreeList confirms a missing
// overflow/underflow collaborator is caught at construction.
func TestNewRingBufferTransferCacheRejectsNilFreeList(t *testing.T) {
	_, err := NewRingBufferTransferCache(0, 4, 4, 4, nil, NoStealingManager{})
	require.ErrorIs(t, err, ErrNilFreeList)
}

// TestNewRingBufferTransferCacheRejectsOversizedBatch confirms a batch
// that can never fit inside a positive capacityMax is rejected instead
// of silently producing a ring that overflows to the free list forever.
func TestNewRingBufferTransferCacheRejectsOversizedBatch(t *testing.T) {
	_, err := NewRingBufferTransferCache(0, 8, 4, 4, &fakeFreeList{}, NoStealingManager{})
	require.ErrorIs(t, err, ErrBatchTooLarge)
}
