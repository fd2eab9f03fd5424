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

package transfercache

import (
	"fmt"
	"sync"
	"unsafe"
)

// RingBufferTransferCache is a fixed-backing-array, dynamically-capped
// ring of object pointers for a single size class. It batches between a
// fast caller and a CentralFreeList, growing and shrinking its active
// capacity (never its backing array) under direction of a CapacityManager.
type RingBufferTransferCache struct {
	mu sync.Mutex

	ring       []unsafe.Pointer
	head, tail int
	length     int

	capacity    int
	capacityMax int
	batchSize   int
	sizeClass   int

	manager  CapacityManager
	freelist CentralFreeList

	touches     uint64
	plunderMark uint64

	insertHits, insertMisses uint64
	removeHits, removeMisses uint64
}

// NewRingBufferTransferCache builds a ring for sizeClass, with a fixed
// backing array of capacityMax slots, an initial active capacity of
// capacity (≤ capacityMax), batches of batchSize objects, and freelist as
// its overflow/underflow collaborator. sizeClass out of range, a nil
// freelist, or a batch that can never fit a positive capacityMax are
// caller mistakes and return a wrapped sentinel error instead of a ring.
func NewRingBufferTransferCache(sizeClass, batchSize, capacity, capacityMax int, freelist CentralFreeList, manager CapacityManager) (*RingBufferTransferCache, error) {
	if sizeClass < 0 || sizeClass >= NumClasses {
		return nil, ErrInvalidSizeClass(sizeClass)
	}
	if freelist == nil {
		return nil, ErrNilFreeList
	}
	if capacityMax > 0 && batchSize > capacityMax {
		return nil, fmt.Errorf("%w: batch %d exceeds capacity %d for class %d", ErrBatchTooLarge, batchSize, capacityMax, sizeClass)
	}

	if capacity > capacityMax {
		capacity = capacityMax
	}
	freelist.Init(sizeClass)
	return &RingBufferTransferCache{
		ring:        make([]unsafe.Pointer, capacityMax),
		capacity:    capacity,
		capacityMax: capacityMax,
		batchSize:   batchSize,
		sizeClass:   sizeClass,
		manager:     manager,
		freelist:    freelist,
	}, nil
}

// SizeClass returns the size class this ring serves.
func (c *RingBufferTransferCache) SizeClass() int {
	return c.sizeClass
}

// TcLength returns the number of objects currently sitting in the ring.
func (c *RingBufferTransferCache) TcLength() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.length
}

// GetHitRateStats returns a snapshot of this ring's insert/remove hit and
// miss counters.
func (c *RingBufferTransferCache) GetHitRateStats() HitRateStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return HitRateStats{
		InsertHits:   c.insertHits,
		InsertMisses: c.insertMisses,
		RemoveHits:   c.removeHits,
		RemoveMisses: c.removeMisses,
	}
}

func (c *RingBufferTransferCache) push(p unsafe.Pointer) {
	c.ring[c.tail] = p
	c.tail++
	if c.tail == len(c.ring) {
		c.tail = 0
	}
	c.length++
}

func (c *RingBufferTransferCache) pop() unsafe.Pointer {
	p := c.ring[c.head]
	c.ring[c.head] = nil
	c.head++
	if c.head == len(c.ring) {
		c.head = 0
	}
	c.length--
	return p
}

// InsertRange offers a batch of up to batchSize pointers to the ring. If
// there isn't room, it first tries to grow by one batch via the capacity
// manager; failing that, the whole batch overflows straight to the
// backing free list.
func (c *RingBufferTransferCache) InsertRange(batch []unsafe.Pointer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capacity-c.length < len(batch) {
		if !c.growByOneBatch() || c.capacity-c.length < len(batch) {
			c.insertMisses++
			c.freelist.InsertRange(batch)
			return
		}
	}

	for _, p := range batch {
		c.push(p)
	}
	c.insertHits++
	c.touch()
}

// RemoveRange takes up to n pointers off the head of the ring into out,
// refilling once from the backing free list (at most one batch, bounded
// by free capacity) if the ring holds fewer than n, and returns the count
// actually removed.
func (c *RingBufferTransferCache) RemoveRange(out []unsafe.Pointer, n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.length < n {
		c.refillFromFreelist()
	}

	if c.length >= n {
		for i := 0; i < n; i++ {
			out[i] = c.pop()
		}
		c.removeHits++
		c.touch()
		return n
	}

	c.removeMisses++
	taken := 0
	for c.length > 0 && taken < n {
		out[taken] = c.pop()
		taken++
	}
	if taken > 0 {
		c.touch()
	}
	return taken
}

func (c *RingBufferTransferCache) refillFromFreelist() {
	room := c.capacity - c.length
	if room <= 0 {
		return
	}
	want := c.batchSize
	if want > room {
		want = room
	}
	refill := make([]unsafe.Pointer, want)
	got := c.freelist.RemoveRange(refill, want)
	for i := 0; i < got; i++ {
		c.push(refill[i])
	}
}

// ShrinkCache gives back one batch of active capacity if the ring is
// sparse enough to spare it. Called by a CapacityManager on a victim
// ring chosen by DetermineSizeClassToEvict.
func (c *RingBufferTransferCache) ShrinkCache() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.length < c.capacity-c.batchSize {
		c.capacity -= c.batchSize
		return true
	}
	return false
}

func (c *RingBufferTransferCache) growByOneBatch() bool {
	if c.capacity+c.batchSize > c.capacityMax {
		return false
	}
	if !c.manager.MakeCacheSpace(c.sizeClass) {
		return false
	}
	c.capacity += c.batchSize
	return true
}

func (c *RingBufferTransferCache) touch() {
	c.touches++
}

// TryPlunder drains the ring back to the free list if it has not been
// touched (an insert or a remove) since the previous TryPlunder call.
func (c *RingBufferTransferCache) TryPlunder() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.touches != c.plunderMark {
		c.plunderMark = c.touches
		return
	}

	for c.length > 0 {
		n := c.batchSize
		if n > c.length {
			n = c.length
		}
		batch := make([]unsafe.Pointer, n)
		for i := 0; i < n; i++ {
			batch[i] = c.pop()
		}
		c.freelist.InsertRange(batch)
	}
	c.plunderMark = c.touches
}
