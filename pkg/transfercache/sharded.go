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
	"sync"
	"sync/atomic"
	"unsafe"
)

// shard pairs a once-flag, single-execution initializer with an
// independently readable atomic "is complete" bit: the once-flag alone
// cannot tell a caller like TotalBytes or Plunder whether a half-built
// shard is safe to read, so both are kept side by side.
type shard struct {
	once          sync.Once
	initialized   atomic.Bool
	transferCaches [NumClasses]*RingBufferTransferCache
}

// ShardedTransferCacheManager partitions per-size-class rings by L3 cache
// domain: every CPU sharing an L3 cache shares a shard, so pointer
// shuttling between CPUs on the same socket never crosses cache lines
// belonging to another socket's shard.
type ShardedTransferCacheManager struct {
	cpuLayout CPULayout
	sizeOf    SizeClassSizer
	batchOf   BatchSizer
	newFreeList func(sizeClass int) CentralFreeList

	l3Index  []uint8
	shards   []*shard
	numShards int

	activeForClass [NumClasses]bool
}

// NewShardedTransferCacheManager builds a manager whose shard table is
// not yet populated; call Init before first use.
func NewShardedTransferCacheManager(cpuLayout CPULayout, sizeOf SizeClassSizer, batchOf BatchSizer, newFreeList func(sizeClass int) CentralFreeList) *ShardedTransferCacheManager {
	return &ShardedTransferCacheManager{
		cpuLayout:   cpuLayout,
		sizeOf:      sizeOf,
		batchOf:     batchOf,
		newFreeList: newFreeList,
	}
}

// Init builds the CPU→shard table and the per-class activation table.
// A shard's rings stay unbuilt until Push or Pop first runs on a CPU
// mapped to that shard. A CPU layout that reports zero
// shards is a caller mistake and returns ErrNoShards.
func (m *ShardedTransferCacheManager) Init() error {
	m.l3Index, m.numShards = m.cpuLayout.BuildCacheMap()
	if m.numShards <= 0 {
		return ErrNoShards
	}

	m.shards = make([]*shard, m.numShards)
	for i := range m.shards {
		m.shards[i] = &shard{}
	}

	for cl := 0; cl < NumClasses; cl++ {
		m.activeForClass[cl] = m.sizeOf(cl) >= ActivationThresholdBytes
	}
	return nil
}

// ShouldUse reports whether cl is large enough for the sharded path.
func (m *ShardedTransferCacheManager) ShouldUse(cl int) bool {
	return m.activeForClass[cl]
}

func (m *ShardedTransferCacheManager) initShard(s *shard) {
	for cl := 0; cl < NumClasses; cl++ {
		objectSize := m.sizeOf(cl)
		capacity := 0
		if m.activeForClass[cl] && objectSize > 0 {
			capacity = MaxShardClassBytes / objectSize
		}
		batch := m.batchOf(cl)
		// Inactive classes get a zero-capacity ring: every InsertRange and
		// RemoveRange falls straight through to the central free list
		// rather than buffering a batch locally, matching transfer_cache.h's
		// capacity > 0 ? cl : 0 shard sizing.
		ring, err := NewRingBufferTransferCache(cl, batch, capacity, capacity, m.newFreeList(cl), NoStealingManager{})
		if err != nil {
			// cl and capacity are computed here, not caller-supplied; only a
			// broken newFreeList factory can reach this, which Init's caller
			// had every opportunity to catch before any CPU touched a shard.
			panic(err)
		}
		s.transferCaches[cl] = ring
	}
	s.initialized.Store(true)
}

// getCache resolves the current CPU to its shard, lazily initializing the
// shard on first access, and returns the ring for cl.
func (m *ShardedTransferCacheManager) getCache(cl int) *RingBufferTransferCache {
	cpu := m.cpuLayout.CurrentCPU()
	shardIdx := 0
	if cpu >= 0 && cpu < len(m.l3Index) {
		shardIdx = int(m.l3Index[cpu])
	}
	s := m.shards[shardIdx]
	s.once.Do(func() { m.initShard(s) })
	return s.transferCaches[cl]
}

// Push inserts a single pointer into cl's shard-local ring.
func (m *ShardedTransferCacheManager) Push(cl int, ptr unsafe.Pointer) {
	m.getCache(cl).InsertRange([]unsafe.Pointer{ptr})
}

// Pop removes a single pointer from cl's shard-local ring, or returns nil.
func (m *ShardedTransferCacheManager) Pop(cl int) unsafe.Pointer {
	out := make([]unsafe.Pointer, 1)
	if got := m.getCache(cl).RemoveRange(out, 1); got == 1 {
		return out[0]
	}
	return nil
}

// Plunder drains every initialized shard's idle rings back to their free
// lists. Shards never touched by any CPU are skipped entirely — there is
// nothing in them to drain.
func (m *ShardedTransferCacheManager) Plunder() {
	for _, s := range m.shards {
		if !s.initialized.Load() {
			continue
		}
		for cl := 0; cl < NumClasses; cl++ {
			s.transferCaches[cl].TryPlunder()
		}
	}
}

// TcLength reports the ring length for cl on the shard cpu maps to. A CPU
// whose shard has never been initialized reports zero rather than forcing
// initialization just to answer a stats query.
func (m *ShardedTransferCacheManager) TcLength(cpu, cl int) int {
	if cpu < 0 || cpu >= len(m.l3Index) {
		return 0
	}
	s := m.shards[m.l3Index[cpu]]
	if !s.initialized.Load() {
		return 0
	}
	return s.transferCaches[cl].TcLength()
}

// ShardInitialized reports whether the shard at shardIdx has completed
// lazy initialization.
func (m *ShardedTransferCacheManager) ShardInitialized(shardIdx int) bool {
	if shardIdx < 0 || shardIdx >= len(m.shards) {
		return false
	}
	return m.shards[shardIdx].initialized.Load()
}

// TotalBytes sums, across every initialized shard and active class, the
// bytes currently sitting in shard rings.
func (m *ShardedTransferCacheManager) TotalBytes() uint64 {
	var total uint64
	for _, s := range m.shards {
		if !s.initialized.Load() {
			continue
		}
		for cl := 0; cl < NumClasses; cl++ {
			bytesPerEntry := m.sizeOf(cl)
			if bytesPerEntry <= 0 {
				continue
			}
			total += uint64(s.transferCaches[cl].TcLength()) * uint64(bytesPerEntry)
		}
	}
	return total
}
