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
	"sync/atomic"
	"unsafe"
)

// TransferCacheManager is the flat, unsharded array of per-class rings.
// Unlike ShardedTransferCacheManager, it is willing to steal capacity
// across classes: a ring that needs to grow may shrink a victim ring
// chosen by DetermineSizeClassToEvict.
type TransferCacheManager struct {
	caches       [NumClasses]*RingBufferTransferCache
	nextToEvict  int32
}

// NewTransferCacheManager builds a manager with one ring per size class,
// sized by sizeOf and moved in batches of batchOf(cl) objects, each
// backed by a fresh freelist from newFreeList. A nil freelist returned for
// any class fails the whole manager rather than leaving a hole in caches.
func NewTransferCacheManager(sizeOf SizeClassSizer, batchOf BatchSizer, newFreeList func(sizeClass int) CentralFreeList) (*TransferCacheManager, error) {
	m := &TransferCacheManager{nextToEvict: 1}
	for cl := 0; cl < NumClasses; cl++ {
		batch := batchOf(cl)
		capMax := maxCapacityFor(sizeOf(cl), batch)
		ring, err := NewRingBufferTransferCache(cl, batch, batch, capMax, newFreeList(cl), m)
		if err != nil {
			return nil, err
		}
		m.caches[cl] = ring
	}
	return m, nil
}

func maxCapacityFor(objectSize, batch int) int {
	if objectSize <= 0 {
		return batch
	}
	n := MaxShardClassBytes / objectSize
	if n < batch {
		return batch
	}
	return n
}

// InsertRange forwards to size class cl's ring.
func (m *TransferCacheManager) InsertRange(cl int, batch []unsafe.Pointer) {
	m.caches[cl].InsertRange(batch)
}

// RemoveRange forwards to size class cl's ring.
func (m *TransferCacheManager) RemoveRange(cl int, out []unsafe.Pointer, n int) int {
	return m.caches[cl].RemoveRange(out, n)
}

// Plunder drains every class's ring that has seen no traffic since the
// previous call.
func (m *TransferCacheManager) Plunder() {
	for _, c := range m.caches {
		c.TryPlunder()
	}
}

// TcLength reports the current length of size class cl's ring.
func (m *TransferCacheManager) TcLength(cl int) int {
	return m.caches[cl].TcLength()
}

// GetHitRateStats reports size class cl's hit/miss counters.
func (m *TransferCacheManager) GetHitRateStats(cl int) HitRateStats {
	return m.caches[cl].GetHitRateStats()
}

// DetermineSizeClassToEvict implements CapacityManager: round-robin from
// nextToEvict, skipping the requesting class itself and any empty ring,
// starting the search at 1 as the original does (class 0 is conventionally
// unused/reserved).
func (m *TransferCacheManager) DetermineSizeClassToEvict(sizeClass int) int {
	for i := 0; i < NumClasses; i++ {
		cl := int(atomic.AddInt32(&m.nextToEvict, 1)-1) % NumClasses
		if cl == sizeClass {
			continue
		}
		if m.caches[cl].TcLength() > 0 {
			return cl
		}
	}
	return -1
}

// MakeCacheSpace implements CapacityManager: finds a victim via
// DetermineSizeClassToEvict and asks it to shrink by one batch.
func (m *TransferCacheManager) MakeCacheSpace(sizeClass int) bool {
	victim := m.DetermineSizeClassToEvict(sizeClass)
	if victim < 0 {
		return false
	}
	return m.caches[victim].ShrinkCache()
}

// ShrinkCache implements CapacityManager by forwarding to sizeClass's own
// ring, for symmetry with the original's private member of the same name.
func (m *TransferCacheManager) ShrinkCache(sizeClass int) bool {
	return m.caches[sizeClass].ShrinkCache()
}
