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

import "unsafe"

// CentralFreeList is the per-size-class backing store a ring falls
// through to on overflow or underflow, and drains into on Plunder. It is
// this package's opaque collaborator, owned and synchronized elsewhere.
type CentralFreeList interface {
	Init(sizeClass int)
	InsertRange(batch []unsafe.Pointer)
	RemoveRange(batch []unsafe.Pointer, n int) int
	SizeClass() int
	Length() int
}

// SizeClassSizer reports the per-object byte size of a size class, the Go
// rendering of StaticForwarder.class_to_size.
type SizeClassSizer func(sizeClass int) int

// BatchSizer reports how many objects move per batch for a size class
// (StaticForwarder.num_objects_to_move).
type BatchSizer func(sizeClass int) int

// CapacityManager lets a ring request more capacity from its owner, which
// may have to steal it from another size class's ring first.
type CapacityManager interface {
	// MakeCacheSpace asks the manager to free up one batch's worth of
	// capacity so sizeClass's ring may grow. Returns whether it could.
	MakeCacheSpace(sizeClass int) bool
	// DetermineSizeClassToEvict picks a victim class to steal capacity
	// from on behalf of sizeClass, or -1 if none is eligible.
	DetermineSizeClassToEvict(sizeClass int) int
	// ShrinkCache asks sizeClass's own ring to give back one batch of
	// capacity. Returns whether it had room to.
	ShrinkCache(sizeClass int) bool
}

// CPULayout resolves the current CPU to an L3 shard index and builds the
// CPU-to-shard table ShardedTransferCacheManager partitions its rings by.
type CPULayout interface {
	// CurrentCPU returns the calling goroutine's current CPU index. Since
	// goroutines migrate between CPUs, this is advisory: a miss only
	// costs an extra lock handoff, never correctness.
	CurrentCPU() int
	// BuildCacheMap fills l3Index[cpu] with cpu's L3 shard index for every
	// CPU the layout knows about, and returns the number of distinct
	// shards found.
	BuildCacheMap() (l3Index []uint8, numShards int)
}
