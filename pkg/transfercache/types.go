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

// Package transfercache implements a per-size-class batch cache of small
// object pointers sitting between fast per-CPU callers and a central free
// list, either sharded per L3 cache domain or flat across the whole
// process.
package transfercache

// NumClasses bounds the size classes this package tracks. The original
// central-freelist size-class table is an external, opaque collaborator
// here (see CentralFreeList); NumClasses is a stand-in for its row count,
// sized generously rather than pinned to any particular allocator's table.
const NumClasses = 32

// ActivationThresholdBytes is the minimum per-object size, in bytes, for
// which the sharded path is used at all; ShouldUse reports false for
// classes below it, and their shard rings have zero capacity, so objects
// pushed for them go straight to the central free list.
const ActivationThresholdBytes = 4096

// MaxShardClassBytes caps how many bytes of objects a single shard's ring
// for one size class may hold.
const MaxShardClassBytes = 12 << 20

// HitRateStats summarizes how often InsertRange/RemoveRange served a
// caller from the ring versus falling through to the backing free list.
type HitRateStats struct {
	InsertHits, InsertMisses uint64
	RemoveHits, RemoveMisses uint64
}
