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

// NoStealingManager is the CapacityManager every ShardedTransferCacheManager
// ring uses: a shard never steals capacity from another class's ring, so a
// ring that needs to grow overflows straight to its free list instead.
type NoStealingManager struct{}

func (NoStealingManager) MakeCacheSpace(sizeClass int) bool        { return false }
func (NoStealingManager) DetermineSizeClassToEvict(int) int        { return -1 }
func (NoStealingManager) ShrinkCache(sizeClass int) bool           { return false }
