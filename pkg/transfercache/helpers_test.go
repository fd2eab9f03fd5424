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
	"sync"
	"unsafe"
)

// fakeFreeList is a CentralFreeList backed by a plain slice, for tests
// that need to observe exactly what spilled past the ring.
type fakeFreeList struct {
	mu          sync.Mutex
	sizeClass   int
	store       []unsafe.Pointer
	insertCalls int
	removeCalls int
}

func (f *fakeFreeList) Init(cl int) { f.sizeClass = cl }

func (f *fakeFreeList) InsertRange(batch []unsafe.Pointer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	f.store = append(f.store, batch...)
}

func (f *fakeFreeList) RemoveRange(batch []unsafe.Pointer, n int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCalls++
	took := 0
	for took < n && len(f.store) > 0 {
		batch[took] = f.store[0]
		f.store = f.store[1:]
		took++
	}
	return took
}

func (f *fakeFreeList) SizeClass() int { return f.sizeClass }

func (f *fakeFreeList) Length() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.store)
}

// fakePointers returns n distinct, stable unsafe.Pointer values backed by
// a slice that outlives the call, suitable for identity comparisons.
func fakePointers(n int) []unsafe.Pointer {
	backing := make([]int, n)
	out := make([]unsafe.Pointer, n)
	for i := range backing {
		backing[i] = i
		out[i] = unsafe.Pointer(&backing[i])
	}
	return out
}
