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

// Allocator is the underlying huge-page source a Cache draws from on a
// miss, and returns unbacked runs to once they've been released. It is
// the allocator's responsibility to synchronize its own state; the cache
// holds its own lock across calls into an Allocator.
type Allocator interface {
	// Get returns a freshly backed run of exactly n huge pages, or the
	// zero Range if the allocator is out of memory.
	Get(n Length) Range
	// Release returns r to the allocator. backed indicates whether the
	// range is still backed by physical memory (false once Cache has
	// unbacked it).
	Release(r Range, backed bool)
}

// UnbackFunc instructs the OS to reclaim the physical memory behind a
// range; the range remains addressable. It must be idempotent, and its
// failure is recoverable: the caller logs it and proceeds as though the
// range had been unbacked anyway. This is the Go rendering of the
// single-method MemoryModifyFunction collaborator: a borrowed callable
// handle, not an owned object.
type UnbackFunc func(r Range) bool

// TagFunc associates a range with an optional name for memory-tagging
// systems. An empty name means "no name", the Go rendering of the
// optional<string_view> parameter.
type TagFunc func(r Range, name string)

// NopUnback always reports success without touching memory; useful for
// tests and for callers that manage backing outside this package.
func NopUnback(Range) bool { return true }

// NopTag is a TagFunc that does nothing.
func NopTag(Range, string) {}
