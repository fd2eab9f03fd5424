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

// Package huge implements an adaptively-sized cache of backed huge page
// runs sitting in front of a system huge-page allocator.
package huge

import "fmt"

const (
	// PageSize is the size, in bytes, of a single (non-huge) page.
	PageSize = 4096
	// HugePageSize is the size, in bytes, of a single huge page.
	HugePageSize = 2 << 20
	// PagesPerHugePage is the number of regular pages a single huge page covers.
	PagesPerHugePage = HugePageSize / PageSize
)

// Length is a count of huge pages. All arithmetic on Length saturates
// towards zero instead of going negative.
type Length uint64

// NPages returns the Length needed to cover the given count of regular
// pages, rounding up to whole huge pages.
func NPages(pages uint64) Length {
	return Length((pages + PagesPerHugePage - 1) / PagesPerHugePage)
}

// NHugePages returns a Length of n huge pages.
func NHugePages(n uint64) Length {
	return Length(n)
}

// InPages returns the number of regular pages this Length covers.
func (l Length) InPages() uint64 {
	return uint64(l) * PagesPerHugePage
}

// InBytes returns the number of bytes this Length covers.
func (l Length) InBytes() uint64 {
	return uint64(l) * HugePageSize
}

// Raw returns the number of huge pages as a plain integer.
func (l Length) Raw() uint64 {
	return uint64(l)
}

// Add returns l+o. The result never underflows since both operands are
// already nonnegative; overflow saturates to the maximum representable
// Length.
func (l Length) Add(o Length) Length {
	sum := l + o
	if sum < l {
		return ^Length(0)
	}
	return sum
}

// Sub returns l-o, saturating to zero instead of wrapping if o > l.
func (l Length) Sub(o Length) Length {
	if o >= l {
		return 0
	}
	return l - o
}

// Min returns the smaller of l and o.
func (l Length) Min(o Length) Length {
	if l < o {
		return l
	}
	return o
}

// Max returns the larger of l and o.
func (l Length) Max(o Length) Length {
	if l > o {
		return l
	}
	return o
}

func (l Length) String() string {
	return fmt.Sprintf("%dhps", uint64(l))
}

// PageID identifies the first regular page of a huge page run, expressed
// in huge-page units (i.e. PageID 1 is the second huge page of the
// address space this cache manages).
type PageID uint64

// Range is a contiguous run of huge pages: [start, start+len).
type Range struct {
	start PageID
	len   Length
}

// NewRange constructs a Range of the given start and length.
func NewRange(start PageID, len Length) Range {
	return Range{start: start, len: len}
}

// Start returns the first huge page of the range.
func (r Range) Start() PageID {
	return r.start
}

// Len returns the length of the range.
func (r Range) Len() Length {
	return r.len
}

// End returns the first huge page past the end of the range.
func (r Range) End() PageID {
	return PageID(uint64(r.start) + uint64(r.len))
}

// Empty reports whether the range covers zero huge pages.
func (r Range) Empty() bool {
	return r.len == 0
}

// Contains reports whether o is fully contained within r.
func (r Range) Contains(o Range) bool {
	return o.start >= r.start && o.End() <= r.End()
}

// Overlaps reports whether r and o share any huge page.
func (r Range) Overlaps(o Range) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return r.start < o.End() && o.start < r.End()
}

// AdjacentTo reports whether r immediately precedes or follows o with no
// gap, making the pair a candidate for coalescing.
func (r Range) AdjacentTo(o Range) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return r.End() == o.start || o.End() == r.start
}

// Union merges r and o, which must be adjacent or overlapping, into the
// single range spanning both.
func (r Range) Union(o Range) Range {
	start := r.start
	if o.start < start {
		start = o.start
	}
	end := r.End()
	if o.End() > end {
		end = o.End()
	}
	return Range{start: start, len: Length(uint64(end) - uint64(start))}
}

// Split divides r into a prefix of length n and the remaining suffix. n
// must not exceed r.Len().
func (r Range) Split(n Length) (prefix, suffix Range) {
	if n > r.len {
		n = r.len
	}
	prefix = Range{start: r.start, len: n}
	suffix = Range{start: PageID(uint64(r.start) + uint64(n)), len: r.len - n}
	return prefix, suffix
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.start, r.End())
}
