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

import "sort"

// AddressMap is an address-ordered set of free huge-page runs. It
// supports best-fit lookup by length (ties broken by the lowest start
// address), and keeps runs coalesced: no two stored runs are ever
// adjacent or overlapping.
//
// Runs are keyed by two orthogonal axes (address for coalescing, length
// for best-fit), so a tree keyed by only one of them has no direct
// analogue here; a sorted slice keyed by address with a linear best-fit
// scan is simple and has no allocator-arena dependency of its own.
type AddressMap struct {
	// runs is kept sorted by Start() at all times.
	runs []Range
}

// NewAddressMap returns an empty address map.
func NewAddressMap() *AddressMap {
	return &AddressMap{}
}

// Len returns the total length, across all stored runs, in huge pages.
func (m *AddressMap) Len() Length {
	var total Length
	for _, r := range m.runs {
		total = total.Add(r.Len())
	}
	return total
}

// Count returns the number of distinct runs currently stored.
func (m *AddressMap) Count() int {
	return len(m.runs)
}

func (m *AddressMap) indexOf(start PageID) (int, bool) {
	i := sort.Search(len(m.runs), func(i int) bool { return m.runs[i].Start() >= start })
	if i < len(m.runs) && m.runs[i].Start() == start {
		return i, true
	}
	return i, false
}

// Insert adds r to the map, coalescing it with its immediate address
// neighbors if they are adjacent.
func (m *AddressMap) Insert(r Range) {
	if r.Empty() {
		return
	}

	idx, _ := m.indexOf(r.Start())

	// Merge with the predecessor, if adjacent.
	if idx > 0 {
		prev := m.runs[idx-1]
		if prev.AdjacentTo(r) {
			r = prev.Union(r)
			idx--
			m.runs = append(m.runs[:idx], m.runs[idx+1:]...)
		}
	}

	// Merge with the successor, if adjacent. Re-resolve the insertion
	// point since a predecessor merge may have shifted it.
	insertAt, _ := m.indexOf(r.Start())
	if insertAt < len(m.runs) {
		next := m.runs[insertAt]
		if r.AdjacentTo(next) {
			r = r.Union(next)
			m.runs = append(m.runs[:insertAt], m.runs[insertAt+1:]...)
		}
	}

	m.runs = append(m.runs, Range{})
	copy(m.runs[insertAt+1:], m.runs[insertAt:])
	m.runs[insertAt] = r
}

// Find returns the smallest stored run whose length is >= n, ties broken
// by the lowest start address, and removes it from the map. If the chosen
// run is longer than n, its first n huge pages are returned and the
// remaining suffix is reinserted (Split semantics); if the run's length
// equals n exactly it is simply removed.
//
// Find reports ok=false if no run is large enough.
func (m *AddressMap) Find(n Length) (Range, bool) {
	best := -1
	for i, r := range m.runs {
		if r.Len() < n {
			continue
		}
		if best == -1 || r.Len() < m.runs[best].Len() {
			best = i
		}
	}
	if best == -1 {
		return Range{}, false
	}

	r := m.runs[best]
	m.runs = append(m.runs[:best], m.runs[best+1:]...)

	prefix, suffix := r.Split(n)
	if !suffix.Empty() {
		m.Insert(suffix)
	}
	return prefix, true
}

// Largest returns the longest stored run, ties broken by the highest
// start address, and reports whether any run exists at all. It does not
// remove the run.
func (m *AddressMap) Largest() (Range, bool) {
	best := -1
	for i, r := range m.runs {
		if best == -1 {
			best = i
			continue
		}
		if r.Len() > m.runs[best].Len() ||
			(r.Len() == m.runs[best].Len() && r.Start() > m.runs[best].Start()) {
			best = i
		}
	}
	if best == -1 {
		return Range{}, false
	}
	return m.runs[best], true
}

// Remove deletes r (which must match a stored run exactly) from the map.
func (m *AddressMap) Remove(r Range) bool {
	idx, ok := m.indexOf(r.Start())
	if !ok || m.runs[idx].Len() != r.Len() {
		return false
	}
	m.runs = append(m.runs[:idx], m.runs[idx+1:]...)
	return true
}

// Runs returns a copy of the currently stored runs, in address order.
func (m *AddressMap) Runs() []Range {
	out := make([]Range, len(m.runs))
	copy(out, m.runs)
	return out
}
