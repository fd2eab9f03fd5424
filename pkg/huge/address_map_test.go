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

package huge_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/grunthon/tcmalloc/pkg/huge"
)

// TestBestFitSplit is seed scenario S4: a cache containing runs of
// length {3, 5, 8} and a Get(4) must come out of the length-5 run,
// leaving a length-1 remainder at the tail of the former run (page 104).
func TestBestFitSplit(t *testing.T) {
	m := NewAddressMap()
	m.Insert(NewRange(0, NHugePages(3)))
	m.Insert(NewRange(100, NHugePages(5)))
	m.Insert(NewRange(200, NHugePages(8)))

	got, ok := m.Find(NHugePages(4))
	require.True(t, ok)
	require.Equal(t, PageID(100), got.Start())
	require.Equal(t, NHugePages(4), got.Len())

	runs := m.Runs()
	require.Len(t, runs, 3)
	require.Equal(t, NHugePages(3), runs[0].Len())
	require.Equal(t, PageID(104), runs[1].Start())
	require.Equal(t, NHugePages(1), runs[1].Len())
	require.Equal(t, NHugePages(8), runs[2].Len())
}

func TestFindReturnsSmallestSufficientRun(t *testing.T) {
	m := NewAddressMap()
	m.Insert(NewRange(0, NHugePages(10)))
	m.Insert(NewRange(50, NHugePages(4)))
	m.Insert(NewRange(100, NHugePages(6)))

	got, ok := m.Find(NHugePages(4))
	require.True(t, ok)
	require.Equal(t, PageID(50), got.Start(), "smallest run long enough wins, not the first inserted")
}

func TestFindFailsWhenNothingFits(t *testing.T) {
	m := NewAddressMap()
	m.Insert(NewRange(0, NHugePages(2)))

	_, ok := m.Find(NHugePages(5))
	require.False(t, ok)
}

// TestCoalescingKeepsNoAdjacentRuns is invariant 6: after many inserts,
// no two stored runs are adjacent or overlapping.
func TestCoalescingKeepsNoAdjacentRuns(t *testing.T) {
	m := NewAddressMap()

	m.Insert(NewRange(0, NHugePages(2)))
	m.Insert(NewRange(2, NHugePages(3)))
	require.Equal(t, 1, m.Count(), "adjacent runs coalesce into one")

	runs := m.Runs()
	require.Equal(t, PageID(0), runs[0].Start())
	require.Equal(t, NHugePages(5), runs[0].Len())

	m.Insert(NewRange(10, NHugePages(2)))
	m.Insert(NewRange(5, NHugePages(5)))
	require.Equal(t, 1, m.Count(), "bridging gap coalesces all three runs")
	require.Equal(t, NHugePages(12), m.Len())
}

func TestLargestPicksHighestAddressOnTie(t *testing.T) {
	m := NewAddressMap()
	m.Insert(NewRange(0, NHugePages(4)))
	m.Insert(NewRange(100, NHugePages(4)))

	got, ok := m.Largest()
	require.True(t, ok)
	require.Equal(t, PageID(100), got.Start(), "ties on length broken by the highest address")
}
