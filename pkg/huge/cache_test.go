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
	"time"

	"github.com/stretchr/testify/require"

	. "github.com/grunthon/tcmalloc/pkg/huge"
)

// fakeAllocator hands out sequentially-addressed runs and never fails.
type fakeAllocator struct {
	next PageID
}

func (a *fakeAllocator) Get(n Length) Range {
	r := NewRange(a.next, n)
	a.next += PageID(n.Raw())
	return r
}

func (a *fakeAllocator) Release(r Range, backed bool) {}

func newTestCache(t *testing.T, clk *fakeClock, opts ...CacheOption) *Cache {
	t.Helper()
	base := []CacheOption{
		WithAllocator(&fakeAllocator{}),
		WithClock(clk.Now),
		WithCacheTime(time.Second),
	}
	c, err := NewCache(append(base, opts...)...)
	require.NoError(t, err)
	return c
}

// TestGrowOnMiss is seed scenario S1: usage_ peaks at 50 then drops to 0
// within the tracked window, then a 20-huge-page miss must grow limit_
// to at least peak-valley+missed = 70.
func TestGrowOnMiss(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	c := newTestCache(t, clk)

	r, _, err := c.Get(NHugePages(50))
	require.NoError(t, err)
	require.NoError(t, c.Release(r, false))

	// Empty the cache back out so the next Get is a genuine allocator miss,
	// not a hit against the run Release just planted.
	c.ShrinkCache(NHugePages(0))

	_, fromReleased, err := c.Get(NHugePages(20))
	require.NoError(t, err)
	require.True(t, fromReleased)
	require.GreaterOrEqual(t, c.Limit().Raw(), NHugePages(70).Raw())
}

// TestShrinkAfterQuiet is seed scenario S2: once size_ has stayed below
// limit_ for at least cacheTime, MaybeShrinkCacheLimit pulls limit_ down
// to the recent size peak (floored at minCacheLimit).
func TestShrinkAfterQuiet(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	c := newTestCache(t, clk, WithMinCacheLimit(NHugePages(10)))

	r, _, err := c.Get(NHugePages(70))
	require.NoError(t, err)
	require.NoError(t, c.Release(r, false))
	require.Equal(t, NHugePages(70), c.Size())

	clk.Advance(4900 * time.Millisecond)
	evicted := c.ShrinkCache(NHugePages(30))
	require.Equal(t, NHugePages(40), evicted)
	require.Equal(t, NHugePages(30), c.Size())

	clk.Advance(100 * time.Millisecond)
	c.ReleaseCachedPages(NHugePages(0))

	require.Equal(t, NHugePages(30), c.Limit())
}

// TestDemandCapLimitsRelease is seed scenario S3: when size_+usage_ is no
// higher than the recent peak demand, ReleaseCachedPagesByDemand must
// refuse to release anything, since doing so would risk a future miss.
func TestDemandCapLimitsRelease(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	c := newTestCache(t, clk)

	r1, _, err := c.Get(NHugePages(120))
	require.NoError(t, err)
	low, _ := r1.Split(NHugePages(100))
	require.NoError(t, c.Release(low, false))

	require.Equal(t, NHugePages(100), c.Size())
	require.Equal(t, NHugePages(20), c.Usage())

	released := c.ReleaseCachedPagesByDemand(NHugePages(80), SkipSubreleaseIntervals{Short: 10 * time.Second}, false)
	require.Equal(t, NHugePages(0), released)
}

// TestUsageNeverGoesNegative is invariant 2: usage_ only ever moves by
// matched Get/Release pairs, and Release beyond outstanding usage panics
// rather than wrapping.
func TestUsageNeverGoesNegative(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	c := newTestCache(t, clk)

	r, _, err := c.Get(NHugePages(5))
	require.NoError(t, err)
	require.NoError(t, c.Release(r, false))
	require.Equal(t, NHugePages(0), c.Usage())

	require.Panics(t, func() {
		c.Release(NewRange(1000, NHugePages(1)), false)
	})
}

// TestSizeTracksCacheContents is invariant 1: size_ always equals the sum
// of the lengths of the runs actually sitting in the cache.
func TestSizeTracksCacheContents(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	c := newTestCache(t, clk)

	r1, _, err := c.Get(NHugePages(10))
	require.NoError(t, err)
	r2, _, err := c.Get(NHugePages(20))
	require.NoError(t, err)

	require.NoError(t, c.Release(r1, true))
	require.Equal(t, NHugePages(10), c.Size())

	require.NoError(t, c.Release(r2, true))
	require.Equal(t, NHugePages(30), c.Size())

	evicted := c.ShrinkCache(NHugePages(5))
	require.Equal(t, NHugePages(25), evicted)
	require.Equal(t, NHugePages(5), c.Size())
}

// TestOverflowAccountingIsExact is invariant 3: a non-demand-based
// Release that pushes size_ over limit_ unbacks exactly the overflow,
// landing size_ back at limit_ rather than merely below it.
func TestOverflowAccountingIsExact(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	c := newTestCache(t, clk, WithMinCacheLimit(NHugePages(5)))

	// Both Gets miss against the still-empty cache, and neither grows
	// limit_ past minCacheLimit: the first's demand (5) matches it
	// exactly, and the second's peak-valley+missed (5-5+3=3) stays below.
	r1, _, err := c.Get(NHugePages(5))
	require.NoError(t, err)
	r2, _, err := c.Get(NHugePages(3))
	require.NoError(t, err)
	require.Equal(t, NHugePages(5), c.Limit())

	// Releasing r1 alone lands exactly on limit_, no overflow yet.
	require.NoError(t, c.Release(r1, false))
	require.Equal(t, NHugePages(5), c.Size())

	// Releasing r2 brings the (adjacent, now-coalesced) cache contents to
	// 8 pages against a limit_ of 5: the overflow of 3 must be unbacked
	// immediately, leaving size_ exactly at limit_.
	require.NoError(t, c.Release(r2, false))
	require.Equal(t, NHugePages(5), c.Size())
	require.Equal(t, c.Limit(), c.Size())
}

// TestCapDemandIntervalDefaultMatchesExplicitRealized confirms the
// CapDemandInterval baked into NewCache (and overridable via
// WithCapDemandInterval) is the same fallback getDesiredReleaseablePages
// applies when a caller's SkipSubreleaseIntervals leaves Realized unset:
// overriding the cache's default to some duration and leaving Realized
// zero must behave identically to leaving the cache's default alone and
// passing that same duration as Realized explicitly.
func TestCapDemandIntervalDefaultMatchesExplicitRealized(t *testing.T) {
	run := func(realized time.Duration, overrideDefault bool) Length {
		clk := &fakeClock{now: time.Unix(0, 0)}
		var opts []CacheOption
		if overrideDefault {
			opts = append(opts, WithCapDemandInterval(realized))
		}
		c := newTestCache(t, clk, opts...)

		r, _, err := c.Get(NHugePages(60))
		require.NoError(t, err)
		require.NoError(t, c.Release(r, true))
		clk.Advance(1100 * time.Millisecond)

		intervals := SkipSubreleaseIntervals{Short: 10 * time.Second}
		if !overrideDefault {
			intervals.Realized = realized
		}
		return c.ReleaseCachedPagesByDemand(NHugePages(40), intervals, false)
	}

	viaDefaultOverride := run(3*time.Second, true)
	viaExplicitRealized := run(3*time.Second, false)
	require.Equal(t, viaExplicitRealized, viaDefaultOverride)
}

// TestWithCapDemandIntervalRejectsNonPositive mirrors the validation
// every other duration-typed CacheOption performs.
func TestWithCapDemandIntervalRejectsNonPositive(t *testing.T) {
	_, err := NewCache(WithAllocator(&fakeAllocator{}), WithCapDemandInterval(0))
	require.Error(t, err)
}

// TestGetRejectsZeroLength confirms a zero-page request is treated as a
// caller mistake rather than forwarded to the allocator.
func TestGetRejectsZeroLength(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	c := newTestCache(t, clk)

	_, _, err := c.Get(NHugePages(0))
	require.ErrorIs(t, err, ErrInvalidLength)
}

// TestReleaseRejectsEmptyRange confirms an empty range is rejected before
// it can corrupt usage or cache accounting.
func TestReleaseRejectsEmptyRange(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	c := newTestCache(t, clk)

	err := c.Release(Range{}, false)
	require.ErrorIs(t, err, ErrInvalidRange)
	require.Equal(t, NHugePages(0), c.Usage())
}
