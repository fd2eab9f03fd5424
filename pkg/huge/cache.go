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

import (
	"context"
	"fmt"
	"sync"
	"time"

	multierror "github.com/hashicorp/go-multierror"
	"go.opencensus.io/trace"
)

// FractionToReleaseFromCache is the share of the cache a periodic
// releaser should ask for at a time, to amortize fragmentation without
// thrashing. Mirrors the original's kFractionToReleaseFromCache.
const FractionToReleaseFromCache = 0.2

// CapDemandInterval is the default lookback window used to compute the
// "realized fragmentation" floor in getDesiredReleaseablePages when a
// caller's SkipSubreleaseIntervals leaves Realized unset. Mirrors the
// original's CapDemandInterval.
const CapDemandInterval = 5 * time.Minute

// Cache adaptively sizes and serves a pool of backed huge-page runs in
// front of an Allocator, shrinking towards the underlying allocator when
// recent demand allows and growing immediately on a miss.
type Cache struct {
	mu sync.Mutex

	allocator Allocator
	unback    UnbackFunc
	tag       TagFunc

	cache *AddressMap
	size  Length
	usage Length
	limit Length

	minCacheLimit      Length
	cacheTime          time.Duration
	capDemandInterval  time.Duration
	lastOp             time.Time

	hits, misses, fills, overflows       uint64
	weightedHits, weightedMisses         uint64
	totalFastUnbacked, totalPeriodicUnbacked Length

	lastLimitChange time.Time
	now             func() time.Time

	detailedTracker *MinMaxTracker
	usageTracker    *MinMaxTracker
	offPeakTracker  *MinMaxTracker
	sizeTracker     *MinMaxTracker

	statsTracker            *StatsTracker
	numPagesSubreleased     uint64
}

// NewCache builds a Cache from options. WithAllocator is required; every
// other option has a default matching the original's production
// defaults (cache_time=1s, MinCacheLimit=10 huge pages).
func NewCache(opts ...CacheOption) (*Cache, error) {
	c := &Cache{
		cache:             NewAddressMap(),
		minCacheLimit:     NHugePages(10),
		cacheTime:         time.Second,
		capDemandInterval: CapDemandInterval,
		unback:            NopUnback,
		tag:               NopTag,
		now:               time.Now,
	}

	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}

	if c.allocator == nil {
		return nil, ErrNoAllocator
	}

	c.limit = c.minCacheLimit
	c.lastLimitChange = c.now()
	c.lastOp = c.now()

	c.detailedTracker = NewMinMaxTracker(600, 10*time.Minute, c.now)
	c.usageTracker = NewMinMaxTracker(16, 2*c.cacheTime, c.now)
	c.offPeakTracker = NewMinMaxTracker(16, 2*c.cacheTime, c.now)
	c.sizeTracker = NewMinMaxTracker(16, 2*c.cacheTime, c.now)
	c.statsTracker = NewStatsTracker(600)

	return c, nil
}

// Size returns the huge pages currently sitting in the cache, backed but
// not handed out to any caller.
func (c *Cache) Size() Length {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Limit returns the current soft target for Size.
func (c *Cache) Limit() Length {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limit
}

// Usage returns the huge pages currently handed out to callers.
func (c *Cache) Usage() Length {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// Stats returns a BackingStats snapshot.
func (c *Cache) Stats() BackingStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return BackingStats{
		SystemBytes:   c.usage.Add(c.size).InBytes(),
		FreeBytes:     c.size.InBytes(),
		UnmappedBytes: 0,
	}
}

// Get returns a contiguous run of exactly n huge pages, preferring
// backed pages already sitting in the cache. fromReleased reports
// whether the allocator had to be consulted (true) or the run was
// already resident in the cache (false). A zero-valued n is a caller
// mistake and returns ErrInvalidLength rather than touching the cache.
func (c *Cache) Get(n Length) (r Range, fromReleased bool, err error) {
	if n == 0 {
		return Range{}, false, fmt.Errorf("%w: requested zero huge pages", ErrInvalidLength)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.cache.Find(n); ok {
		c.size = c.size.Sub(r.Len())
		c.sizeTracker.Report(c.size)
		c.hits++
		c.reportWeighted(&c.weightedHits, n)
		c.incUsage(n)
		details.Debug("hit: served %s from cache (size now %s)", r, c.size)
		return r, false, nil
	}

	c.misses++
	c.reportWeighted(&c.weightedMisses, n)
	c.maybeGrowCacheLimit(n)

	r = c.allocator.Get(n)
	if !r.Empty() {
		c.fills++
	}
	c.incUsage(n)

	if details.DebugEnabled() {
		details.Debug("miss: fetched %s from allocator (limit now %s)", r, c.limit)
	}
	return r, true, nil
}

// Release returns a backed range to the cache. If demandBasedUnback is
// false and the cache is now over limit, the overflow is unbacked
// immediately; otherwise the overflow is left for a later call to
// ReleaseCachedPagesByDemand. A zero-valued r is a caller mistake and
// returns ErrInvalidRange without touching usage or cache accounting.
func (c *Cache) Release(r Range, demandBasedUnback bool) error {
	if r.Empty() {
		return fmt.Errorf("%w: released range is empty", ErrInvalidRange)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.decUsage(r.Len())
	c.insertIntoCache(r)

	if demandBasedUnback || c.size <= c.limit {
		return nil
	}

	overflow := c.size.Sub(c.limit)
	released := c.shrinkCacheLocked(c.limit)
	c.overflows++
	c.totalFastUnbacked = c.totalFastUnbacked.Add(released)

	if released != overflow {
		log.Warn("expected to release %s of overflow, released %s", overflow, released)
	}
	return nil
}

// ReleaseUnbacked passes an already-unbacked range straight through to
// the underlying allocator.
func (c *Cache) ReleaseUnbacked(r Range) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allocator.Release(r, false)
}

// ReleaseCachedPages unbacks at most n huge pages from the cache,
// largest run first, and returns the number actually released. It also
// triggers MaybeShrinkCacheLimit, which may release further pages if the
// limit itself has become too generous.
func (c *Cache) ReleaseCachedPages(n Length) Length {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := c.size.Sub(n)
	released := c.shrinkCacheLocked(target)
	released = released.Add(c.maybeShrinkCacheLimit())
	return released
}

// ReleaseCachedPagesByDemand behaves like ReleaseCachedPages, but caps
// its target at what GetDesiredReleaseablePages judges safe given
// intervals. It is a no-op (returns 0) if hitLimit is set or intervals
// carries no usable lookback window.
func (c *Cache) ReleaseCachedPagesByDemand(n Length, intervals SkipSubreleaseIntervals, hitLimit bool) Length {
	c.mu.Lock()
	defer c.mu.Unlock()

	if hitLimit || intervals.Empty() {
		return 0
	}

	desired := c.getDesiredReleaseablePages(n, intervals)

	target := c.size.Sub(desired)
	released := c.shrinkCacheLocked(target)
	released = released.Add(c.maybeShrinkCacheLimit())

	c.totalPeriodicUnbacked = c.totalPeriodicUnbacked.Add(released)
	c.numPagesSubreleased += released.InPages()
	c.updateStatsTracker()

	return released
}

// Tick runs the pure decision a background releaser would make once per
// timer firing: compute a fraction-of-cache release target and hand it
// to ReleaseCachedPagesByDemand. Callers own their own scheduling; this
// method never spawns a goroutine on its own behalf.
func (c *Cache) Tick(intervals SkipSubreleaseIntervals, hitLimit bool) Length {
	size := c.Size()
	desired := NHugePages(uint64(float64(size.Raw()) * FractionToReleaseFromCache))
	return c.ReleaseCachedPagesByDemand(desired, intervals, hitLimit)
}

func (c *Cache) maybeGrowCacheLimit(missed Length) {
	peak := c.usageTracker.MaxOverTime(c.cacheTime)
	valley := c.usageTracker.MinOverTime(c.cacheTime)
	needed := peak.Sub(valley).Add(missed)

	if needed > c.limit {
		c.limit = needed
		c.lastLimitChange = c.now()
		if log.DebugEnabled() {
			log.Debug("grew cache limit to %s (peak=%s valley=%s missed=%s)", c.limit, peak, valley, missed)
		}
	}

	c.sizeTracker.Report(c.size)
	c.offPeakTracker.Report(valley)
}

func (c *Cache) maybeShrinkCacheLimit() Length {
	maxsz := c.sizeTracker.MaxOverTime(2 * c.cacheTime)
	if maxsz >= c.limit || c.now().Sub(c.lastLimitChange) < c.cacheTime {
		return 0
	}

	newLimit := c.minCacheLimit.Max(maxsz)

	var evicted Length
	if c.size > newLimit {
		evicted = c.shrinkCacheLocked(newLimit)
	}

	c.limit = newLimit
	c.lastLimitChange = c.now()

	if log.DebugEnabled() {
		log.Debug("shrunk cache limit to %s, evicted %s", c.limit, evicted)
	}

	return evicted
}

// shrinkCacheLocked evicts the largest runs in the cache until size <=
// target, splitting the final run if it overshoots. Must be called with
// c.mu held.
func (c *Cache) shrinkCacheLocked(target Length) Length {
	var released Length

	for c.size > target {
		r, ok := c.cache.Largest()
		if !ok {
			break
		}

		remaining := c.size.Sub(target)
		if r.Len() <= remaining {
			c.cache.Remove(r)
			c.unbackRange(r)
			released = released.Add(r.Len())
			c.size = c.size.Sub(r.Len())
			c.sizeTracker.Report(c.size)
			continue
		}

		keepLen := r.Len().Sub(remaining)
		low, high := r.Split(keepLen)
		c.cache.Remove(r)
		c.cache.Insert(low)
		c.unbackRange(high)
		released = released.Add(high.Len())
		c.size = c.size.Sub(high.Len())
		c.sizeTracker.Report(c.size)
	}

	return released
}

// ShrinkCache exposes shrinkCacheLocked for callers (e.g. RingBuffer-style
// managers in sibling packages are not wired to HugeCache, but tests and
// a periodic releaser may want direct eviction without the demand logic).
func (c *Cache) ShrinkCache(target Length) Length {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shrinkCacheLocked(target)
}

func (c *Cache) getDesiredReleaseablePages(desired Length, intervals SkipSubreleaseIntervals) Length {
	lookback := intervals.Short
	if lookback == 0 {
		lookback = intervals.Long
	}
	if lookback == 0 {
		return desired
	}

	recentPeak := c.usageTracker.MaxOverTime(lookback)
	headroom := c.size.Add(c.usage).Sub(recentPeak)
	target := desired.Min(headroom)

	realized := intervals.Realized
	if realized == 0 {
		realized = c.capDemandInterval
	}
	if realized > 0 {
		floor := c.sizeTracker.MinOverTime(realized)
		if floor > 0 {
			target = target.Max(floor.Min(desired))
		}
	}

	return target
}

func (c *Cache) insertIntoCache(r Range) {
	for _, existing := range c.cache.Runs() {
		if existing.Overlaps(r) {
			panic("huge: internal error: release of range overlapping existing cache contents")
		}
	}
	c.cache.Insert(r)
	c.size = c.size.Add(r.Len())
	c.sizeTracker.Report(c.size)
}

func (c *Cache) incUsage(n Length) {
	c.usage = c.usage.Add(n)
	c.usageTracker.Report(c.usage)
	c.detailedTracker.Report(c.usage)
}

func (c *Cache) decUsage(n Length) {
	if n > c.usage {
		panic("huge: internal error: usage_ would go negative")
	}
	c.usage = c.usage.Sub(n)
	c.usageTracker.Report(c.usage)
	c.detailedTracker.Report(c.usage)
}

func (c *Cache) reportWeighted(counter *uint64, n Length) {
	recency := uint64(1)
	if c.now().Sub(c.lastOp) > c.cacheTime {
		recency = 2
	}
	c.lastOp = c.now()
	*counter += n.Raw() * recency
}

// unbackRange invokes the unback callback within a tracing span (the
// documented slow path), logs any failure at Warn without aborting, and
// always hands the range back to the allocator as unbacked.
func (c *Cache) unbackRange(r Range) {
	_, span := trace.StartSpan(context.Background(), "huge.unback")
	ok := c.unback(r)
	span.End()

	if !ok {
		var result *multierror.Error
		result = multierror.Append(result, ErrUnbackFailed(r))
		log.Warn("unback failed for %s: %v", r, result)
	}

	c.tag(r, "")
	c.allocator.Release(r, false)
}

func (c *Cache) updateStatsTracker() {
	c.statsTracker.Report(SubreleaseStats{
		NumPages:            c.usage.InPages(),
		FreePages:           c.size.InPages(),
		NumPagesSubreleased: c.numPagesSubreleased,
	})
}
