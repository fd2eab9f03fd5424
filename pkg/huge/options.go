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
	"fmt"
	"time"
)

// CacheOption is an opaque option for a Cache.
type CacheOption func(*Cache) error

// WithAllocator sets the underlying Allocator a Cache falls back to on a
// miss and returns unbacked runs to. Required.
func WithAllocator(a Allocator) CacheOption {
	return func(c *Cache) error {
		if a == nil {
			return fmt.Errorf("%w: nil allocator", ErrFailedOption)
		}
		c.allocator = a
		return nil
	}
}

// WithUnback sets the callback used to reclaim physical memory behind a
// range. If unset, NopUnback is used, which always reports success
// without actually reclaiming anything.
func WithUnback(fn UnbackFunc) CacheOption {
	return func(c *Cache) error {
		if fn == nil {
			return fmt.Errorf("%w: nil unback function", ErrFailedOption)
		}
		c.unback = fn
		return nil
	}
}

// WithTag sets the callback invoked when a range changes residency, for
// memory-tagging systems. If unset, NopTag is used.
func WithTag(fn TagFunc) CacheOption {
	return func(c *Cache) error {
		if fn == nil {
			return fmt.Errorf("%w: nil tag function", ErrFailedOption)
		}
		c.tag = fn
		return nil
	}
}

// WithCacheTime sets the base window the sizing controller uses to
// estimate the working set. Defaults to 1 second, matching the default
// in the original design.
func WithCacheTime(d time.Duration) CacheOption {
	return func(c *Cache) error {
		if d <= 0 {
			return fmt.Errorf("%w: non-positive cache time", ErrFailedOption)
		}
		c.cacheTime = d
		return nil
	}
}

// WithClock overrides the cache's notion of "now", for deterministic
// tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) error {
		if now == nil {
			return fmt.Errorf("%w: nil clock", ErrFailedOption)
		}
		c.now = now
		return nil
	}
}

// WithMinCacheLimit overrides the floor MaybeShrinkCacheLimit will never
// lower limit_ below. Defaults to 10 huge pages, matching the original's
// MinCacheLimit().
func WithMinCacheLimit(n Length) CacheOption {
	return func(c *Cache) error {
		c.minCacheLimit = n
		return nil
	}
}

// WithCapDemandInterval overrides the default lookback window used to
// compute the realized-fragmentation floor when a caller's
// SkipSubreleaseIntervals leaves Realized unset. Defaults to
// CapDemandInterval (5 minutes), matching the original's constant.
func WithCapDemandInterval(d time.Duration) CacheOption {
	return func(c *Cache) error {
		if d <= 0 {
			return fmt.Errorf("%w: non-positive cap demand interval", ErrFailedOption)
		}
		c.capDemandInterval = d
		return nil
	}
}
