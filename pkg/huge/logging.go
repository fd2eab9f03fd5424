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
	"io"

	logger "github.com/grunthon/tcmalloc/pkg/log"
)

var (
	log     = logger.Get("huge")
	details = logger.Get("huge-details")
)

// Print writes a human-readable dump of the cache's counters and sizing
// state to out, one line per group of related fields, followed by one
// line per cached run.
func (c *Cache) Print(out io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(out, "HugeCache: size=%s usage=%s limit=%s\n", c.size, c.usage, c.limit)
	fmt.Fprintf(out, "  hits=%d misses=%d fills=%d overflows=%d\n", c.hits, c.misses, c.fills, c.overflows)
	fmt.Fprintf(out, "  weighted_hits=%d weighted_misses=%d\n", c.weightedHits, c.weightedMisses)
	fmt.Fprintf(out, "  total_fast_unbacked=%s total_periodic_unbacked=%s\n", c.totalFastUnbacked, c.totalPeriodicUnbacked)
	fmt.Fprintf(out, "  runs:\n")
	for _, r := range c.cache.Runs() {
		fmt.Fprintf(out, "    %s len=%s\n", r, r.Len())
	}
}

// WriteDebugState renders size, usage and limit, the usage tracker's
// maximum over cacheTime and the size tracker's maximum over 2×cacheTime,
// in a simple "key: value" structured form intended for machine
// consumption, without pulling in a protobuf text-format dependency this
// module has no other use for. It does not include the hit/miss and
// unback counters or the runs that Print shows, tracker minima, the
// off-peak and detailed trackers, or per-epoch values.
func (c *Cache) WriteDebugState(out io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(out, "size: %d\n", c.size.Raw())
	fmt.Fprintf(out, "usage: %d\n", c.usage.Raw())
	fmt.Fprintf(out, "limit: %d\n", c.limit.Raw())
	fmt.Fprintf(out, "usage_max_over_cache_time: %d\n", c.usageTracker.MaxOverTime(c.cacheTime).Raw())
	fmt.Fprintf(out, "size_max_over_2x_cache_time: %d\n", c.sizeTracker.MaxOverTime(2*c.cacheTime).Raw())
}
