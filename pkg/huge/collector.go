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
	metrics "github.com/grunthon/tcmalloc/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector adapts a Cache's counters into a prometheus.Collector: a
// small self-describing type that computes fresh Desc/Metric values
// from live state on every Collect, no polling needed since none of the
// underlying reads are expensive.
type Collector struct {
	cache *Cache

	size      *prometheus.Desc
	limit     *prometheus.Desc
	usage     *prometheus.Desc
	hits      *prometheus.Desc
	misses    *prometheus.Desc
	overflows *prometheus.Desc
}

// NewCollector returns a prometheus.Collector reporting c's live state.
func NewCollector(c *Cache) *Collector {
	return &Collector{
		cache:     c,
		size:      prometheus.NewDesc("huge_cache_size_pages", "Backed huge pages currently sitting in the cache.", nil, nil),
		limit:     prometheus.NewDesc("huge_cache_limit_pages", "Current soft target for the cache size.", nil, nil),
		usage:     prometheus.NewDesc("huge_cache_usage_pages", "Huge pages currently handed out to callers.", nil, nil),
		hits:      prometheus.NewDesc("huge_cache_hits_total", "Cache hits since startup.", nil, nil),
		misses:    prometheus.NewDesc("huge_cache_misses_total", "Cache misses since startup.", nil, nil),
		overflows: prometheus.NewDesc("huge_cache_overflows_total", "Overflow evictions since startup.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.size
	ch <- c.limit
	ch <- c.usage
	ch <- c.hits
	ch <- c.misses
	ch <- c.overflows
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.cache.mu.Lock()
	size, limit, usage := c.cache.size, c.cache.limit, c.cache.usage
	hits, misses, overflows := c.cache.hits, c.cache.misses, c.cache.overflows
	c.cache.mu.Unlock()

	ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(size.Raw()))
	ch <- prometheus.MustNewConstMetric(c.limit, prometheus.GaugeValue, float64(limit.Raw()))
	ch <- prometheus.MustNewConstMetric(c.usage, prometheus.GaugeValue, float64(usage.Raw()))
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(misses))
	ch <- prometheus.MustNewConstMetric(c.overflows, prometheus.CounterValue, float64(overflows))
}

// RegisterMetrics registers c's Prometheus collector with reg under the
// name "huge", so it is enabled, polled, and namespaced the same way as
// every other collector the process runs, rather than living outside
// that lifecycle.
func RegisterMetrics(reg *metrics.Registry, c *Cache, opts ...metrics.RegisterOption) error {
	return reg.Register("huge", NewCollector(c), opts...)
}
