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

package transfercache

import (
	metrics "github.com/grunthon/tcmalloc/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector adapts a ShardedTransferCacheManager's TotalBytes into a
// prometheus.Collector, mirroring pkg/huge.Collector's shape.
type Collector struct {
	manager *ShardedTransferCacheManager

	totalBytes *prometheus.Desc
}

// NewCollector returns a prometheus.Collector reporting m's live state.
func NewCollector(m *ShardedTransferCacheManager) *Collector {
	return &Collector{
		manager:    m,
		totalBytes: prometheus.NewDesc("transfercache_total_bytes", "Bytes of objects currently sitting in sharded transfer caches.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalBytes
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.totalBytes, prometheus.GaugeValue, float64(c.manager.TotalBytes()))
}

// RegisterMetrics registers m's Prometheus collector with reg under the
// name "transfercache", giving it the same enable/poll/namespace
// lifecycle as every other collector in the registry.
func RegisterMetrics(reg *metrics.Registry, m *ShardedTransferCacheManager, opts ...metrics.RegisterOption) error {
	return reg.Register("transfercache", NewCollector(m), opts...)
}
