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

package transfercache_test

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	. "github.com/grunthon/tcmalloc/pkg/transfercache"
	"github.com/grunthon/tcmalloc/pkg/metrics"
)

// TestRegisterMetricsExposesTotalBytes confirms a manager's collector is
// actually reachable through pkg/metrics' Registry/Gatherer.
func TestRegisterMetricsExposesTotalBytes(t *testing.T) {
	layout := &fakeCPULayout{l3Index: []uint8{0}, numShards: 1, cpu: 0}
	m := NewShardedTransferCacheManager(layout, sizeOfFixed(ActivationThresholdBytes), batchOfFixed(4), func(cl int) CentralFreeList { return &fakeFreeList{} })
	require.NoError(t, m.Init())
	m.Push(0, fakePointers(1)[0])

	reg := metrics.NewRegistry()
	require.NoError(t, RegisterMetrics(reg, m))

	g, err := reg.NewGatherer(metrics.WithMetrics([]string{"transfercache"}, nil), metrics.WithoutPolling())
	require.NoError(t, err)

	families, err := g.Gather()
	require.NoError(t, err)

	v, ok := findGaugeValue(families, "transfercache_total_bytes")
	require.True(t, ok, "transfercache_total_bytes not found in gathered families")
	require.Equal(t, float64(ActivationThresholdBytes), v)
}

func findGaugeValue(families []*dto.MetricFamily, suffix string) (float64, bool) {
	for _, f := range families {
		if !strings.HasSuffix(f.GetName(), suffix) {
			continue
		}
		for _, m := range f.GetMetric() {
			if g := m.GetGauge(); g != nil {
				return g.GetValue(), true
			}
		}
	}
	return 0, false
}

var _ prometheus.Collector = (*Collector)(nil)
