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

//go:build !linux

package transfercache

// ProdCPULayout falls back to a single, universal shard off Linux: every
// CPU maps to shard 0, since there is no portable sysfs-equivalent to
// probe L3 cache domains.
type ProdCPULayout struct{}

func (ProdCPULayout) CurrentCPU() int {
	return 0
}

func (ProdCPULayout) BuildCacheMap() ([]uint8, int) {
	return []uint8{0}, 1
}
