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

//go:build linux

package transfercache

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ProdCPULayout resolves CPUs to L3 cache domains by reading
// /sys/devices/system/cpu/cpuN/cache/index3/shared_cpu_list, the same
// sysfs surface the kernel exposes cache topology through.
type ProdCPULayout struct{}

// CurrentCPU asks the kernel which CPU this goroutine is presently
// running on via the getcpu(2) syscall.
func (ProdCPULayout) CurrentCPU() int {
	var cpu, node uint32
	if _, _, errno := unix.Syscall(unix.SYS_GETCPU,
		uintptr(unsafe.Pointer(&cpu)),
		uintptr(unsafe.Pointer(&node)),
		0); errno != 0 {
		return 0
	}
	return int(cpu)
}

// BuildCacheMap scans sysfs for every online CPU's L3 shared_cpu_list and
// assigns each distinct list a shard index.
func (ProdCPULayout) BuildCacheMap() ([]uint8, int) {
	cpus, err := onlineCPUs()
	if err != nil || len(cpus) == 0 {
		return []uint8{0}, 1
	}

	l3Index := make([]uint8, maxInt(cpus)+1)
	groups := map[string]uint8{}
	nextShard := uint8(0)

	for _, cpu := range cpus {
		key, err := l3SharedCPUList(cpu)
		if err != nil || key == "" {
			key = fmt.Sprintf("cpu%d", cpu)
		}
		shard, ok := groups[key]
		if !ok {
			shard = nextShard
			groups[key] = shard
			nextShard++
		}
		l3Index[cpu] = shard
	}

	if nextShard == 0 {
		return []uint8{0}, 1
	}
	return l3Index, int(nextShard)
}

func onlineCPUs() ([]int, error) {
	data, err := os.ReadFile("/sys/devices/system/cpu/online")
	if err != nil {
		return nil, err
	}
	return parseCPUList(strings.TrimSpace(string(data)))
}

func l3SharedCPUList(cpu int) (string, error) {
	path := fmt.Sprintf("/sys/devices/system/cpu/cpu%d/cache/index3/shared_cpu_list", cpu)
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	return "", scanner.Err()
}

// parseCPUList parses sysfs's "0-3,8,10-11" CPU list format.
func parseCPUList(s string) ([]int, error) {
	var cpus []int
	if s == "" {
		return cpus, nil
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			loN, err := strconv.Atoi(lo)
			if err != nil {
				return nil, err
			}
			hiN, err := strconv.Atoi(hi)
			if err != nil {
				return nil, err
			}
			for i := loN; i <= hiN; i++ {
				cpus = append(cpus, i)
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		cpus = append(cpus, n)
	}
	return cpus, nil
}

func maxInt(vs []int) int {
	m := 0
	for _, v := range vs {
		if v > m {
			m = v
		}
	}
	return m
}
