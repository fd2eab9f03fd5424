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

package huge

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// DefaultUnback returns an UnbackFunc that asks the kernel to reclaim the
// physical memory behind a huge page run via madvise(MADV_DONTNEED). base
// is the address of huge page 0 of this cache's managed address space;
// the function is idempotent, as required of any unback collaborator.
func DefaultUnback(base uintptr) UnbackFunc {
	return func(r Range) bool {
		if r.Empty() {
			return true
		}
		addr := base + uintptr(r.Start())*HugePageSize
		length := int(r.Len().InBytes())

		b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), length) //nolint:govet
		if err := unix.Madvise(b, unix.MADV_DONTNEED); err != nil {
			return false
		}
		return true
	}
}
