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

package huge

// DefaultUnback on non-Linux platforms has no madvise-equivalent wired
// up; it always reports success and leaves the range addressable and
// resident, matching the degraded behavior any caller gets from an
// unback hook with nothing real behind it.
func DefaultUnback(base uintptr) UnbackFunc {
	return func(r Range) bool { return true }
}
