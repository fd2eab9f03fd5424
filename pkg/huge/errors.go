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

import "fmt"

var (
	ErrFailedOption  = fmt.Errorf("huge: failed to apply option")
	ErrInvalidLength = fmt.Errorf("huge: invalid huge page length")
	ErrInvalidRange  = fmt.Errorf("huge: invalid huge page range")
	ErrNoAllocator   = fmt.Errorf("huge: no backing allocator configured")
	errUnback        = fmt.Errorf("huge: unback callback returned failure")
)

// ErrUnbackFailed wraps errUnback with the range that failed to unback.
// The cache wraps it in a multierror and logs it as soon as that range's
// unback fails; failures are not collected across an eviction batch.
func ErrUnbackFailed(r Range) error {
	return fmt.Errorf("%w: %s", errUnback, r)
}
