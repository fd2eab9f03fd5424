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

import "fmt"

var (
	ErrSizeClassRange = fmt.Errorf("transfercache: size class out of range")
	ErrNilFreeList    = fmt.Errorf("transfercache: nil backing free list")
	ErrBatchTooLarge  = fmt.Errorf("transfercache: batch exceeds the ring's maximum capacity")
	ErrNoShards       = fmt.Errorf("transfercache: CPU layout reported zero shards")
)

// ErrInvalidSizeClass wraps ErrSizeClassRange with the offending index.
func ErrInvalidSizeClass(cl int) error {
	return fmt.Errorf("%w: %d", ErrSizeClassRange, cl)
}
