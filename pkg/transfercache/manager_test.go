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
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/grunthon/tcmalloc/pkg/transfercache"
)

func newTestManager(t *testing.T) *TransferCacheManager {
	t.Helper()
	free := make([]*fakeFreeList, NumClasses)
	m, err := NewTransferCacheManager(
		func(cl int) int { return 64 },
		func(cl int) int { return 4 },
		func(cl int) CentralFreeList {
			free[cl] = &fakeFreeList{}
			return free[cl]
		},
	)
	require.NoError(t, err)
	return m
}

// TestNewTransferCacheManagerPropagatesNilFreeList confirms a factory
// that hands back a nil freelist for any class fails the whole manager
// instead of leaving that class's ring half-built.
func TestNewTransferCacheManagerPropagatesNilFreeList(t *testing.T) {
	_, err := NewTransferCacheManager(
		func(cl int) int { return 64 },
		func(cl int) int { return 4 },
		func(cl int) CentralFreeList { return nil },
	)
	require.ErrorIs(t, err, ErrNilFreeList)
}

// TestDetermineSizeClassToEvictSkipsSelfAndEmpty exercises the
// round-robin victim search: it must never return the requesting class,
// and never a class whose ring is currently empty.
func TestDetermineSizeClassToEvictSkipsSelfAndEmpty(t *testing.T) {
	m := newTestManager(t)

	m.InsertRange(3, fakePointers(4))
	m.InsertRange(7, fakePointers(4))

	victim := m.DetermineSizeClassToEvict(3)
	require.Equal(t, 7, victim, "the only other nonempty class")
}

// TestDetermineSizeClassToEvictReturnsNoneWhenAllIdle: with no class
// populated, there is nothing to steal from.
func TestDetermineSizeClassToEvictReturnsNoneWhenAllIdle(t *testing.T) {
	m := newTestManager(t)
	require.Equal(t, -1, m.DetermineSizeClassToEvict(0))
}

// TestPlunderDrainsAllClassesOnSecondIdleCall mirrors S6 at the manager
// level: every class's ring drains once touched and then left alone
// across two Plunder calls.
func TestPlunderDrainsAllClassesOnSecondIdleCall(t *testing.T) {
	m := newTestManager(t)
	m.InsertRange(0, fakePointers(4))
	m.InsertRange(1, fakePointers(4))

	m.Plunder()
	require.Equal(t, 4, m.TcLength(0))
	require.Equal(t, 4, m.TcLength(1))

	m.Plunder()
	require.Equal(t, 0, m.TcLength(0))
	require.Equal(t, 0, m.TcLength(1))
}
