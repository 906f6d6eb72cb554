// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package syncx

import (
	"sync/atomic"
	"testing"

	"herald/internal/testutil"
)

func TestProtected(t *testing.T) {
	t.Parallel()

	t.Run("read access", func(t *testing.T) {
		p := Protect(42)
		var result int
		p.RAccess(func(val int) {
			result = val
		})
		testutil.AssertEqual(t, result, 42)
	})

	t.Run("write access", func(t *testing.T) {
		var i int
		p := Protect(&i)
		p.Access(func(val *int) {
			*val = 43
		})
		testutil.AssertEqual(t, i, 43)
	})
}

func TestLazy(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	var l Lazy[string]
	f := func() string {
		calls.Add(1)
		return "hello"
	}

	testutil.AssertEqual(t, l.Get(f), "hello")
	testutil.AssertEqual(t, l.Get(f), "hello")
	testutil.AssertEqual(t, calls.Load(), int64(1))
}

func TestLimitedWaitGroup(t *testing.T) {
	t.Parallel()

	const limit = 3

	var (
		active  atomic.Int64
		max     atomic.Int64
		started atomic.Int64
	)

	lwg := NewLimitedWaitGroup(limit)
	for range 20 {
		lwg.Go(func() {
			started.Add(1)
			cur := active.Add(1)
			for {
				m := max.Load()
				if cur <= m || max.CompareAndSwap(m, cur) {
					break
				}
			}
			active.Add(-1)
		})
	}
	lwg.Wait()

	testutil.AssertEqual(t, started.Load(), int64(20))
	if max.Load() > limit {
		t.Fatalf("max concurrency %d exceeded limit %d", max.Load(), limit)
	}
}
