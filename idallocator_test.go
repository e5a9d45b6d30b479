package lake_test

import (
	"sync"
	"testing"

	"github.com/sparkify/lake"
	"github.com/sparkify/lake/test"
)

func TestLocalRangeAllocator(t *testing.T) {
	a := lake.NewLocalRangeAllocator(1 << 16)
	r1, err := a.Get()
	test.ErrNil(t, err, "getting first range")
	r2, err := a.Get()
	test.ErrNil(t, err, "getting second range")
	test.MustBe(t, lake.IDRange{Start: 0, End: 1 << 16}, *r1)
	test.MustBe(t, lake.IDRange{Start: 1 << 16, End: 1 << 17}, *r2)

	r1.Start = 10
	test.ErrNil(t, a.Return(r1), "returning range")
	r3, err := a.Get()
	test.ErrNil(t, err, "getting returned range")
	test.MustBe(t, lake.IDRange{Start: 10, End: 1 << 16}, *r3)

	test.ErrNil(t, a.Return(&lake.IDRange{Start: 5, End: 5}), "returning empty range")
	if err := a.Return(&lake.IDRange{Start: 6, End: 5}); err == nil {
		t.Fatal("expected error returning inverted range")
	}
}

func TestLocalRangeAllocatorBadWidth(t *testing.T) {
	for _, width := range []uint64{1 << 10, 3 << 16} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic for width %d", width)
				}
			}()
			lake.NewLocalRangeAllocator(width)
		}()
	}
}

func TestRangeNexterRollsOver(t *testing.T) {
	a := lake.NewLocalRangeAllocator(1 << 16)
	n, err := lake.NewRangeNexter(a)
	test.ErrNil(t, err, "getting nexter")
	other, err := lake.NewRangeNexter(a)
	test.ErrNil(t, err, "getting second nexter")

	var last uint64
	for i := 0; i < 1<<16+1; i++ {
		last, err = n.Next()
		test.ErrNil(t, err, "getting id")
	}
	// the first range is used up, and the second belongs to other
	test.MustBe(t, uint64(2<<16), last)
	id, err := other.Next()
	test.ErrNil(t, err, "getting id from other")
	test.MustBe(t, uint64(1<<16), id)
}

func TestRangeNexterConcurrent(t *testing.T) {
	a := lake.NewLocalRangeAllocator(1 << 16)
	var mu sync.Mutex
	seen := make(map[uint64]bool)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := lake.NewRangeNexter(a)
			if err != nil {
				t.Errorf("getting nexter: %v", err)
				return
			}
			for j := 0; j < 100; j++ {
				id, err := n.Next()
				if err != nil {
					t.Errorf("getting id: %v", err)
					return
				}
				mu.Lock()
				if seen[id] {
					t.Errorf("id %d handed out twice", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	test.MustBe(t, 800, len(seen))
}
