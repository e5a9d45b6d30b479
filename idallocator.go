package lake

import (
	"fmt"
	"math/bits"
	"sync"

	"github.com/pkg/errors"
)

// RangeAllocator hands out disjoint ranges of ids. Ranges which are returned
// unused may be handed out again.
type RangeAllocator interface {
	Get() (*IDRange, error)
	Return(*IDRange) error
}

// RangeNexter yields successive ids from ranges of a RangeAllocator.
type RangeNexter interface {
	Next() (uint64, error)
	Return() error
}

// LocalRangeAllocator is an in-process RangeAllocator which hands out
// consecutive ranges of a fixed width starting at 0.
type LocalRangeAllocator struct {
	width    uint64
	next     uint64
	returned []*IDRange
	mu       sync.Mutex
}

// NewLocalRangeAllocator returns a RangeAllocator whose ranges are width ids
// wide. width must be a power of two no smaller than 2^16.
func NewLocalRangeAllocator(width uint64) RangeAllocator {
	if width < 1<<16 || bits.OnesCount64(width) > 1 {
		panic(fmt.Sprintf("bad width in NewLocalRangeAllocator: %d", width))
	}
	return &LocalRangeAllocator{
		width: width,
	}
}

// IDRange is inclusive at Start and exclusive at End.
type IDRange struct {
	Start uint64
	End   uint64
}

type rangeNexter struct {
	a RangeAllocator
	r *IDRange
}

// NewRangeNexter takes a first range from a.
func NewRangeNexter(a RangeAllocator) (RangeNexter, error) {
	r, err := a.Get()
	if err != nil {
		return nil, errors.Wrap(err, "getting range")
	}
	return &rangeNexter{
		a: a,
		r: r,
	}, nil
}

func (n *rangeNexter) Next() (uint64, error) {
	var err error
	if n.r.Start == n.r.End {
		n.r, err = n.a.Get()
		if err != nil {
			return 0, errors.Wrap(err, "getting next range")
		}
	}
	if n.r.Start > n.r.End {
		return 0, errors.Errorf("corrupt range %v", *n.r)
	}
	n.r.Start++
	return n.r.Start - 1, nil
}

// Return gives the unused remainder of the current range back.
func (n *rangeNexter) Return() error {
	return n.a.Return(n.r)
}

// Get implements RangeAllocator.
func (a *LocalRangeAllocator) Get() (*IDRange, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n := len(a.returned); n > 0 {
		ret := a.returned[n-1]
		a.returned = a.returned[:n-1]
		return ret, nil
	}
	ret := &IDRange{
		Start: a.next,
		End:   a.next + a.width,
	}
	a.next += a.width
	return ret, nil
}

// Return implements RangeAllocator.
func (a *LocalRangeAllocator) Return(r *IDRange) error {
	if r.Start == r.End {
		return nil
	}
	if r.Start > r.End {
		return errors.Errorf("attempted to return range with start > end: %v", r)
	}
	a.mu.Lock()
	a.returned = append(a.returned, r)
	a.mu.Unlock()
	return nil
}
