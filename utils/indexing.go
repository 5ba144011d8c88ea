package utils

import (
	"fmt"
	"sort"
)

type Index []int

func NewRange(rmin, rmax int) (r Index) {
	var (
		size = rmax - rmin + 1 // INCLUSIVE RANGE
	)
	if size <= 0 {
		return Index{}
	}
	r = make(Index, size)
	for i := range r {
		r[i] = i + rmin
	}
	return
}

func (I Index) Copy() (r Index) {
	r = make(Index, len(I))
	copy(r, I)
	return
}

func (I Index) Contains(val int) bool {
	for _, ival := range I {
		if ival == val {
			return true
		}
	}
	return false
}

// Sorted returns an ascending copy, the receiver is unchanged
func (I Index) Sorted() (r Index) {
	r = I.Copy()
	sort.Ints(r)
	return
}

// CheckBounds verifies every entry lies in [0, max) and that no entry repeats
func (I Index) CheckBounds(max int) (err error) {
	var (
		seen = make(map[int]struct{}, len(I))
	)
	for i, val := range I {
		switch {
		case val < 0:
			err = fmt.Errorf("index bounds error, entry %d < 0: val = %v", i, val)
			return
		case val > max-1:
			err = fmt.Errorf("index bounds error, entry %d > max: val = %v, max = %v", i, val, max-1)
			return
		}
		if _, dup := seen[val]; dup {
			err = fmt.Errorf("duplicate index: entry %d repeats val = %v", i, val)
			return
		}
		seen[val] = struct{}{}
	}
	return
}
