package adaptation

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/notargets/gorom/utils"
)

type candidate struct {
	index     int
	indicator float64
}

// candidateQueue yields fine columns from the largest indicator down. Equal
// indicators keep their original relative order in the ascending sort, so the
// higher column index of a tie is consumed first.
type candidateQueue struct {
	items []candidate
}

func newCandidateQueue(est *Estimate) (q *candidateQueue) {
	q = &candidateQueue{items: make([]candidate, len(est.Indices))}
	for i, j := range est.Indices {
		q.items[i] = candidate{index: j, indicator: est.Indicator[i]}
	}
	slices.SortStableFunc(q.items, func(a, b candidate) int {
		return cmp.Compare(a.indicator, b.indicator)
	})
	return
}

func (q *candidateQueue) Len() int { return len(q.items) }

// Pop returns ok == false when the queue is empty
func (q *candidateQueue) Pop() (c candidate, ok bool) {
	n := len(q.items)
	if n == 0 {
		return
	}
	c, ok = q.items[n-1], true
	q.items = q.items[:n-1]
	return
}

// SelectGreedy picks the fine columns to promote. Starting from |GlobalError|
// it removes the largest remaining indicator while the running error is
// strictly above tolerance. An already converged estimate yields an empty list.
// Estimates built by DualWeightedResidual satisfy |GlobalError| <= sum of the
// indicators, so ErrBasisCapacity only follows from an estimate assembled
// elsewhere.
func SelectGreedy(est *Estimate, tolerance float64) (promote utils.Index, err error) {
	var (
		q               = newCandidateQueue(est)
		adaptationError = math.Abs(est.GlobalError)
	)
	promote = utils.Index{}
	for adaptationError > tolerance {
		c, ok := q.Pop()
		if !ok {
			err = fmt.Errorf("remaining error %g above tolerance %g after %d columns: %w",
				adaptationError, tolerance, len(promote), ErrBasisCapacity)
			promote = nil
			return
		}
		adaptationError -= c.indicator
		promote = append(promote, c.index)
	}
	return
}
