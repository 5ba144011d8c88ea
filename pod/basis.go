// Package pod holds a proper orthogonal decomposition basis and its partition
// into coarse (active) and fine (candidate) columns.
package pod

import (
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gorom/utils"
)

var (
	// ErrInvalidMutation is returned for promotion requests that name a
	// column twice, a column outside the basis or a column already coarse.
	ErrInvalidMutation = errors.New("pod: invalid basis mutation")

	ErrEmptySnapshots = errors.New("pod: snapshot matrix is empty")
)

type Partition uint8

const (
	Fine Partition = iota
	Coarse
)

func (p Partition) String() string {
	switch p {
	case Fine:
		return "fine"
	case Coarse:
		return "coarse"
	}
	return fmt.Sprintf("Partition(%d)", uint8(p))
}

// ReducedBasis owns the full set of basis vectors. The coarse and fine sets are
// index lists over the same columns of V, so a promotion never copies data.
type ReducedBasis struct {
	V              *mat.Dense // Full order dimension x number of basis vectors
	SingularValues []float64  // Present when built from snapshots
	membership     []Partition
	coarse         utils.Index // Promotion order
}

func NewReducedBasis(V *mat.Dense, coarse utils.Index) (rb *ReducedBasis, err error) {
	if V == nil || V.IsEmpty() {
		err = fmt.Errorf("basis matrix is empty: %w", ErrInvalidMutation)
		return
	}
	var (
		_, nb = V.Dims()
	)
	if err = coarse.CheckBounds(nb); err != nil {
		err = fmt.Errorf("initial coarse set: %v: %w", err, ErrInvalidMutation)
		return
	}
	rb = &ReducedBasis{
		V:          V,
		membership: make([]Partition, nb),
		coarse:     coarse.Copy(),
	}
	for _, j := range coarse {
		rb.membership[j] = Coarse
	}
	return
}

// NewFromSnapshots builds the basis from the leading nBasis left singular
// vectors of the snapshot matrix S (one snapshot per column). The first nCoarse
// modes start in the coarse set.
func NewFromSnapshots(S mat.Matrix, nBasis, nCoarse int) (rb *ReducedBasis, err error) {
	var (
		svd    mat.SVD
		U      mat.Dense
		nr, nc = S.Dims()
	)
	if nr == 0 || nc == 0 {
		err = ErrEmptySnapshots
		return
	}
	rank := min(nr, nc)
	switch {
	case nBasis <= 0 || nBasis > rank:
		err = fmt.Errorf("requested %d basis vectors, snapshot matrix %d x %d supports 1 to %d",
			nBasis, nr, nc, rank)
		return
	case nCoarse < 0 || nCoarse > nBasis:
		err = fmt.Errorf("initial coarse size %d must lie in [0, %d]", nCoarse, nBasis)
		return
	}
	if ok := svd.Factorize(S, mat.SVDThin); !ok {
		err = fmt.Errorf("singular value decomposition of %d x %d snapshot matrix failed: %w",
			nr, nc, utils.ErrNonConvergence)
		return
	}
	svd.UTo(&U)
	V := mat.DenseCopyOf(U.Slice(0, nr, 0, nBasis))
	if rb, err = NewReducedBasis(V, utils.NewRange(0, nCoarse-1)); err != nil {
		return
	}
	rb.SingularValues = svd.Values(nil)[:nBasis]
	return
}

func (rb *ReducedBasis) Size() int {
	_, nb := rb.V.Dims()
	return nb
}

func (rb *ReducedBasis) FullDimension() int {
	nr, _ := rb.V.Dims()
	return nr
}

// Coarse returns the active columns in promotion order
func (rb *ReducedBasis) Coarse() utils.Index {
	return rb.coarse.Copy()
}

// Fine returns the candidate columns in ascending order
func (rb *ReducedBasis) Fine() (I utils.Index) {
	I = make(utils.Index, 0, len(rb.membership)-len(rb.coarse))
	for j, p := range rb.membership {
		if p == Fine {
			I = append(I, j)
		}
	}
	return
}

func (rb *ReducedBasis) IsCoarse(j int) bool {
	return j >= 0 && j < len(rb.membership) && rb.membership[j] == Coarse
}

// Promote moves the listed columns from the fine set to the coarse set. The
// request is validated in full first: either every column moves or none does.
func (rb *ReducedBasis) Promote(I utils.Index) (err error) {
	if err = I.CheckBounds(rb.Size()); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidMutation)
	}
	for _, j := range I {
		if rb.membership[j] == Coarse {
			return fmt.Errorf("column %d is already coarse: %w", j, ErrInvalidMutation)
		}
	}
	for _, j := range I {
		rb.membership[j] = Coarse
		rb.coarse = append(rb.coarse, j)
	}
	return
}

// Print writes the basis matrix, one row per full order degree of freedom
func (rb *ReducedBasis) Print(w io.Writer) {
	fmt.Fprintf(w, "POD basis: %d x %d, coarse = %v, fine = %v\n",
		rb.FullDimension(), rb.Size(), rb.coarse.Sorted(), rb.Fine())
	fmt.Fprintf(w, "%.4g\n", mat.Formatted(rb.V, mat.Squeeze()))
}
