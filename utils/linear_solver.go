package utils

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// maxCondition is the reciprocal of the float64 unit roundoff, operators
// conditioned worse than this are numerically singular
const maxCondition = 1 / 2.220446049250313e-16

// LUSolver solves small dense systems by LU factorization followed by
// iterative refinement on the residual. A factorization that is singular, or a
// refined solution whose relative residual stays above Tolerance, is reported
// as ErrNonConvergence.
type LUSolver struct {
	Tolerance      float64
	MaxRefinements int
}

func NewLUSolver(tol float64, maxRefinements int) *LUSolver {
	if tol <= 0 {
		tol = 1.e-10
	}
	if maxRefinements < 0 {
		maxRefinements = 0
	}
	return &LUSolver{
		Tolerance:      tol,
		MaxRefinements: maxRefinements,
	}
}

// Solve returns x with A x = b
func (ls *LUSolver) Solve(A mat.Matrix, b mat.Vector) (x *mat.VecDense, err error) {
	return ls.solve(A, b, false)
}

// SolveTranspose returns x with A^T x = b
func (ls *LUSolver) SolveTranspose(A mat.Matrix, b mat.Vector) (x *mat.VecDense, err error) {
	return ls.solve(A, b, true)
}

func (ls *LUSolver) solve(A mat.Matrix, b mat.Vector, trans bool) (x *mat.VecDense, err error) {
	var (
		nr, nc = A.Dims()
		lu     mat.LU
		bNorm  = VecNorm2(b)
		relRes float64
	)
	if nr != nc {
		err = fmt.Errorf("linear solve needs a square operator, have %d x %d", nr, nc)
		return
	}
	if b.Len() != nr {
		err = fmt.Errorf("right hand side length %d does not match operator dimension %d", b.Len(), nr)
		return
	}
	if IsNonFinite(A) || IsNonFinite(b) {
		err = fmt.Errorf("linear solve input: %w", ErrNonFinite)
		return
	}
	x = mat.NewVecDense(nr, nil)
	if bNorm == 0 {
		return
	}
	lu.Factorize(A)
	if cond := lu.Cond(); math.IsNaN(cond) || cond > maxCondition {
		x = nil
		err = fmt.Errorf("singular %d x %d operator, condition number %g: %w", nr, nc, cond, ErrNonConvergence)
		return
	}
	// A Condition error is a warning only, refinement decides acceptance
	if err = lu.SolveVecTo(x, trans, b); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			x = nil
			return
		}
		err = nil
	}
	var (
		r  = mat.NewVecDense(nr, nil)
		dx = mat.NewVecDense(nr, nil)
	)
	for iter := 0; ; iter++ {
		ls.residual(r, A, x, b, trans)
		relRes = VecNorm2(r) / bNorm
		if relRes <= ls.Tolerance {
			return
		}
		if iter == ls.MaxRefinements {
			break
		}
		if err = lu.SolveVecTo(dx, trans, r); err != nil {
			if _, ok := err.(mat.Condition); !ok {
				x = nil
				return
			}
			err = nil
		}
		x.AddVec(x, dx)
	}
	x = nil
	err = fmt.Errorf("relative residual %.6e above tolerance %.6e after %d refinements: %w",
		relRes, ls.Tolerance, ls.MaxRefinements, ErrNonConvergence)
	return
}

// residual computes r = b - op(A) x
func (ls *LUSolver) residual(r *mat.VecDense, A mat.Matrix, x, b mat.Vector, trans bool) {
	if trans {
		r.MulVec(A.T(), x)
	} else {
		r.MulVec(A, x)
	}
	r.SubVec(b, r)
}
