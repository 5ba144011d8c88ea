package pod

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gorom/utils"
)

// Project returns the basis coordinates V_I^T x for the columns in I
func (rb *ReducedBasis) Project(I utils.Index, x mat.Vector) (a *mat.VecDense) {
	var (
		n = len(I)
	)
	rb.checkLen(x.Len())
	if n == 0 {
		return &mat.VecDense{}
	}
	a = mat.NewVecDense(n, nil)
	for i, j := range I {
		a.SetVec(i, mat.Dot(rb.V.ColView(j), x))
	}
	return
}

// Expand returns the full order vector V_I a
func (rb *ReducedBasis) Expand(I utils.Index, a mat.Vector) (x *mat.VecDense) {
	if a.Len() != len(I) {
		panic(fmt.Errorf("coordinate length %d does not match index length %d", a.Len(), len(I)))
	}
	x = mat.NewVecDense(rb.FullDimension(), nil)
	for i, j := range I {
		x.AddScaledVec(x, a.AtVec(i), rb.V.ColView(j))
	}
	return
}

// ReduceOperator returns the Galerkin projection V_I^T A V_I of a full order
// operator onto the columns in I
func (rb *ReducedBasis) ReduceOperator(I utils.Index, A mat.Matrix) (Ar *mat.Dense) {
	var (
		n      = len(I)
		nr, nc = A.Dims()
		N      = rb.FullDimension()
		AV     = mat.NewVecDense(N, nil)
	)
	if nr != N || nc != N {
		panic(fmt.Errorf("operator is %d x %d, basis full dimension is %d", nr, nc, N))
	}
	if n == 0 {
		return &mat.Dense{}
	}
	Ar = mat.NewDense(n, n, nil)
	for k, jk := range I {
		AV.MulVec(A, rb.V.ColView(jk))
		for i, ji := range I {
			Ar.Set(i, k, mat.Dot(rb.V.ColView(ji), AV))
		}
	}
	return
}

func (rb *ReducedBasis) checkLen(n int) {
	if n != rb.FullDimension() {
		panic(fmt.Errorf("vector length %d does not match basis full dimension %d", n, rb.FullDimension()))
	}
}
