package utils

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func NewVecConst(N int, val float64) (V *mat.VecDense) {
	V = mat.NewVecDense(N, ConstArray(N, val))
	return
}

func VecGetF64(v mat.Vector) (r []float64) {
	r = make([]float64, v.Len())
	for i := 0; i < v.Len(); i++ {
		r[i] = v.AtVec(i)
	}
	return
}

// VecNorm2 is the Euclidean norm of v
func VecNorm2(v mat.Vector) float64 {
	if vd, ok := v.(*mat.VecDense); ok && vd.RawVector().Inc == 1 {
		return floats.Norm(vd.RawVector().Data, 2)
	}
	return floats.Norm(VecGetF64(v), 2)
}
