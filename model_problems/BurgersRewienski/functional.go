package BurgersRewienski

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gorom/utils"
)

// SolutionIntegral is the output functional I(U) = sum_i U_i * dx, the
// midpoint approximation of the integral of u over the domain
type SolutionIntegral struct {
	DX float64
	K  int
}

func NewSolutionIntegral(c *Burgers) *SolutionIntegral {
	return &SolutionIntegral{DX: c.DX, K: c.K}
}

func (si *SolutionIntegral) Evaluate(state mat.Vector) (val float64, grad *mat.VecDense, err error) {
	if state.Len() != si.K {
		err = fmt.Errorf("state length %d does not match %d cells", state.Len(), si.K)
		return
	}
	for i := 0; i < si.K; i++ {
		val += state.AtVec(i)
	}
	val *= si.DX
	grad = utils.NewVecConst(si.K, si.DX)
	return
}
