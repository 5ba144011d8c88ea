package adaptation

import (
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gorom/pod"
)

// Model is the discretized governing equation. SteadyState solves the reduced
// model built on the coarse columns of the basis and returns the full order
// state; Residual and Jacobian linearize the full order equations about a state.
type Model interface {
	SteadyState(basis *pod.ReducedBasis) (state *mat.VecDense, err error)
	Residual(state mat.Vector) (R *mat.VecDense, err error)
	Jacobian(state mat.Vector) (J mat.Matrix, err error)
}

// Functional is the scalar objective whose error is being controlled
type Functional interface {
	Evaluate(state mat.Vector) (value float64, gradient *mat.VecDense, err error)
}

// LinearSolver solves A^T x = b for a reduced operator A
type LinearSolver interface {
	SolveTranspose(A mat.Matrix, b mat.Vector) (x *mat.VecDense, err error)
}
