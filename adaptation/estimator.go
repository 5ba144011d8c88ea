package adaptation

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gorom/pod"
	"github.com/notargets/gorom/utils"
)

// Estimate is the dual weighted residual of one coarse solution, expressed
// over the fine columns of the basis. Position i of each slice refers to the
// basis column Indices[i].
type Estimate struct {
	Indices     utils.Index
	Adjoint     []float64
	Residual    []float64
	Indicator   []float64 // |Adjoint[i] * Residual[i]|
	GlobalError float64   // Signed sum of Adjoint[i] * Residual[i]
	Functional  float64
}

// DualWeightedResidual forms the per column indicators and the signed global
// error from projected adjoint and residual vectors
func DualWeightedResidual(indices utils.Index, adjoint, residual []float64) (est *Estimate, err error) {
	var (
		n = len(indices)
	)
	if len(adjoint) != n || len(residual) != n {
		err = fmt.Errorf("dual weighted residual needs equal lengths: indices %d, adjoint %d, residual %d",
			n, len(adjoint), len(residual))
		return
	}
	if err = utils.NonFiniteError("reduced adjoint", adjoint); err != nil {
		return
	}
	if err = utils.NonFiniteError("reduced residual", residual); err != nil {
		return
	}
	est = &Estimate{
		Indices:   indices.Copy(),
		Adjoint:   append([]float64(nil), adjoint...),
		Residual:  append([]float64(nil), residual...),
		Indicator: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		dwr := adjoint[i] * residual[i]
		est.Indicator[i] = math.Abs(dwr)
		est.GlobalError += dwr
	}
	if err = utils.NonFiniteError("global error", est.GlobalError); err != nil {
		est = nil
	}
	return
}

func (est *Estimate) WriteTable(w io.Writer) {
	fmt.Fprintf(w, "%-10s%-20s%-20s%-20s\n", "Index", "Reduced Adjoint", "Reduced Residual", "Dual Weighted Residual")
	for i, j := range est.Indices {
		fmt.Fprintf(w, "%-10d%-20.8g%-20.8g%-20.8g\n", j, est.Adjoint[i], est.Residual[i], est.Indicator[i])
	}
	fmt.Fprintf(w, "\nTotal error: %g\n", est.GlobalError)
}

// Estimator assembles the fine space adjoint problem about a converged coarse
// state and evaluates its dual weighted residual
type Estimator struct {
	Model      Model
	Functional Functional
	Solver     LinearSolver
	Out        io.Writer // Rank gated report stream, nil is silent
}

func NewEstimator(model Model, functional Functional, solver LinearSolver, out io.Writer) *Estimator {
	if out == nil {
		out = io.Discard
	}
	return &Estimator{
		Model:      model,
		Functional: functional,
		Solver:     solver,
		Out:        out,
	}
}

// Estimate must be called with a state solved on the current coarse set, it
// has to be repeated after every basis mutation
func (e *Estimator) Estimate(state mat.Vector, basis *pod.ReducedBasis) (est *Estimate, err error) {
	var (
		fine = basis.Fine()
	)
	value, gradient, err := e.Functional.Evaluate(state)
	if err != nil {
		err = fmt.Errorf("functional evaluation: %w", err)
		return
	}
	if err = utils.NonFiniteError("functional", value); err != nil {
		return
	}
	if err = utils.NonFiniteError("functional gradient", gradient); err != nil {
		return
	}
	if len(fine) == 0 {
		est = &Estimate{Indices: utils.Index{}, Functional: value}
		est.WriteTable(e.Out)
		return
	}
	R, err := e.Model.Residual(state)
	if err != nil {
		err = fmt.Errorf("residual assembly: %w", err)
		return
	}
	J, err := e.Model.Jacobian(state)
	if err != nil {
		err = fmt.Errorf("jacobian assembly: %w", err)
		return
	}
	var (
		reducedGradient = basis.Project(fine, gradient)
		reducedResidual = basis.Project(fine, R)
		reducedJacobian = basis.ReduceOperator(fine, J)
	)
	reducedAdjoint, err := e.Solver.SolveTranspose(reducedJacobian, reducedGradient)
	if err != nil {
		err = fmt.Errorf("reduced adjoint solve: %w", err)
		return
	}
	if est, err = DualWeightedResidual(fine,
		utils.VecGetF64(reducedAdjoint), utils.VecGetF64(reducedResidual)); err != nil {
		return
	}
	est.Functional = value
	est.WriteTable(e.Out)
	return
}
