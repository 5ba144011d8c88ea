package adaptation

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gorom/pod"
	"github.com/notargets/gorom/utils"
)

// fakeModel lives on an identity basis, so projecting onto a fine column just
// picks that entry of the full vector. The residual may change with every
// steady state solve.
type fakeModel struct {
	n        int
	residual func(solve int) []float64
	jacobian mat.Matrix
	solveErr error
	solves   int
	events   *[]string
}

func newFakeModel(n int, residual func(solve int) []float64, events *[]string) *fakeModel {
	return &fakeModel{
		n:        n,
		residual: residual,
		jacobian: identity(n),
		events:   events,
	}
}

func (m *fakeModel) SteadyState(basis *pod.ReducedBasis) (*mat.VecDense, error) {
	*m.events = append(*m.events, "solve")
	if m.solveErr != nil {
		return nil, m.solveErr
	}
	m.solves++
	return mat.NewVecDense(m.n, nil), nil
}

func (m *fakeModel) Residual(state mat.Vector) (*mat.VecDense, error) {
	return mat.NewVecDense(m.n, m.residual(m.solves-1)), nil
}

func (m *fakeModel) Jacobian(state mat.Vector) (mat.Matrix, error) {
	return m.jacobian, nil
}

type fakeFunctional struct {
	gradient []float64
	events   *[]string
}

func (f *fakeFunctional) Evaluate(state mat.Vector) (float64, *mat.VecDense, error) {
	*f.events = append(*f.events, "estimate")
	return 1, mat.NewVecDense(len(f.gradient), append([]float64(nil), f.gradient...)), nil
}

type failingSolver struct{}

func (failingSolver) SolveTranspose(A mat.Matrix, b mat.Vector) (*mat.VecDense, error) {
	return nil, fmt.Errorf("gmres stalled: %w", utils.ErrNonConvergence)
}

func identity(n int) *mat.Dense {
	I := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		I.Set(i, i, 1)
	}
	return I
}

func constResidual(r ...float64) func(int) []float64 {
	return func(int) []float64 { return append([]float64(nil), r...) }
}

// growingResidual doubles every entry on each solve
func growingResidual(n int, r0 float64) func(int) []float64 {
	return func(solve int) []float64 {
		return utils.ConstArray(n, r0*math.Pow(2, float64(solve)))
	}
}

type fixture struct {
	basis  *pod.ReducedBasis
	model  *fakeModel
	est    *Estimator
	events []string
}

func newFixture(coarse utils.Index, residual func(int) []float64, n int) (fx *fixture) {
	fx = &fixture{}
	basis, err := pod.NewReducedBasis(identity(n), coarse)
	if err != nil {
		panic(err)
	}
	fx.basis = basis
	fx.model = newFakeModel(n, residual, &fx.events)
	fx.est = NewEstimator(fx.model,
		&fakeFunctional{gradient: utils.ConstArray(n, 1), events: &fx.events},
		utils.NewLUSolver(1.e-12, 1), nil)
	return
}

func asAdaptationError(err error) *AdaptationError {
	var ae *AdaptationError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}
