package adaptation

import (
	"errors"
	"fmt"
	"math"

	"github.com/notargets/gorom/pod"
	"github.com/notargets/gorom/utils"
)

var (
	// ErrSolverNonConvergence covers both the coarse steady state solve and the
	// projected adjoint solve.
	ErrSolverNonConvergence = utils.ErrNonConvergence

	// ErrBasisCapacity means the fine set ran out before the greedy selection
	// brought the error under tolerance.
	ErrBasisCapacity = errors.New("adaptation: fine basis exhausted before reaching tolerance")

	ErrInvalidMutation = pod.ErrInvalidMutation

	ErrNonFinite = utils.ErrNonFinite

	// ErrIterationLimit is returned by the progressive policy when
	// MaxIterations mutations did not reach tolerance.
	ErrIterationLimit = errors.New("adaptation: iteration limit reached before convergence")
)

// AdaptationError carries the iteration context of a failed adaptation run
type AdaptationError struct {
	Iteration int
	State     State
	Quantity  string
	Value     float64
	Err       error
}

func (e *AdaptationError) Error() string {
	msg := fmt.Sprintf("adaptation failed at iteration %d (%s)", e.Iteration, e.State)
	if e.Quantity != "" {
		msg += fmt.Sprintf(": %s = %g", e.Quantity, e.Value)
	}
	msg += ": " + e.Err.Error()
	if hint := remedy(e.Err); hint != "" {
		msg += " (" + hint + ")"
	}
	return msg
}

func (e *AdaptationError) Unwrap() error {
	return e.Err
}

func remedy(err error) string {
	switch {
	case errors.Is(err, ErrNonFinite):
		return "reduce the time step / CFL number or relax the adaptation tolerance"
	case errors.Is(err, ErrSolverNonConvergence):
		return "relax the linear solver tolerance or enlarge the coarse basis"
	case errors.Is(err, ErrBasisCapacity):
		return "increase the number of basis vectors or relax the tolerance"
	case errors.Is(err, ErrIterationLimit):
		return "increase MaxIterations or relax the tolerance"
	case errors.Is(err, ErrInvalidMutation):
		return "promotion requests must name distinct fine columns"
	}
	return ""
}

func newError(iter int, state State, quantity string, value float64, err error) *AdaptationError {
	return &AdaptationError{
		Iteration: iter,
		State:     state,
		Quantity:  quantity,
		Value:     value,
		Err:       err,
	}
}

func absError(est *Estimate) float64 {
	return math.Abs(est.GlobalError)
}
