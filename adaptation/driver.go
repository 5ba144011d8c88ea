// Package adaptation grows the active set of a reduced basis by dual weighted
// residual error estimation. Each pass solves the coarse reduced model, ranks
// the fine basis columns by their contribution to the functional error and
// promotes the largest ones until the estimated error is within tolerance.
package adaptation

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/notargets/gorom/pod"
	"github.com/notargets/gorom/utils"
)

type Result struct {
	Policy      string
	Iterations  int // Number of mutations applied
	GlobalError float64
	Converged   bool
	Promoted    []utils.Index // One entry per mutation
	History     []*Estimate   // One entry per estimate, in order
	Final       *Estimate
}

func (res *Result) record(est *Estimate) {
	res.History = append(res.History, est)
	res.Final = est
	res.GlobalError = est.GlobalError
}

// Driver owns the basis partition for the duration of one adaptation run
type Driver struct {
	Basis     *pod.ReducedBasis
	Estimator *Estimator
	Policy    Policy
	Logger    *zap.Logger
	Out       io.Writer
	state     State
}

func NewDriver(basis *pod.ReducedBasis, est *Estimator, policy Policy, logger *zap.Logger) (d *Driver, err error) {
	switch {
	case basis == nil:
		err = errors.New("adaptation driver needs a basis")
	case est == nil || est.Model == nil || est.Functional == nil || est.Solver == nil:
		err = errors.New("adaptation driver needs an estimator with model, functional and solver")
	case policy == nil:
		err = errors.New("adaptation driver needs a policy")
	}
	if err != nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d = &Driver{
		Basis:     basis,
		Estimator: est,
		Policy:    policy,
		Logger:    logger.With(zap.String("policy", policy.Name())),
		Out:       est.Out,
		state:     Initial,
	}
	if d.Out == nil {
		d.Out = io.Discard
	}
	return
}

func (d *Driver) State() State { return d.state }

// Run executes the configured policy once. Any failure ends the run with an
// *AdaptationError, nothing is retried.
func (d *Driver) Run() (res *Result, err error) {
	if d.state != Initial {
		err = fmt.Errorf("adaptation driver already ran, state is %s", d.state)
		return
	}
	d.Logger.Info("starting basis adaptation",
		zap.Int("basis", d.Basis.Size()),
		zap.Int("coarse", len(d.Basis.Coarse())),
		zap.Float64("tolerance", d.Policy.Tolerance()))
	res, err = d.Policy.Run(d)
	if err != nil {
		return
	}
	outcome := "stopped"
	if res.Converged {
		outcome = "converged"
	}
	fmt.Fprintf(d.Out, "Adaptation %s after %d mutations, coarse basis size %d, error %g\n",
		outcome, res.Iterations, len(d.Basis.Coarse()), res.GlobalError)
	return
}

func (d *Driver) setState(s State) {
	d.Logger.Debug("state transition", zap.Stringer("from", d.state), zap.Stringer("to", s))
	d.state = s
}

// solveAndEstimate re-solves the coarse model to steady state and estimates
// its error on the fine columns. The solve always precedes the estimate.
func (d *Driver) solveAndEstimate(iter int) (est *Estimate, err error) {
	d.setState(Estimating)
	state, err := d.Estimator.Model.SteadyState(d.Basis)
	if err != nil {
		err = d.fail(newError(iter, Estimating, "", 0, fmt.Errorf("coarse steady state: %w", err)))
		return
	}
	fmt.Fprintf(d.Out, "Iteration %d, coarse basis %v\n", iter, d.Basis.Coarse())
	if est, err = d.Estimator.Estimate(state, d.Basis); err != nil {
		err = d.fail(newError(iter, Estimating, "", 0, err))
		return
	}
	d.Logger.Debug("error estimated",
		zap.Int("iteration", iter),
		zap.Float64("globalError", est.GlobalError),
		zap.Float64("functional", est.Functional),
		zap.Int("fine", len(est.Indices)))
	return
}

// adapt selects the columns to promote and moves them into the coarse set
func (d *Driver) adapt(iter int, est *Estimate, tolerance float64, res *Result) (err error) {
	var (
		promote utils.Index
	)
	d.setState(Selecting)
	if promote, err = SelectGreedy(est, tolerance); err != nil {
		return d.fail(newError(iter, Selecting, "global error", est.GlobalError, err))
	}
	d.setState(Mutating)
	if err = d.Basis.Promote(promote); err != nil {
		return d.fail(newError(iter, Mutating, "", 0, err))
	}
	for _, j := range promote {
		fmt.Fprintf(d.Out, "Adding POD basis: %d\n", j)
	}
	d.Logger.Info("promoted basis columns",
		zap.Int("iteration", iter),
		zap.Ints("columns", promote),
		zap.Int("coarse", len(d.Basis.Coarse())))
	res.Promoted = append(res.Promoted, promote)
	res.Iterations++
	return
}

func (d *Driver) converge(res *Result) {
	d.setState(Converged)
	res.Converged = true
	d.finish(res)
}

func (d *Driver) finish(res *Result) {
	d.Logger.Info("basis adaptation finished",
		zap.Bool("converged", res.Converged),
		zap.Int("iterations", res.Iterations),
		zap.Float64("globalError", res.GlobalError))
}

func (d *Driver) fail(ae *AdaptationError) error {
	d.setState(Failed)
	d.Logger.Error("basis adaptation failed", zap.Error(ae))
	return ae
}
