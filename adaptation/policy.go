package adaptation

import (
	"fmt"
	"math"
	"strings"
)

const (
	DefaultProgressiveTolerance = 0.1
	DefaultSimpleTolerance      = 0.5
)

// Policy sequences the estimate, select and mutate steps of one adaptation run
type Policy interface {
	Name() string
	Tolerance() float64
	Run(d *Driver) (res *Result, err error)
}

// ProgressivePolicy repeats estimate, select and mutate until the global error
// is within tolerance. MaxIterations bounds the number of mutations and has no
// default: it must be configured.
type ProgressivePolicy struct {
	tolerance     float64
	MaxIterations int
}

func NewProgressivePolicy(tolerance float64, maxIterations int) (p *ProgressivePolicy, err error) {
	if maxIterations <= 0 {
		err = fmt.Errorf("progressive adaptation needs MaxIterations > 0, have %d", maxIterations)
		return
	}
	if tolerance, err = checkTolerance(tolerance, DefaultProgressiveTolerance); err != nil {
		return
	}
	p = &ProgressivePolicy{tolerance: tolerance, MaxIterations: maxIterations}
	return
}

func (p *ProgressivePolicy) Name() string       { return "progressive" }
func (p *ProgressivePolicy) Tolerance() float64 { return p.tolerance }

func (p *ProgressivePolicy) Run(d *Driver) (res *Result, err error) {
	var (
		est *Estimate
	)
	res = &Result{Policy: p.Name()}
	for iter := 0; ; iter++ {
		if est, err = d.solveAndEstimate(iter); err != nil {
			return
		}
		res.record(est)
		if absError(est) <= p.tolerance {
			d.converge(res)
			return
		}
		if iter == p.MaxIterations {
			err = d.fail(newError(iter, Estimating, "global error", est.GlobalError,
				fmt.Errorf("%d mutations, tolerance %g: %w", p.MaxIterations, p.tolerance, ErrIterationLimit)))
			return
		}
		if err = d.adapt(iter, est, p.tolerance, res); err != nil {
			return
		}
	}
}

// SimplePolicy estimates once and, when the error is above tolerance, promotes
// a single batch of columns and estimates again to report the updated error
type SimplePolicy struct {
	tolerance float64
}

func NewSimplePolicy(tolerance float64) (p *SimplePolicy, err error) {
	if tolerance, err = checkTolerance(tolerance, DefaultSimpleTolerance); err != nil {
		return
	}
	p = &SimplePolicy{tolerance: tolerance}
	return
}

func (p *SimplePolicy) Name() string       { return "simple" }
func (p *SimplePolicy) Tolerance() float64 { return p.tolerance }

func (p *SimplePolicy) Run(d *Driver) (res *Result, err error) {
	var (
		est *Estimate
	)
	res = &Result{Policy: p.Name()}
	if est, err = d.solveAndEstimate(0); err != nil {
		return
	}
	res.record(est)
	if absError(est) <= p.tolerance {
		fmt.Fprintf(d.Out, "Error is smaller than desired tolerance!\n")
		d.converge(res)
		return
	}
	if err = d.adapt(0, est, p.tolerance, res); err != nil {
		return
	}
	if est, err = d.solveAndEstimate(1); err != nil {
		return
	}
	res.record(est)
	if absError(est) <= p.tolerance {
		d.converge(res)
		return
	}
	d.finish(res)
	return
}

// NewPolicy maps a configuration name onto a policy. A zero tolerance selects
// the policy default.
func NewPolicy(name string, tolerance float64, maxIterations int) (p Policy, err error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "progressive", "":
		var pp *ProgressivePolicy
		if pp, err = NewProgressivePolicy(tolerance, maxIterations); err == nil {
			p = pp
		}
	case "simple":
		var sp *SimplePolicy
		if sp, err = NewSimplePolicy(tolerance); err == nil {
			p = sp
		}
	default:
		err = fmt.Errorf("unknown adaptation policy %q, choose progressive or simple", name)
	}
	return
}

func checkTolerance(tol, def float64) (float64, error) {
	switch {
	case tol == 0:
		return def, nil
	case tol < 0 || math.IsNaN(tol) || math.IsInf(tol, 0):
		return 0, fmt.Errorf("adaptation tolerance must be a positive number, have %g", tol)
	}
	return tol, nil
}
