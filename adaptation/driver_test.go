package adaptation

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/notargets/gorom/utils"
)

func TestProgressivePolicy(t *testing.T) {
	// Converges after one mutation
	{
		fx := newFixture(utils.Index{}, constResidual(0.5, 0.25, 0.125, 0.0625), 4)
		nFine := len(fx.basis.Fine())
		policy, err := NewProgressivePolicy(0.1, nFine)
		require.NoError(t, err)
		d, err := NewDriver(fx.basis, fx.est, policy, zaptest.NewLogger(t))
		require.NoError(t, err)
		assert.Equal(t, Initial, d.State())

		res, err := d.Run()
		require.NoError(t, err)
		assert.True(t, res.Converged)
		assert.Equal(t, Converged, d.State())
		assert.Equal(t, 1, res.Iterations)
		assert.LessOrEqual(t, res.Iterations, nFine)
		assert.Equal(t, []utils.Index{{0, 1, 2}}, res.Promoted)
		assert.Equal(t, 0.0625, res.GlobalError)
		require.Len(t, res.History, 2)
		assert.Equal(t, 0.9375, res.History[0].GlobalError)
		// Every estimate is preceded by a steady state solve
		assert.Equal(t, []string{"solve", "estimate", "solve", "estimate"}, fx.events)
		// The error drops by at least the indicator of each promoted column
		for k := 0; k+1 < len(res.History); k++ {
			prev, next := res.History[k], res.History[k+1]
			for i, j := range prev.Indices {
				if res.Promoted[k].Contains(j) {
					assert.GreaterOrEqual(t,
						math.Abs(prev.GlobalError)-math.Abs(next.GlobalError), prev.Indicator[i]-1.e-14)
				}
			}
		}
		// Promoted columns remain coarse
		for _, j := range res.Promoted[0] {
			assert.True(t, fx.basis.IsCoarse(j))
		}
		// A driver runs once
		_, err = d.Run()
		assert.Error(t, err)
	}
	// Already converged: no mutation
	{
		fx := newFixture(utils.Index{0}, constResidual(1, 0.01, 0.02), 3)
		policy, err := NewProgressivePolicy(0, 3)
		require.NoError(t, err)
		assert.Equal(t, DefaultProgressiveTolerance, policy.Tolerance())
		d, err := NewDriver(fx.basis, fx.est, policy, nil)
		require.NoError(t, err)
		res, err := d.Run()
		require.NoError(t, err)
		assert.True(t, res.Converged)
		assert.Equal(t, 0, res.Iterations)
		assert.Equal(t, utils.Index{0}, fx.basis.Coarse())
	}
	// Bounded by the number of fine columns
	{
		fx := newFixture(utils.Index{}, growingResidual(4, 0.25), 4)
		policy, err := NewProgressivePolicy(0.3, len(fx.basis.Fine()))
		require.NoError(t, err)
		d, err := NewDriver(fx.basis, fx.est, policy, zaptest.NewLogger(t))
		require.NoError(t, err)
		res, err := d.Run()
		require.NoError(t, err)
		assert.True(t, res.Converged)
		assert.Equal(t, []utils.Index{{3, 2, 1}, {0}}, res.Promoted)
		assert.LessOrEqual(t, res.Iterations, 4)
		assert.Empty(t, fx.basis.Fine())
	}
	// Exceeding the bound is an error
	{
		fx := newFixture(utils.Index{}, growingResidual(4, 0.25), 4)
		policy, err := NewProgressivePolicy(0.3, 1)
		require.NoError(t, err)
		d, err := NewDriver(fx.basis, fx.est, policy, zaptest.NewLogger(t))
		require.NoError(t, err)
		_, err = d.Run()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrIterationLimit))
		ae := asAdaptationError(err)
		require.NotNil(t, ae)
		assert.Equal(t, 1, ae.Iteration)
		assert.Equal(t, "global error", ae.Quantity)
		assert.Equal(t, 0.5, ae.Value)
		assert.Contains(t, err.Error(), "increase MaxIterations")
		assert.Equal(t, Failed, d.State())
	}
}

func TestSimplePolicy(t *testing.T) {
	// One promotion then a second estimate
	{
		var buf bytes.Buffer
		fx := newFixture(utils.Index{}, constResidual(0.5, 0.25, 0.125, 0.0625), 4)
		fx.est.Out = &buf
		policy, err := NewSimplePolicy(0)
		require.NoError(t, err)
		assert.Equal(t, DefaultSimpleTolerance, policy.Tolerance())
		d, err := NewDriver(fx.basis, fx.est, policy, zaptest.NewLogger(t))
		require.NoError(t, err)
		res, err := d.Run()
		require.NoError(t, err)
		assert.True(t, res.Converged)
		assert.Equal(t, 1, res.Iterations)
		assert.Equal(t, []utils.Index{{0}}, res.Promoted)
		assert.Equal(t, 0.4375, res.GlobalError)
		assert.Equal(t, 2, fx.model.solves)
		assert.Contains(t, buf.String(), "Adding POD basis: 0")
	}
	// Below tolerance: terminate immediately
	{
		var buf bytes.Buffer
		fx := newFixture(utils.Index{}, constResidual(0.1, 0.1), 2)
		fx.est.Out = &buf
		policy, err := NewSimplePolicy(0.5)
		require.NoError(t, err)
		d, err := NewDriver(fx.basis, fx.est, policy, nil)
		require.NoError(t, err)
		res, err := d.Run()
		require.NoError(t, err)
		assert.True(t, res.Converged)
		assert.Equal(t, 0, res.Iterations)
		assert.Equal(t, 1, fx.model.solves)
		assert.Contains(t, buf.String(), "Error is smaller than desired tolerance!")
	}
	// Single shot that does not reach tolerance reports the updated error
	{
		fx := newFixture(utils.Index{}, growingResidual(4, 0.25), 4)
		policy, err := NewSimplePolicy(0.3)
		require.NoError(t, err)
		d, err := NewDriver(fx.basis, fx.est, policy, nil)
		require.NoError(t, err)
		res, err := d.Run()
		require.NoError(t, err)
		assert.False(t, res.Converged)
		assert.Equal(t, 1, res.Iterations)
		assert.Equal(t, 0.5, res.GlobalError)
	}
}

func TestDriverFailures(t *testing.T) {
	// Steady state non-convergence
	{
		fx := newFixture(utils.Index{0}, constResidual(1, 1), 2)
		fx.model.solveErr = fmt.Errorf("newton stalled: %w", utils.ErrNonConvergence)
		policy, _ := NewProgressivePolicy(0.1, 2)
		d, err := NewDriver(fx.basis, fx.est, policy, zaptest.NewLogger(t))
		require.NoError(t, err)
		_, err = d.Run()
		assert.True(t, errors.Is(err, ErrSolverNonConvergence))
		ae := asAdaptationError(err)
		require.NotNil(t, ae)
		assert.Equal(t, Estimating, ae.State)
		assert.Equal(t, 0, ae.Iteration)
		assert.Contains(t, err.Error(), "relax the linear solver tolerance")
	}
	// Non-finite residual
	{
		fx := newFixture(utils.Index{}, constResidual(1, math.Inf(1)), 2)
		policy, _ := NewSimplePolicy(0.5)
		d, err := NewDriver(fx.basis, fx.est, policy, nil)
		require.NoError(t, err)
		_, err = d.Run()
		assert.True(t, errors.Is(err, ErrNonFinite))
		assert.Contains(t, err.Error(), "reduced residual")
	}
	// Exhausted fine set: the estimate claims more error than its indicators
	// can remove, selection fails and the partition is left as it was
	{
		fx := newFixture(utils.Index{0}, constResidual(1, 1, 1), 3)
		policy, _ := NewProgressivePolicy(0.1, 3)
		d, err := NewDriver(fx.basis, fx.est, policy, zaptest.NewLogger(t))
		require.NoError(t, err)
		est := &Estimate{
			Indices:     utils.Index{1, 2},
			Adjoint:     []float64{1, 1},
			Residual:    []float64{0.25, 0.25},
			Indicator:   []float64{0.25, 0.25},
			GlobalError: 1,
		}
		res := &Result{}
		err = d.adapt(0, est, policy.Tolerance(), res)
		assert.True(t, errors.Is(err, ErrBasisCapacity))
		ae := asAdaptationError(err)
		require.NotNil(t, ae)
		assert.Equal(t, Selecting, ae.State)
		assert.Equal(t, 1., ae.Value)
		assert.Contains(t, err.Error(), "increase the number of basis vectors")
		assert.Equal(t, Failed, d.State())
		assert.Equal(t, utils.Index{0}, fx.basis.Coarse())
		assert.Equal(t, utils.Index{1, 2}, fx.basis.Fine())
		assert.Empty(t, res.Promoted)
		assert.Zero(t, res.Iterations)
	}
	// Construction guards
	{
		fx := newFixture(utils.Index{}, constResidual(1), 1)
		policy, _ := NewSimplePolicy(0.5)
		_, err := NewDriver(nil, fx.est, policy, nil)
		assert.Error(t, err)
		_, err = NewDriver(fx.basis, nil, policy, nil)
		assert.Error(t, err)
		_, err = NewDriver(fx.basis, fx.est, nil, nil)
		assert.Error(t, err)
	}
}

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy("Simple", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "simple", p.Name())
	assert.Equal(t, 0.5, p.Tolerance())

	p, err = NewPolicy("progressive", 0.2, 10)
	require.NoError(t, err)
	assert.Equal(t, "progressive", p.Name())
	assert.Equal(t, 0.2, p.Tolerance())

	_, err = NewPolicy("progressive", 0.2, 0)
	assert.Error(t, err)
	_, err = NewPolicy("bisection", 0.2, 10)
	assert.Error(t, err)
	_, err = NewPolicy("simple", -1, 0)
	assert.Error(t, err)

	assert.Equal(t, "Mutating", Mutating.String())
	assert.Equal(t, "State(42)", State(42).String())
}
