package BurgersRewienski

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gorom/pod"
	"github.com/notargets/gorom/utils"
)

/*
Steady and unsteady solutions of the Rewienski form of the inviscid Burgers
equation:

	u_t + (u^2/2)_x = 0.02 * exp(b * x),   u(XLeft, t) = a,   u(x, 0) = 1

discretized with first order upwind finite volumes on K cells. The state is
the vector of cell averages, the residual is the semi-discrete right hand side
dU/dt = R(U).
*/
type Burgers struct {
	A, B          float64 // Rewienski parameters: inflow value and source exponent
	XLeft, XRight float64
	K             int
	DX            float64
	X             []float64 // Cell centers
	Source        []float64
	CFL           float64
	Partitions    *utils.PartitionMap
	Solver        *utils.LUSolver
	NewtonTol     float64
	MaxNewton     int
	Guess         *mat.VecDense // Steady state initial guess, defaults to the initial condition
	Out           io.Writer
}

func NewBurgers(a, b, xLeft, xRight float64, K, ParallelDegree int, out io.Writer) (c *Burgers, err error) {
	switch {
	case K < 2:
		err = fmt.Errorf("burgers grid needs at least 2 cells, have %d", K)
	case xRight <= xLeft:
		err = fmt.Errorf("burgers grid bounds must increase, have [%g, %g]", xLeft, xRight)
	case a <= 0:
		err = fmt.Errorf("upwind discretization needs a positive inflow value, have a = %g", a)
	}
	if err != nil {
		return
	}
	if out == nil {
		out = io.Discard
	}
	c = &Burgers{
		A:          a,
		B:          b,
		XLeft:      xLeft,
		XRight:     xRight,
		K:          K,
		DX:         (xRight - xLeft) / float64(K),
		X:          make([]float64, K),
		Source:     make([]float64, K),
		CFL:        0.5,
		Partitions: utils.NewPartitionMap(ParallelDegree, K),
		Solver:     utils.NewLUSolver(1.e-10, 2),
		NewtonTol:  1.e-9,
		MaxNewton:  50,
		Out:        out,
	}
	for i := 0; i < K; i++ {
		c.X[i] = xLeft + (float64(i)+0.5)*c.DX
		c.Source[i] = 0.02 * math.Exp(b*c.X[i])
	}
	c.Guess = c.InitialCondition()
	fmt.Fprintf(c.Out, "Burgers Rewienski in 1 Dimension\na = %8.5f, b = %8.5f, domain [%g, %g]\n", a, b, xLeft, xRight)
	fmt.Fprintf(c.Out, "Num Elements K = %d, dx = %8.5f, Parallel Degree = %d\n", K, c.DX, c.Partitions.ParallelDegree)
	return
}

func (c *Burgers) InitialCondition() *mat.VecDense {
	return utils.NewVecConst(c.K, 1)
}

func flux(u float64) float64 { return 0.5 * u * u }

// Residual assembles R(U), each partition fills its own range of cells
func (c *Burgers) Residual(state mat.Vector) (R *mat.VecDense, err error) {
	if err = c.checkState(state); err != nil {
		return
	}
	var (
		u    = utils.VecGetF64(state)
		rD   = make([]float64, c.K)
		dxI  = 1. / c.DX
		uInf = c.A
	)
	err = c.Partitions.ParallelFor(func(bn, kMin, kMax int) error {
		for k := kMin; k < kMax; k++ {
			uUp := uInf
			if k > 0 {
				uUp = u[k-1]
			}
			rD[k] = -(flux(u[k])-flux(uUp))*dxI + c.Source[k]
		}
		return nil
	})
	if err != nil {
		return
	}
	R = mat.NewVecDense(c.K, rD)
	return
}

// Jacobian assembles dR/dU as a sparse lower bidiagonal operator
func (c *Burgers) Jacobian(state mat.Vector) (J mat.Matrix, err error) {
	if err = c.checkState(state); err != nil {
		return
	}
	var (
		u        = utils.VecGetF64(state)
		dxI      = 1. / c.DX
		NP       = c.Partitions.ParallelDegree
		triplets = make([][]utils.Triplet, NP)
		dok      = utils.NewDOK(c.K, c.K)
	)
	err = c.Partitions.ParallelFor(func(bn, kMin, kMax int) error {
		tr := make([]utils.Triplet, 0, 2*(kMax-kMin))
		for k := kMin; k < kMax; k++ {
			tr = append(tr, utils.Triplet{I: k, J: k, Val: -u[k] * dxI})
			if k > 0 {
				tr = append(tr, utils.Triplet{I: k, J: k - 1, Val: u[k-1] * dxI})
			}
		}
		triplets[bn] = tr
		return nil
	})
	if err != nil {
		return
	}
	for np := 0; np < NP; np++ {
		if err = dok.Accumulate(triplets[np]); err != nil {
			return
		}
	}
	dok.SetReadOnly("Jacobian")
	J = dok.ToCSR()
	return
}

func (c *Burgers) checkState(state mat.Vector) error {
	if state.Len() != c.K {
		return fmt.Errorf("state length %d does not match %d cells", state.Len(), c.K)
	}
	return nil
}

// TimeStep is the CFL limited explicit step for the state u
func (c *Burgers) TimeStep(u []float64) (dt float64) {
	var (
		uMax = math.Abs(c.A)
	)
	for _, val := range u {
		uMax = math.Max(uMax, math.Abs(val))
	}
	dt = c.CFL * c.DX / uMax
	return
}

// Snapshots marches the full order model from the initial condition to
// FinalTime with forward Euler and stores nSnapshots equally spaced solutions,
// one per column
func (c *Burgers) Snapshots(FinalTime float64, nSnapshots int) (S *mat.Dense, err error) {
	if nSnapshots <= 0 || FinalTime <= 0 {
		err = fmt.Errorf("snapshots need FinalTime > 0 and a positive count, have %g and %d", FinalTime, nSnapshots)
		return
	}
	var (
		U      = c.InitialCondition()
		Time   float64
		R      *mat.VecDense
		steps  int
		dtSnap = FinalTime / float64(nSnapshots)
	)
	S = mat.NewDense(c.K, nSnapshots, nil)
	for n := 0; n < nSnapshots; n++ {
		target := float64(n+1) * dtSnap
		for Time < target {
			dt := c.TimeStep(U.RawVector().Data)
			if Time+dt > target {
				dt = target - Time
			}
			if R, err = c.Residual(U); err != nil {
				return
			}
			U.AddScaledVec(U, dt, R)
			Time += dt
			steps++
			if err = utils.NonFiniteError(fmt.Sprintf("solution at time %g", Time), U); err != nil {
				err = fmt.Errorf("%w, consider decreasing the CFL number", err)
				return
			}
		}
		Time = target
		S.SetCol(n, U.RawVector().Data)
	}
	fmt.Fprintf(c.Out, "Collected %d snapshots in %d steps, final time %g\n", nSnapshots, steps, Time)
	c.Guess = mat.VecDenseCopyOf(U)
	return
}

// SteadyState solves the Galerkin reduced model V_c^T R(V_c a) = 0 on the
// coarse columns of the basis with a damped Newton iteration and returns the
// full order state V_c a
func (c *Burgers) SteadyState(basis *pod.ReducedBasis) (U *mat.VecDense, err error) {
	var (
		coarse = basis.Coarse()
		a      *mat.VecDense
		r      *mat.VecDense
		rNorm  float64
		r0Norm float64
	)
	if len(coarse) == 0 {
		err = fmt.Errorf("reduced steady state needs at least one coarse basis column")
		return
	}
	if basis.FullDimension() != c.K {
		err = fmt.Errorf("basis full dimension %d does not match %d cells", basis.FullDimension(), c.K)
		return
	}
	a = basis.Project(coarse, c.Guess)
	reducedResidual := func(a mat.Vector) (U, r *mat.VecDense, err error) {
		var R *mat.VecDense
		U = basis.Expand(coarse, a)
		if R, err = c.Residual(U); err != nil {
			return
		}
		r = basis.Project(coarse, R)
		err = utils.NonFiniteError("reduced residual", r)
		return
	}
	if U, r, err = reducedResidual(a); err != nil {
		return
	}
	r0Norm = math.Max(utils.VecNorm2(r), 1)
	for iter := 0; ; iter++ {
		rNorm = utils.VecNorm2(r)
		if rNorm <= c.NewtonTol*r0Norm {
			fmt.Fprintf(c.Out, "Reduced steady state: %d Newton iterations, |r| = %8.3e, coarse size %d\n",
				iter, rNorm, len(coarse))
			return
		}
		if iter == c.MaxNewton {
			break
		}
		var (
			J  mat.Matrix
			da *mat.VecDense
		)
		if J, err = c.Jacobian(U); err != nil {
			return
		}
		rhs := mat.VecDenseCopyOf(r)
		rhs.ScaleVec(-1, rhs)
		if da, err = c.Solver.Solve(basis.ReduceOperator(coarse, J), rhs); err != nil {
			err = fmt.Errorf("reduced Newton step %d: %w", iter, err)
			return
		}
		// Backtrack until the reduced residual decreases
		var (
			alpha = 1.
			aNew  = mat.NewVecDense(a.Len(), nil)
			UNew  *mat.VecDense
			rNew  *mat.VecDense
		)
		for {
			aNew.AddScaledVec(a, alpha, da)
			UNew, rNew, err = reducedResidual(aNew)
			if err == nil && utils.VecNorm2(rNew) < (1-1.e-4*alpha)*rNorm {
				break
			}
			if alpha < 1./64 {
				if err == nil {
					err = fmt.Errorf("line search stalled at |r| = %8.3e: %w", rNorm, utils.ErrNonConvergence)
				}
				return
			}
			alpha *= 0.5
		}
		a.CopyVec(aNew)
		U, r = UNew, rNew
	}
	err = fmt.Errorf("reduced steady state: |r| = %8.3e after %d Newton iterations: %w",
		rNorm, c.MaxNewton, utils.ErrNonConvergence)
	return
}

// DiscreteSteadyState is the full order steady solution. With a positive
// inflow the upwind equations are lower triangular and each cell follows from
// its upwind neighbor: u_i^2 = u_{i-1}^2 + 2 dx s_i
func (c *Burgers) DiscreteSteadyState() (U *mat.VecDense) {
	var (
		u  = make([]float64, c.K)
		up = c.A
	)
	for i := range u {
		u[i] = math.Sqrt(up*up + 2*c.DX*c.Source[i])
		up = u[i]
	}
	return mat.NewVecDense(c.K, u)
}
